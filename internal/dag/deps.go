package dag

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
)

// buildDepsStruct populates the deps struct for a step handler by resolving
// the step's uses block against created resource instances.
func (e *Executor) buildDepsStruct(ctx context.Context, node *Node, step *config.Step, handler *registry.RegisteredAction) (any, error) {
	logger := ctxlog.FromContext(ctx)
	depsStruct := handler.NewDeps()

	if len(step.Uses) == 0 {
		return depsStruct, nil
	}

	depsValue := reflect.ValueOf(depsStruct).Elem()
	depsType := depsValue.Type()

	for i := 0; i < depsValue.NumField(); i++ {
		field := depsType.Field(i)

		tag := field.Tag.Get("hcl")
		if tag == "" || tag == "-" {
			continue
		}
		lookupKey := strings.Split(tag, ",")[0]

		resourceExpr, ok := step.Uses[lookupKey]
		if !ok {
			continue
		}

		vars := resourceExpr.Variables()
		if len(vars) != 1 {
			return nil, fmt.Errorf("'%s' in the uses block of step %q must be a direct reference to one resource", lookupKey, step.Name)
		}
		resourceID, err := traversalToResourceID(vars[0])
		if err != nil {
			return nil, err
		}

		instance, found := e.resourceInstances.Load(resourceID)
		if !found {
			return nil, fmt.Errorf("step %q requires resource '%s', which has not been created", step.Name, resourceID)
		}

		instanceType := reflect.TypeOf(instance)
		fieldType := field.Type
		if fieldType.Kind() == reflect.Interface {
			if !instanceType.Implements(fieldType) {
				return nil, fmt.Errorf("type mismatch for '%s': resource of type %v does not implement required interface %v", lookupKey, instanceType, fieldType)
			}
		} else if !instanceType.AssignableTo(fieldType) {
			return nil, fmt.Errorf("type mismatch for '%s': resource of type %v is not assignable to field of type %v", lookupKey, instanceType, fieldType)
		}

		logger.Debug("Injecting resource dependency.", "step", step.Name, "field", field.Name, "resource", resourceID)
		depsValue.Field(i).Set(reflect.ValueOf(instance))
	}

	return depsStruct, nil
}

// traversalToResourceID converts an HCL traversal for a resource into its
// canonical node ID.
func traversalToResourceID(v hcl.Traversal) (string, error) {
	if len(v) < 3 || v.RootName() != "resource" {
		return "", fmt.Errorf("expected a 'resource.<asset_type>.<name>' reference, got '%s'", formatTraversal(v))
	}
	typeAttr, typeOk := v[1].(hcl.TraverseAttr)
	nameAttr, nameOk := v[2].(hcl.TraverseAttr)
	if !typeOk || !nameOk {
		return "", fmt.Errorf("expected a 'resource.<asset_type>.<name>' reference, got '%s'", formatTraversal(v))
	}
	return fmt.Sprintf("resource.%s.%s", typeAttr.Name, nameAttr.Name), nil
}
