package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
)

// ValidateRegistry performs a strict parity check between manifests and Go code.
// It checks both the presence of inputs and the compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string

	for actionType, def := range r.DefinitionRegistry {
		if def.Lifecycle == nil {
			errs = append(errs, fmt.Sprintf("action '%s': manifest has no lifecycle block", actionType))
			continue
		}
		handler, ok := r.HandlerRegistry[def.Lifecycle.OnRun]
		if !ok {
			errs = append(errs, fmt.Sprintf("action '%s': handler '%s' is not registered", actionType, def.Lifecycle.OnRun))
			continue
		}

		if handler.InputType == nil {
			if len(def.Inputs) > 0 {
				errs = append(errs, fmt.Sprintf("action '%s': manifest declares inputs, but Go handler has no input struct", actionType))
			}
			continue
		}

		errs = append(errs, checkInputParity(ctx, "action", actionType, def.Inputs, handler.InputType)...)
	}

	for assetType, def := range r.AssetDefinitionRegistry {
		if def.Lifecycle == nil {
			errs = append(errs, fmt.Sprintf("asset '%s': manifest has no lifecycle block", assetType))
			continue
		}
		handler, ok := r.AssetHandlerRegistry[def.Lifecycle.Create]
		if !ok {
			errs = append(errs, fmt.Sprintf("asset '%s': create handler '%s' is not registered", assetType, def.Lifecycle.Create))
			continue
		}
		if _, ok := r.AssetHandlerRegistry[def.Lifecycle.Destroy]; !ok {
			errs = append(errs, fmt.Sprintf("asset '%s': destroy handler '%s' is not registered", assetType, def.Lifecycle.Destroy))
		}
		if handler.InputType == nil {
			continue
		}
		errs = append(errs, checkInputParity(ctx, "asset", assetType, def.Inputs, handler.InputType)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

// checkInputParity compares a manifest's declared inputs against the fields
// of the handler's Go input struct, by name and then by implied cty type.
func checkInputParity(ctx context.Context, ownerKind, ownerName string, inputs map[string]*config.InputDefinition, inputType reflect.Type) []string {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	goInputs := make(map[string]reflect.StructField)
	for i := 0; i < inputType.NumField(); i++ {
		field := inputType.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := field.Tag.Get("hcl")
		tagName := strings.Split(tag, ",")[0]
		if tagName != "" && tagName != "-" {
			goInputs[tagName] = field
		}
	}

	for name := range goInputs {
		if _, ok := inputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("%s '%s': Go struct has field for input '%s' which is not declared in manifest", ownerKind, ownerName, name))
		}
	}
	for name := range inputs {
		if _, ok := goInputs[name]; !ok {
			errs = append(errs, fmt.Sprintf("%s '%s': manifest declares input '%s' which is not found in Go struct", ownerKind, ownerName, name))
		}
	}

	for name, inputDef := range inputs {
		goField, ok := goInputs[name]
		if !ok {
			continue // Already handled by presence check.
		}

		manifestType := inputDef.Type
		if manifestType.Equals(cty.DynamicPseudoType) {
			logger.Warn("Manifest input with 'type = any' disables static type checking. Consider a specific type like 'string', 'number', or 'bool'.", ownerKind, ownerName, "input", name)
			continue
		}

		// cty.Value fields accept any manifest type.
		if goField.Type == reflect.TypeOf(cty.Value{}) {
			continue
		}

		goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s '%s', input '%s': could not imply cty type from Go field type %s: %v", ownerKind, ownerName, name, goField.Type, err))
			continue
		}

		if !manifestType.Equals(goFieldType) {
			errs = append(errs, fmt.Sprintf("%s '%s', input '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides type '%s'",
				ownerKind, ownerName, name, manifestType.FriendlyName(), goField.Name, goFieldType.FriendlyName()))
		}
	}

	return errs
}
