package dag

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vk/stagehandgo/internal/ctxlog"
)

// executeResourceNode handles the creation of a stateful resource and
// registers its destructor on the cleanup stack.
func (e *Executor) executeResourceNode(ctx context.Context, node *Node) error {
	logger := ctxlog.FromContext(ctx).With("resource", node.ID)
	logger.Info("Creating resource.")

	assetType := node.ResourceConfig.AssetType
	assetDef, ok := e.registry.AssetDefinitionRegistry[assetType]
	if !ok {
		return fmt.Errorf("unknown asset type '%s'", assetType)
	}
	createHandlerName := assetDef.Lifecycle.Create
	destroyHandlerName := assetDef.Lifecycle.Destroy

	assetHandler, ok := e.registry.AssetHandlerRegistry[createHandlerName]
	if !ok || assetHandler.CreateFn == nil {
		return fmt.Errorf("create handler '%s' not registered", createHandlerName)
	}
	destroyHandler, ok := e.registry.AssetHandlerRegistry[destroyHandlerName]
	if !ok || destroyHandler.DestroyFn == nil {
		return fmt.Errorf("destroy handler '%s' not registered", destroyHandlerName)
	}

	logger.Debug("Decoding resource arguments.")
	inputStruct := assetHandler.NewInput()
	evalCtx := e.buildEvalContext(ctx, node, nil)
	if err := e.converter.DecodeBody(ctx, inputStruct, node.ResourceConfig.Arguments, assetDef.Inputs, evalCtx); err != nil {
		return fmt.Errorf("decoding arguments for resource %s: %w", node.ID, err)
	}

	logger.Debug("Calling resource create handler.", "handler", createHandlerName)
	handlerFunc := reflect.ValueOf(assetHandler.CreateFn)
	results := handlerFunc.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(inputStruct)})
	instance, errResult := results[0].Interface(), results[1].Interface()
	if errResult != nil {
		return errResult.(error)
	}

	e.resourceInstances.Store(node.ID, instance)
	e.pushCleanup(func() {
		logger.Info("Destroying resource.")
		destroyResults := reflect.ValueOf(destroyHandler.DestroyFn).Call([]reflect.Value{reflect.ValueOf(instance)})
		if len(destroyResults) > 0 {
			if err, ok := destroyResults[0].Interface().(error); ok && err != nil {
				logger.Warn("Resource destroy reported an error.", "error", err)
			}
		}
		e.resourceInstances.Delete(node.ID)
	})

	logger.Info("Resource created.")
	return nil
}
