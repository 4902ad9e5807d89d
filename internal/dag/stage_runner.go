package dag

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/condition"
	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
)

// executeStageNode runs a stage's steps strictly in order. The first failing
// step flips the stage status to failed; later steps still run or skip
// according to their own condition, so cleanup-style steps inside a stage
// behave the same way cleanup stages do at the graph level.
func (e *Executor) executeStageNode(ctx context.Context, node *Node) error {
	logger := ctxlog.FromContext(ctx).With("stage", node.Name)
	logger.Info("Starting stage.")

	stepOutputs := make(map[string]cty.Value)
	stageStatus := condition.Succeeded
	var firstErr error

	for _, step := range node.StageConfig.Steps {
		stepLogger := logger.With("step", step.Name, "action", step.ActionType)

		if !condition.Eval(step.Condition, []condition.Outcome{stageStatus}) {
			stepLogger.Info("Skipping step, condition not met.", "condition", step.Condition)
			continue
		}

		evalCtx := e.buildEvalContext(ctx, node, stepOutputs)

		if step.Guard != nil {
			ok, err := evalGuard(step.Guard, stepOutputs, evalCtx)
			if err != nil {
				stageStatus = condition.Failed
				if firstErr == nil {
					firstErr = fmt.Errorf("step %q: %w", step.Name, err)
				}
				stepLogger.Error("Guard evaluation failed.", "error", err)
				continue
			}
			if !ok {
				stepLogger.Info("Skipping step, when guard not satisfied.",
					"guard_step", step.Guard.Step, "guard_output", step.Guard.Output)
				continue
			}
		}

		output, err := e.runStep(ctx, node, step, evalCtx)
		if err != nil {
			stepLogger.Error("Step failed.", "error", err)
			stageStatus = condition.Failed
			if firstErr == nil {
				firstErr = fmt.Errorf("step %q: %w", step.Name, err)
			}
			continue
		}
		if output != cty.NilVal {
			stepOutputs[step.Name] = output
		}
		stepLogger.Info("Step finished.")
	}

	node.Output = stepOutputsToValue(stepOutputs)

	if firstErr != nil {
		logger.Error("Stage failed.", "error", firstErr)
		return firstErr
	}
	logger.Info("Stage finished.")
	return nil
}

// runStep decodes a step's input, injects its resource dependencies, and
// invokes the registered handler.
func (e *Executor) runStep(ctx context.Context, node *Node, step *config.Step, evalCtx *hcl.EvalContext) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("stage", node.Name, "step", step.Name)

	actionDef, ok := e.registry.DefinitionRegistry[step.ActionType]
	if !ok {
		return cty.NilVal, fmt.Errorf("unknown action type '%s'", step.ActionType)
	}
	handlerName := actionDef.Lifecycle.OnRun
	handler, ok := e.registry.HandlerRegistry[handlerName]
	if !ok {
		return cty.NilVal, fmt.Errorf("handler '%s' not registered", handlerName)
	}

	logger.Debug("Decoding step arguments.")
	inputStruct := handler.NewInput()
	if inputStruct != nil {
		if err := e.converter.DecodeBody(ctx, inputStruct, step.Arguments, actionDef.Inputs, evalCtx); err != nil {
			return cty.NilVal, fmt.Errorf("decoding arguments: %w", err)
		}
	}

	depsStruct, err := e.buildDepsStruct(ctx, node, step, handler)
	if err != nil {
		return cty.NilVal, err
	}

	logger.Debug("Calling step handler.", "handler", handlerName)
	handlerFunc := reflect.ValueOf(handler.Fn)
	callArgs := []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(depsStruct)}
	if inputStruct == nil {
		callArgs = append(callArgs, reflect.Zero(handlerFunc.Type().In(2)))
	} else {
		callArgs = append(callArgs, reflect.ValueOf(inputStruct))
	}

	results := handlerFunc.Call(callArgs)
	if errResult := results[1].Interface(); errResult != nil {
		return cty.NilVal, errResult.(error)
	}

	outputVal := results[0]
	switch outputVal.Kind() {
	case reflect.Ptr, reflect.Interface:
		if outputVal.IsNil() {
			return cty.NilVal, nil
		}
	}
	out, err := e.converter.ToCtyValue(outputVal.Interface())
	if err != nil {
		return cty.NilVal, fmt.Errorf("converting output of step %q: %w", step.Name, err)
	}
	return out, nil
}

// evalGuard decides whether a when block lets a step run. A guard naming a
// step that produced no output, or an output attribute that does not exist,
// skips the step rather than failing it.
func evalGuard(g *config.Guard, stepOutputs map[string]cty.Value, evalCtx *hcl.EvalContext) (bool, error) {
	equalsVal, diags := g.Equals.Value(evalCtx)
	if diags.HasErrors() {
		return false, fmt.Errorf("evaluating when.equals: %w", diags)
	}

	out, ok := stepOutputs[g.Step]
	if !ok {
		return false, nil
	}
	if !out.Type().IsObjectType() || !out.Type().HasAttribute(g.Output) {
		return false, nil
	}

	guard := condition.Guard{Step: g.Step, Output: g.Output, Equals: equalsVal}
	return guard.Matches(out.GetAttr(g.Output)), nil
}

// stepOutputsToValue folds the collected step outputs into the stage's
// published output object.
func stepOutputsToValue(stepOutputs map[string]cty.Value) cty.Value {
	if len(stepOutputs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(stepOutputs)
}
