package dag

import (
	"context"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/runctx"
)

// buildEvalContext creates the HCL evaluation context for a node. Three
// namespaces are exposed: `run` with the run's metadata, `stage.<name>` with
// the outcome and outputs of each upstream stage, and `step.<name>` with the
// outputs of steps already finished in the current stage. stepOutputs is nil
// for resource nodes.
func (e *Executor) buildEvalContext(ctx context.Context, node *Node, stepOutputs map[string]cty.Value) *hcl.EvalContext {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Building HCL evaluation context.", "node", node.ID)
	vars := make(map[string]cty.Value)

	if rc, ok := runctx.FromContext(ctx); ok {
		vars["run"] = rc.Vars()
	}

	stageVals := make(map[string]cty.Value)
	for _, depNode := range node.Deps {
		if depNode.Type != StageNode || !depNode.GetState().Terminal() {
			continue
		}
		output := depNode.Output
		if output == cty.NilVal {
			output = cty.EmptyObjectVal
		}
		stageVals[depNode.Name] = cty.ObjectVal(map[string]cty.Value{
			"outcome": cty.StringVal(depNode.GetState().Outcome().String()),
			"output":  output,
		})
	}
	if len(stageVals) > 0 {
		vars["stage"] = cty.ObjectVal(stageVals)
	}

	if len(stepOutputs) > 0 {
		stepVals := make(map[string]cty.Value, len(stepOutputs))
		for name, output := range stepOutputs {
			stepVals[name] = cty.ObjectVal(map[string]cty.Value{"output": output})
		}
		vars["step"] = cty.ObjectVal(stepVals)
	}

	return &hcl.EvalContext{Variables: vars}
}
