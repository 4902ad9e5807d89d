package dag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
)

// linkNodes performs the second pass, establishing dependency links.
func linkNodes(ctx context.Context, model *config.Model, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting node linking pass.")

	for _, node := range graph.Nodes {
		var expressions []hcl.Expression

		if node.Type == StageNode {
			if err := linkExplicitDeps(ctx, node, node.StageConfig.DependsOn, graph); err != nil {
				return err
			}
			for _, step := range node.StageConfig.Steps {
				for _, expr := range step.Arguments {
					expressions = append(expressions, expr)
				}
				for _, expr := range step.Uses {
					expressions = append(expressions, expr)
				}
			}
		} else {
			for _, expr := range node.ResourceConfig.Arguments {
				expressions = append(expressions, expr)
			}
		}

		for _, expr := range expressions {
			if err := linkImplicitDeps(ctx, node, expr, graph); err != nil {
				return err
			}
		}
	}
	logger.Debug("Finished node linking pass.")
	return nil
}

// linkExplicitDeps resolves dependencies from a stage's depends_on list.
// Entries name other stages.
func linkExplicitDeps(ctx context.Context, node *Node, dependsOn []string, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)
	for _, depName := range dependsOn {
		depID := "stage." + depName
		depNode, found := graph.Nodes[depID]
		if !found {
			return fmt.Errorf("stage '%s' depends on non-existent stage '%s'", node.Name, depName)
		}
		if _, exists := node.Deps[depID]; !exists {
			logger.Debug("Linking explicit dependency.", "from", node.ID, "to", depID)
			node.Deps[depID] = depNode
			depNode.Dependents[node.ID] = node
		}
	}
	return nil
}

// linkImplicitDeps parses an expression for variable traversals to create
// dependency links. Recognized roots are `stage.<name>` and
// `resource.<asset_type>.<name>`; `step` and `run` traversals resolve inside
// a single stage and never create edges.
func linkImplicitDeps(ctx context.Context, node *Node, expr hcl.Expression, graph *Graph) error {
	logger := ctxlog.FromContext(ctx)

	for _, traversal := range expr.Variables() {
		switch traversal.RootName() {
		case "stage":
			if len(traversal) < 2 {
				continue
			}
			nameAttr, ok := traversal[1].(hcl.TraverseAttr)
			if !ok {
				continue
			}
			depID := "stage." + nameAttr.Name
			if depID == node.ID {
				return fmt.Errorf("stage '%s' references its own outputs via '%s'; use the step namespace instead", node.Name, formatTraversal(traversal))
			}
			depNode, found := graph.Nodes[depID]
			if !found {
				return fmt.Errorf("'%s' references non-existent stage '%s'", node.ID, nameAttr.Name)
			}
			if _, exists := node.Deps[depID]; !exists {
				logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
				node.Deps[depID] = depNode
				depNode.Dependents[node.ID] = node
			}

		case "resource":
			if len(traversal) < 3 {
				continue
			}
			typeAttr, typeOk := traversal[1].(hcl.TraverseAttr)
			nameAttr, nameOk := traversal[2].(hcl.TraverseAttr)
			if !typeOk || !nameOk {
				continue
			}
			depID := fmt.Sprintf("resource.%s.%s", typeAttr.Name, nameAttr.Name)
			depNode, found := graph.Nodes[depID]
			if !found {
				return fmt.Errorf("'%s' references non-existent resource '%s.%s'", node.ID, typeAttr.Name, nameAttr.Name)
			}
			if _, exists := node.Deps[depID]; !exists {
				logger.Debug("Linking implicit dependency.", "from", node.ID, "to", depID)
				node.Deps[depID] = depNode
				depNode.Dependents[node.ID] = node
			}
		}
	}
	return nil
}

// formatTraversal converts an hcl.Traversal to a human-readable string for
// error messages and logging.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for i, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			sb.WriteRune('.')
			sb.WriteString(p.Name)
		case hcl.TraverseIndex:
			sb.WriteRune('[')
			if p.Key.Type() == cty.String {
				sb.WriteString(fmt.Sprintf("%q", p.Key.AsString()))
			} else if p.Key.Type() == cty.Number {
				sb.WriteString(p.Key.AsBigFloat().Text('f', -1))
			} else {
				sb.WriteString("...")
			}
			sb.WriteRune(']')
		default:
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString("?")
		}
	}
	return sb.String()
}
