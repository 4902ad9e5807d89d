package dag

import (
	"sync/atomic"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/condition"
	"github.com/vk/stagehandgo/internal/config"
)

// NodeType discriminates the two kinds of vertices in the pipeline graph.
type NodeType int

const (
	// StageNode is a pipeline stage: an ordered list of steps run sequentially.
	StageNode NodeType = iota
	// ResourceNode is a long-lived service instance shared by stages.
	ResourceNode
)

// State tracks a node through its lifecycle. Succeeded, Failed and Skipped
// are terminal.
type State int32

const (
	Pending State = iota
	Running
	StateSucceeded
	StateFailed
	StateSkipped
)

// String returns the lifecycle state name used in logs.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Outcome maps a terminal state onto the outcome seen by dependent gates.
func (s State) Outcome() condition.Outcome {
	switch s {
	case StateFailed:
		return condition.Failed
	case StateSkipped:
		return condition.Skipped
	default:
		return condition.Succeeded
	}
}

// Node is a single vertex in the pipeline graph.
type Node struct {
	// ID is the canonical identifier: "stage.<name>" for stages,
	// "resource.<asset_type>.<name>" for resources.
	ID   string
	Name string
	Type NodeType

	// Exactly one of these is set, matching Type.
	StageConfig    *config.Stage
	ResourceConfig *config.Resource

	// Deps holds the nodes this node waits for (predecessors).
	Deps map[string]*Node
	// Dependents holds the nodes waiting for this node (successors).
	Dependents map[string]*Node

	// Error holds the failure cause once the state is StateFailed.
	Error error
	// Output holds a stage's collected step outputs once terminal, as an
	// object keyed by step instance name.
	Output cty.Value

	state    atomic.Int32
	depCount atomic.Int32
}

// GetState returns the node's current lifecycle state.
func (n *Node) GetState() State {
	return State(n.state.Load())
}

func (n *Node) setState(s State) {
	n.state.Store(int32(s))
}

// SetInitialCounters primes the pending-dependency counter before execution.
func (n *Node) SetInitialCounters() {
	n.depCount.Store(int32(len(n.Deps)))
}

// Gate returns the condition guarding this node's execution. Resources carry
// no condition attribute and always require upstream success.
func (n *Node) Gate() condition.Kind {
	if n.Type == StageNode {
		return n.StageConfig.Condition
	}
	return condition.OnSuccess
}

// DepOutcomes collects the terminal outcomes of all direct dependencies.
// It must only be called once every dependency has reached a terminal state,
// which the scheduler guarantees before handing the node to a worker.
func (n *Node) DepOutcomes() []condition.Outcome {
	outcomes := make([]condition.Outcome, 0, len(n.Deps))
	for _, dep := range n.Deps {
		outcomes = append(outcomes, dep.GetState().Outcome())
	}
	return outcomes
}

// Graph is the complete pipeline dependency graph, keyed by node ID.
type Graph struct {
	Nodes map[string]*Node
}
