package dag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/stagehandgo/internal/condition"
	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/runctx"
)

// Executor runs the pipeline graph concurrently.
type Executor struct {
	Graph             *Graph
	wg                sync.WaitGroup
	resourceInstances sync.Map
	cleanupStack      []func()
	cleanupMutex      sync.Mutex
	registry          *registry.Registry
	converter         config.Converter
	numWorkers        int
}

// NewExecutor creates a graph executor with the given worker count.
func NewExecutor(graph *Graph, numWorkers int, reg *registry.Registry, converter config.Converter) *Executor {
	if numWorkers <= 0 {
		numWorkers = 4
	}
	return &Executor{
		Graph:      graph,
		numWorkers: numWorkers,
		registry:   reg,
		converter:  converter,
	}
}

// Run executes the entire graph and returns an error if any node failed.
// A stage failure never cancels stages already running or ready elsewhere in
// the graph; downstream nodes observe the failure through their condition
// gates instead. Context cancellation does abort scheduling of not-yet-started
// nodes.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer e.executeCleanupStack(ctx)

	readyChan := make(chan *Node, len(e.Graph.Nodes))

	logger.Debug("Initializing executor, finding root nodes...")
	rootNodeCount := 0
	for _, node := range e.Graph.Nodes {
		if node.depCount.Load() == 0 {
			logger.Debug("Found root node.", "nodeID", node.ID)
			readyChan <- node
			rootNodeCount++
		}
	}
	logger.Debug("Found all root nodes.", "count", rootNodeCount)

	e.wg.Add(len(e.Graph.Nodes))

	logger.Debug("Starting worker pool.", "workers", e.numWorkers)
	for i := 0; i < e.numWorkers; i++ {
		go e.worker(ctx, readyChan, i)
	}

	logger.Debug("Waiting for all nodes to complete...")
	e.wg.Wait()
	close(readyChan)

	var failedNodes []string
	var rootCauseError error
	for _, node := range e.Graph.Nodes {
		if node.GetState() == StateFailed {
			logger.Error("Node failed execution.", "nodeID", node.ID, "error", node.Error)
			failedNodes = append(failedNodes, node.ID)
			if rootCauseError == nil {
				rootCauseError = node.Error
			}
		}
	}

	if rootCauseError != nil {
		return fmt.Errorf("pipeline failed at %s: %w", strings.Join(failedNodes, ", "), rootCauseError)
	}
	return nil
}

// worker is the core processing loop for a single concurrent worker. Every
// node it receives has all dependencies in a terminal state, so the gate can
// be evaluated immediately.
func (e *Executor) worker(ctx context.Context, readyChan chan *Node, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for node := range readyChan {
		workerLogger := logger.With("workerID", workerID, "nodeID", node.ID)

		switch {
		case ctx.Err() != nil:
			workerLogger.Warn("Context canceled, aborting node.")
			node.setState(StateFailed)
			node.Error = ctx.Err()

		case !condition.Eval(node.Gate(), node.DepOutcomes()):
			workerLogger.Info("Skipping node, condition not met.", "condition", node.Gate())
			node.setState(StateSkipped)

		default:
			workerLogger.Debug("Worker picked up node for execution.")
			node.setState(Running)
			var err error
			switch node.Type {
			case ResourceNode:
				err = e.executeResourceNode(ctx, node)
			case StageNode:
				err = e.executeStageNode(ctx, node)
			}
			if err != nil {
				workerLogger.Error("Node execution failed.", "error", err)
				node.setState(StateFailed)
				node.Error = err
			} else {
				node.setState(StateSucceeded)
			}
		}

		e.recordOutcome(ctx, node)

		for _, dependent := range node.Dependents {
			if dependent.depCount.Add(-1) == 0 {
				workerLogger.Debug("Unlocking dependent node.", "dependentID", dependent.ID)
				readyChan <- dependent
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// recordOutcome publishes a stage's terminal outcome into the run context,
// where the report module later picks it up.
func (e *Executor) recordOutcome(ctx context.Context, node *Node) {
	if node.Type != StageNode {
		return
	}
	if rc, ok := runctx.FromContext(ctx); ok {
		rc.SetOutcome(node.Name, node.GetState().Outcome().String())
	}
}

// pushCleanup registers a destructor to run after the whole graph completes.
func (e *Executor) pushCleanup(fn func()) {
	e.cleanupMutex.Lock()
	defer e.cleanupMutex.Unlock()
	e.cleanupStack = append(e.cleanupStack, fn)
}

// executeCleanupStack destroys created resources in LIFO order.
func (e *Executor) executeCleanupStack(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	e.cleanupMutex.Lock()
	defer e.cleanupMutex.Unlock()

	logger.Debug("Executing cleanup stack.", "count", len(e.cleanupStack))
	for i := len(e.cleanupStack) - 1; i >= 0; i-- {
		e.cleanupStack[i]()
	}
	e.cleanupStack = nil
}
