// Package schema declares the HCL block shapes for pipeline files and
// module manifests. These structs are decode targets only; the engine
// works with the translated config model instead.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// --- Primary Pipeline Structures ---

// StepArgs represents the content of the 'arguments' block within a step.
type StepArgs struct {
	Body hcl.Body `hcl:",remain"`
}

// UsesBlock represents the content of the 'uses' block within a step.
type UsesBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// WhenBlock is the output-equality guard on a step: run the step only when
// the named output of an earlier step in the same stage equals a value.
type WhenBlock struct {
	Step   string         `hcl:"step"`
	Output string         `hcl:"output"`
	Equals hcl.Expression `hcl:"equals"`
}

// Step represents a `step` block from a stage. Steps run sequentially in
// declaration order.
type Step struct {
	ActionType string     `hcl:"action_type,label"`
	Name       string     `hcl:"instance_name,label"`
	Condition  string     `hcl:"condition,optional"`
	Arguments  *StepArgs  `hcl:"arguments,block"`
	Uses       *UsesBlock `hcl:"uses,block"`
	When       *WhenBlock `hcl:"when,block"`
}

// Stage represents a `stage` block from a user's pipeline file: an
// independently scheduled unit with declared dependencies and a
// run-condition.
type Stage struct {
	Name      string   `hcl:"name,label"`
	DependsOn []string `hcl:"depends_on,optional"`
	Condition string   `hcl:"condition,optional"`
	Steps     []*Step  `hcl:"step,block"`
}

// Resource represents a `resource` block: a managed, stateful instance of
// a defined asset, shared by steps through their 'uses' blocks.
type Resource struct {
	AssetType string    `hcl:"asset_type,label"`
	Name      string    `hcl:"instance_name,label"`
	Arguments *StepArgs `hcl:"arguments,block"`
}

// PipelineConfig represents the top-level structure of a pipeline file.
type PipelineConfig struct {
	Stages    []*Stage    `hcl:"stage,block"`
	Resources []*Resource `hcl:"resource,block"`
	Body      hcl.Body    `hcl:",remain"`
}

// --- Module Manifest Schemas ---

// Lifecycle defines the mapping from an action's lifecycle event to a
// registered Go handler function.
type Lifecycle struct {
	OnRun string `hcl:"on_run,optional"`
}

// AssetLifecycle defines the mapping from an asset's lifecycle events
// (create, destroy) to registered Go handler functions.
type AssetLifecycle struct {
	Create  string `hcl:"create"`
	Destroy string `hcl:"destroy"`
}

// InputDefinition defines a single input variable for an action or asset.
type InputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
	Default     *cty.Value     `hcl:"default,optional"`
}

// OutputDefinition defines a single output value produced by an action.
type OutputDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Description string         `hcl:"description,optional"`
}

// UsesDefinition defines an asset dependency required by an action.
type UsesDefinition struct {
	LocalName string `hcl:"local_name,label"`
	AssetType string `hcl:"asset_type"`
}

// ActionDefinition represents the HCL manifest for a runnable `action` type.
type ActionDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *Lifecycle          `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
	Uses        []*UsesDefinition   `hcl:"uses,block"`
}

// AssetDefinition represents the HCL manifest for a stateful `asset` type.
type AssetDefinition struct {
	Type        string              `hcl:"type,label"`
	Description string              `hcl:"description,optional"`
	Lifecycle   *AssetLifecycle     `hcl:"lifecycle,block"`
	Inputs      []*InputDefinition  `hcl:"input,block"`
	Outputs     []*OutputDefinition `hcl:"output,block"`
}

// DefinitionConfig represents the top-level structure of a module manifest file.
type DefinitionConfig struct {
	Action *ActionDefinition `hcl:"action,block"`
	Asset  *AssetDefinition  `hcl:"asset,block"`
	Body   hcl.Body          `hcl:",remain"`
}
