package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/stagehandgo/internal/condition"
)

// Model is the unified, format-agnostic representation of the entire
// application configuration: all action/asset manifests plus the pipeline.
type Model struct {
	Actions  map[string]*ActionDefinition
	Assets   map[string]*AssetDefinition
	Pipeline *Pipeline
}

// Pipeline represents the user's stage graph definition.
type Pipeline struct {
	Stages    []*Stage
	Resources []*Resource
}

// Stage is the format-agnostic representation of a `stage` block: an
// independently scheduled unit of work with its own run-condition and an
// ordered list of steps.
type Stage struct {
	Name      string
	DependsOn []string
	Condition condition.Kind
	Steps     []*Step
}

// Step is the format-agnostic representation of a `step` block inside a
// stage. Steps execute strictly sequentially within their stage.
type Step struct {
	ActionType string
	Name       string
	Condition  condition.Kind
	Arguments  map[string]hcl.Expression
	Uses       map[string]hcl.Expression
	// Guard is the optional `when` output-equality condition. The Equals
	// expression is evaluated at step time against the stage's eval context.
	Guard *Guard
}

// Guard is the raw, pre-evaluation form of a `when` block.
type Guard struct {
	Step   string
	Output string
	Equals hcl.Expression
}

// Resource is the format-agnostic representation of a `resource` block: a
// managed, stateful instance of a defined asset shared across stages.
type Resource struct {
	AssetType string
	Name      string
	Arguments map[string]hcl.Expression
}

// --- Manifest Models ---

// ActionDefinition is the format-agnostic representation of an action's manifest.
type ActionDefinition struct {
	Type        string
	Description string
	Lifecycle   *Lifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
	Uses        map[string]*UsesDefinition
}

// AssetDefinition is the format-agnostic representation of an asset's manifest.
type AssetDefinition struct {
	Type        string
	Description string
	Lifecycle   *AssetLifecycle
	Inputs      map[string]*InputDefinition
	Outputs     map[string]*OutputDefinition
}

// Lifecycle maps an action's events to Go handler names.
type Lifecycle struct {
	OnRun string
}

// AssetLifecycle maps an asset's events to Go handler names.
type AssetLifecycle struct {
	Create  string
	Destroy string
}

// InputDefinition defines a single input argument for an action or asset.
type InputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
	Default     *cty.Value
	Optional    bool
}

// OutputDefinition defines a single output value from an action.
type OutputDefinition struct {
	Name        string
	Type        cty.Type
	Description string
}

// UsesDefinition defines an asset dependency for an action.
type UsesDefinition struct {
	LocalName string
	AssetType string
}
