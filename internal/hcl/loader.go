package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/stagehandgo/internal/config"
	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/fsutil"
	"github.com/vk/stagehandgo/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Manifests and pipeline files may be freely mixed across paths.
type fileRoot struct {
	Actions   []*schema.ActionDefinition `hcl:"action,block"`
	Assets    []*schema.AssetDefinition  `hcl:"asset,block"`
	Stages    []*schema.Stage            `hcl:"stage,block"`
	Resources []*schema.Resource         `hcl:"resource,block"`
	Remain    hcl.Body                   `hcl:",remain"`
}

// Load orchestrates the entire HCL configuration loading process. It is
// agnostic to the origin of the paths and parses any valid block from any file.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{
		Actions:  make(map[string]*config.ActionDefinition),
		Assets:   make(map[string]*config.AssetDefinition),
		Pipeline: &config.Pipeline{},
	}

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, action := range root.Actions {
			def, err := l.translateActionDefinition(ctx, action)
			if err != nil {
				return nil, nil, err
			}
			model.Actions[def.Type] = def
		}
		for _, asset := range root.Assets {
			def, err := l.translateAssetDefinition(ctx, asset)
			if err != nil {
				return nil, nil, err
			}
			model.Assets[def.Type] = def
		}
		for _, stage := range root.Stages {
			translated, err := l.translateStage(stage)
			if err != nil {
				return nil, nil, fmt.Errorf("in file %s: %w", file, err)
			}
			model.Pipeline.Stages = append(model.Pipeline.Stages, translated)
		}
		for _, resource := range root.Resources {
			model.Pipeline.Resources = append(model.Pipeline.Resources, l.translateResource(resource))
		}
	}

	logger.Debug("HCL loading complete.",
		"actions", len(model.Actions),
		"assets", len(model.Assets),
		"stages", len(model.Pipeline.Stages),
		"resources", len(model.Pipeline.Resources),
	)
	return model, NewConverter(), nil
}

// findAllHCLFiles expands each path into the .hcl files beneath it. A path
// may be a single file or a directory to search recursively.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access configuration path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("failed to search %s for HCL files: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}
