// Package config defines the format-agnostic model of a pipeline
// configuration: stages, steps, resources, and the action/asset manifests
// that bind them to Go handlers. The engine consumes only this model; the
// HCL specifics live behind the Loader and Converter interfaces.
package config
