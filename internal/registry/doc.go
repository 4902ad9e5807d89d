// Package registry holds the bindings between HCL manifests and compiled
// Go handlers: action handlers (on_run), asset handlers (create/destroy),
// and the manifest definitions loaded from configuration. Validation
// enforces parity between what a manifest declares and what the Go
// handler struct actually accepts.
package registry
