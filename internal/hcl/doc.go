// Package hcl implements the HCL-backed configuration loader and the
// reflection-based converter between cty values and module Go structs.
// It is the only package that parses HCL files; everything downstream
// consumes the config model.
package hcl
