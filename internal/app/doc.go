// Package app wires the whole pipeline runner together: it owns the logger,
// loads configuration through a format-agnostic loader, registers the
// built-in modules, and drives graph construction and execution for a single
// run.
package app
