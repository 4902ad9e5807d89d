// Package condition implements the run-condition evaluator: the closed
// enum of stage/step conditions (always, on_success, on_failure), the
// terminal Outcome type, and the output-equality Guard used by `when`
// blocks. Evaluation is pure; a false result always means "skip", never
// an error.
package condition
