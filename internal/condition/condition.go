package condition

import "fmt"

// Kind is the closed set of run-conditions a stage or step may carry.
// Keeping the set closed keeps the evaluator total and exhaustive.
type Kind int

const (
	// OnSuccess is the default: run only if every dependency succeeded.
	OnSuccess Kind = iota
	// Always runs the unit regardless of dependency outcomes.
	Always
	// OnFailure runs the unit only if at least one dependency failed.
	OnFailure
)

// String returns the HCL keyword for the kind.
func (k Kind) String() string {
	switch k {
	case OnSuccess:
		return "on_success"
	case Always:
		return "always"
	case OnFailure:
		return "on_failure"
	default:
		return fmt.Sprintf("condition.Kind(%d)", int(k))
	}
}

// ParseKind converts an HCL condition keyword into its Kind. The empty
// string is the implicit default, on_success.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "on_success":
		return OnSuccess, nil
	case "always":
		return Always, nil
	case "on_failure":
		return OnFailure, nil
	default:
		return OnSuccess, fmt.Errorf("unknown condition %q: must be 'always', 'on_success', or 'on_failure'", s)
	}
}

// Outcome is the terminal state of a stage, immutable once recorded.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Skipped
)

// String returns the lowercase name used in logs and the run-context dump.
func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("condition.Outcome(%d)", int(o))
	}
}

// Eval reports whether a unit gated by kind is eligible to run, given the
// terminal outcomes of its dependencies. A false result means the unit is
// skipped, never that it errored.
//
// A skipped dependency is non-blocking for Always but counts as non-success
// for OnSuccess and as non-failure for OnFailure.
func Eval(k Kind, deps []Outcome) bool {
	switch k {
	case Always:
		return true
	case OnFailure:
		for _, o := range deps {
			if o == Failed {
				return true
			}
		}
		return false
	default: // OnSuccess
		for _, o := range deps {
			if o != Succeeded {
				return false
			}
		}
		return true
	}
}
