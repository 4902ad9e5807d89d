package condition

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Guard is an output-equality condition attached to a single step. It
// compares a named output of an earlier step in the same stage against an
// expected value. An unsatisfied guard skips the step without error.
type Guard struct {
	// Step is the instance name of the step whose output is inspected.
	Step string
	// Output is the output attribute name on that step.
	Output string
	// Equals is the expected value.
	Equals cty.Value
}

// Matches reports whether the actual output value equals the expected one.
// Values of convertible types (e.g. bool vs the string "false") compare
// after conversion; anything unknown, null, or inconvertible is a mismatch.
func (g *Guard) Matches(actual cty.Value) bool {
	if actual == cty.NilVal || g.Equals == cty.NilVal {
		return false
	}
	if !actual.IsKnown() || !g.Equals.IsKnown() || actual.IsNull() || g.Equals.IsNull() {
		return false
	}

	expected := g.Equals
	if !actual.Type().Equals(expected.Type()) {
		converted, err := convert.Convert(expected, actual.Type())
		if err != nil {
			return false
		}
		expected = converted
	}

	eq := actual.Equals(expected)
	return eq.IsKnown() && eq.True()
}
