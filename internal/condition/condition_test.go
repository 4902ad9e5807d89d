package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestParseKind(t *testing.T) {
	t.Run("valid keywords", func(t *testing.T) {
		cases := map[string]Kind{
			"":           OnSuccess,
			"on_success": OnSuccess,
			"always":     Always,
			"on_failure": OnFailure,
		}
		for in, want := range cases {
			got, err := ParseKind(in)
			require.NoError(t, err, "input %q", in)
			assert.Equal(t, want, got, "input %q", in)
		}
	})

	t.Run("rejects unknown keyword", func(t *testing.T) {
		_, err := ParseKind("on_sucess")
		assert.ErrorContains(t, err, "unknown condition")
	})
}

func TestEval(t *testing.T) {
	cases := []struct {
		name string
		kind Kind
		deps []Outcome
		want bool
	}{
		{"on_success with no deps", OnSuccess, nil, true},
		{"on_success all succeeded", OnSuccess, []Outcome{Succeeded, Succeeded}, true},
		{"on_success with one failure", OnSuccess, []Outcome{Succeeded, Failed}, false},
		{"on_success treats skipped as non-success", OnSuccess, []Outcome{Succeeded, Skipped}, false},
		{"always ignores failures", Always, []Outcome{Failed, Failed}, true},
		{"always ignores skips", Always, []Outcome{Skipped}, true},
		{"always with no deps", Always, nil, true},
		{"on_failure needs at least one failure", OnFailure, []Outcome{Succeeded, Succeeded}, false},
		{"on_failure with a failure", OnFailure, []Outcome{Succeeded, Failed, Skipped}, true},
		{"on_failure treats skipped as non-failure", OnFailure, []Outcome{Skipped, Skipped}, false},
		{"on_failure with no deps", OnFailure, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Eval(tc.kind, tc.deps))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "skipped", Skipped.String())
}

func TestGuardMatches(t *testing.T) {
	t.Run("bool equality", func(t *testing.T) {
		g := &Guard{Step: "restore", Output: "cache_hit", Equals: cty.False}
		assert.True(t, g.Matches(cty.False))
		assert.False(t, g.Matches(cty.True))
	})

	t.Run("string equality", func(t *testing.T) {
		g := &Guard{Step: "restore", Output: "key", Equals: cty.StringVal("linux-node-modules-abc")}
		assert.True(t, g.Matches(cty.StringVal("linux-node-modules-abc")))
		assert.False(t, g.Matches(cty.StringVal("linux-node-modules-def")))
	})

	t.Run("converts expected to actual type", func(t *testing.T) {
		g := &Guard{Equals: cty.StringVal("false")}
		assert.True(t, g.Matches(cty.False))
	})

	t.Run("null and nil never match", func(t *testing.T) {
		g := &Guard{Equals: cty.True}
		assert.False(t, g.Matches(cty.NilVal))
		assert.False(t, g.Matches(cty.NullVal(cty.Bool)))
	})

	t.Run("inconvertible types never match", func(t *testing.T) {
		g := &Guard{Equals: cty.StringVal("nope")}
		assert.False(t, g.Matches(cty.NumberIntVal(3)))
	})
}
