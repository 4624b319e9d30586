package manifest

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestMatchesRequirement(t *testing.T) {
	cases := []struct {
		version string
		req     string
		want    bool
	}{
		{"1.2.3", "", true},
		{"1.2.3", "*", true},
		{"1.2.3", "1", true},
		{"1.0.0", "1", true},
		{"1.2.3", "1.0", true},
		// a bare major must not admit the next major release
		{"2.0.0", "1", false},
		{"2.0.0", "^1", false},
		{"2.0.0", "1.2", false},
		{"0.8.5", "0.8", true},
		{"0.9.0", "0.8", false},
		{"1.2.3", "^1.2", true},
		{"1.2.3", "=1.2.3", true},
		{"1.2.4", "=1.2.3", false},
		{"1.4.0", ">=1.2, <1.5", true},
		{"1.5.0", ">=1.2, <1.5", false},
		{"1.3.0", "~1.2", false},
		{"1.2.9", "~1.2", true},
	}

	for _, tc := range cases {
		got, err := MatchesRequirement(tc.version, tc.req)
		assert.NilError(t, err, "version %s req %s", tc.version, tc.req)
		assert.Equal(t, got, tc.want, "version %s req %s", tc.version, tc.req)
	}
}

func TestMatchesRequirementInvalid(t *testing.T) {
	_, err := MatchesRequirement("not-a-version", "1.0")
	assert.Assert(t, err != nil)

	_, err = MatchesRequirement("1.0.0", "not a requirement !")
	assert.Assert(t, err != nil)
}
