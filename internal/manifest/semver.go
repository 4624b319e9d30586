package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// MatchesRequirement reports whether version satisfies the cargo version
// requirement req. Cargo treats a bare requirement like "0.8" as a caret
// requirement bounded at the first non-zero component, so bare and caret
// parts are expanded into explicit ranges before the constraint is parsed.
// An empty requirement matches any version.
func MatchesRequirement(version string, req string) (bool, error) {
	req = strings.TrimSpace(req)
	if req == "" || req == "*" {
		return true, nil
	}

	constraint, err := semver.NewConstraint(normalizeRequirement(req))
	if err != nil {
		return false, errors.Wrapf(err, "requirement %q", req)
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false, errors.Wrapf(err, "version %q", version)
	}
	return constraint.Check(v), nil
}

func normalizeRequirement(req string) string {
	parts := strings.Split(req, ",")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "^"):
			part = caretRange(part[1:])
		case part[0] >= '0' && part[0] <= '9' && !strings.ContainsAny(part, "*x"):
			part = caretRange(part)
		}
		parts[i] = part
	}
	return strings.Join(parts, ", ")
}

// caretRange expands a cargo caret requirement into an explicit range. The
// upper bound bumps the leftmost non-zero component: ^1.2 admits <2.0.0 while
// ^0.8 admits <0.9.0 and ^0.0.3 admits <0.0.4. Both bounds are padded to full
// three-component versions; the constraint parser reads a partial bound like
// "<2" looser than "<2.0.0" and would admit 2.0.0.
func caretRange(version string) string {
	comps := strings.Split(version, ".")
	values := make([]uint64, len(comps))
	for i, comp := range comps {
		v, err := strconv.ParseUint(comp, 10, 64)
		if err != nil {
			// pre-release or malformed, leave it to the constraint parser
			return "^" + version
		}
		values[i] = v
	}

	bump := -1
	for i, v := range values {
		if v != 0 {
			bump = i
			break
		}
	}
	if bump == -1 {
		if len(values) >= 3 {
			return "=" + version
		}
		bump = len(values) - 1
	}

	upper := make([]string, bump+1)
	for i := 0; i < bump; i++ {
		upper[i] = comps[i]
	}
	upper[bump] = strconv.FormatUint(values[bump]+1, 10)

	return fmt.Sprintf(">=%s, <%s", padToRelease(comps), padToRelease(upper))
}

// padToRelease fills missing components with zeros, e.g. ["2"] -> "2.0.0".
func padToRelease(comps []string) string {
	padded := make([]string, 0, 3)
	padded = append(padded, comps...)
	for len(padded) < 3 {
		padded = append(padded, "0")
	}
	return strings.Join(padded, ".")
}
