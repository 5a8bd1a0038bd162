// Package toolver implements the four-part, non-semver version numbers used
// by toolchain components: major.minor.BPP[.setpatch][-prerelease], where the
// third numeric component folds a feature band and a patch level together
// (2.1.503 is patch 3 of the 2.1.5xx band). It provides parsing, a total
// order, feature-band grouping, and the roll-forward policy enumeration.
package toolver

import (
	"fmt"
	"strconv"
	"strings"
)

// bandRadix is the divisor splitting the combined band+patch component:
// band = bpp / bandRadix, patch = bpp % bandRadix.
const bandRadix = 100

// Version is a parsed toolchain component version.
//
// SetPatch is only meaningful for workload sets, whose versions carry a
// fourth numeric component (e.g. 8.0.200.1); it is nil for every other
// component kind.
type Version struct {
	Major, Minor, Band, Patch uint64
	SetPatch                  *uint64
	Prerelease                string
}

// ParseError reports a version string that could not be parsed. Parsing
// fails closed: a malformed component never truncates or defaults.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// Parse parses a version of the form M[.m[.BPP[.S]]][-prerelease].
// Missing trailing numeric parts are zero; anything else is a *ParseError.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, &ParseError{Input: s, Reason: "empty string"}
	}

	numeric, prerelease, _ := strings.Cut(s, "-")
	if strings.HasPrefix(s, "-") || (strings.Contains(s, "-") && prerelease == "") {
		return Version{}, &ParseError{Input: s, Reason: "empty prerelease tag"}
	}

	parts := strings.Split(numeric, ".")
	if len(parts) > 4 {
		return Version{}, &ParseError{Input: s, Reason: "more than four numeric components"}
	}

	nums := make([]uint64, len(parts))
	for i, p := range parts {
		if p == "" {
			return Version{}, &ParseError{Input: s, Reason: "empty numeric component"}
		}
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, &ParseError{Input: s, Reason: fmt.Sprintf("component %q is not a number", p)}
		}
		nums[i] = n
	}

	v := Version{Prerelease: prerelease}
	v.Major = nums[0]
	if len(nums) > 1 {
		v.Minor = nums[1]
	}
	if len(nums) > 2 {
		v.Band = nums[2] / bandRadix
		v.Patch = nums[2] % bandRadix
	}
	if len(nums) > 3 {
		sp := nums[3]
		v.SetPatch = &sp
	}
	return v, nil
}

// MustParse parses s and panics on error. For tests and constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String renders the canonical form, folding band and patch back into the
// third component.
func (v Version) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d%02d", v.Major, v.Minor, v.Band, v.Patch)
	if v.SetPatch != nil {
		fmt.Fprintf(&b, ".%d", *v.SetPatch)
	}
	if v.Prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.Prerelease)
	}
	return b.String()
}

// IsPrerelease reports whether the version carries a prerelease tag.
func (v Version) IsPrerelease() bool { return v.Prerelease != "" }

// FeatureBand is the (major, minor, band) prefix grouping all patches of
// the same release train.
type FeatureBand struct {
	Major, Minor, Band uint64
}

func (b FeatureBand) String() string {
	return fmt.Sprintf("%d.%d.%dxx", b.Major, b.Minor, b.Band)
}

// FeatureBand returns the version's band prefix.
func (v Version) FeatureBand() FeatureBand {
	return FeatureBand{Major: v.Major, Minor: v.Minor, Band: v.Band}
}

// SameBand reports whether v and o belong to the same feature band.
func (v Version) SameBand(o Version) bool {
	return v.FeatureBand() == o.FeatureBand()
}

// Compare orders versions with the default prerelease comparer.
// It returns -1, 0 or +1.
func (v Version) Compare(o Version) int {
	return v.CompareBy(o, DefaultPrereleaseComparer)
}

// CompareBy orders versions lexicographically over the numeric tuple, with
// prerelease versions sorting below the release carrying the same numeric
// prefix. The relative order of two prerelease tags is delegated to cmp,
// because that order is product-specific.
func (v Version) CompareBy(o Version, cmp PrereleaseComparer) int {
	if c := compareUint(v.Major, o.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, o.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Band, o.Band); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, o.Patch); c != 0 {
		return c
	}
	if c := compareUint(setPatch(v), setPatch(o)); c != 0 {
		return c
	}
	switch {
	case v.Prerelease == "" && o.Prerelease == "":
		return 0
	case v.Prerelease == "":
		return 1
	case o.Prerelease == "":
		return -1
	default:
		return cmp(v.Prerelease, o.Prerelease)
	}
}

func setPatch(v Version) uint64 {
	if v.SetPatch == nil {
		return 0
	}
	return *v.SetPatch
}

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
