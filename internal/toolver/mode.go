package toolver

import (
	"fmt"
	"strings"
)

// RollForwardMode is the policy governing which installed version may
// substitute for an absent requested version.
type RollForwardMode int

const (
	// Disable accepts only an exact match.
	Disable RollForwardMode = iota
	// Patch rolls to the highest patch within the requested feature band.
	Patch
	// LatestPatch selects the highest installed patch of the requested band.
	LatestPatch
	// Feature rolls to the nearest feature band within the requested
	// major.minor when the requested band is absent.
	Feature
	// LatestFeature selects the highest band/patch within the requested
	// major.minor.
	LatestFeature
	// Minor rolls to the nearest minor within the requested major.
	Minor
	// LatestMinor selects the highest version within the requested major.
	LatestMinor
	// Major rolls to the nearest higher major when needed.
	Major
	// LatestMajor selects the highest installed version outright.
	LatestMajor
)

var modeNames = map[RollForwardMode]string{
	Disable:       "disable",
	Patch:         "patch",
	LatestPatch:   "latestPatch",
	Feature:       "feature",
	LatestFeature: "latestFeature",
	Minor:         "minor",
	LatestMinor:   "latestMinor",
	Major:         "major",
	LatestMajor:   "latestMajor",
}

func (m RollForwardMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("rollForwardMode(%d)", int(m))
}

// IsLatest reports whether the mode selects the highest qualifying version
// instead of the nearest one.
func (m RollForwardMode) IsLatest() bool {
	switch m {
	case LatestPatch, LatestFeature, LatestMinor, LatestMajor:
		return true
	default:
		return false
	}
}

// RollForwardModes lists every mode in canonical spelling, for flag help
// and validation messages.
func RollForwardModes() []string {
	return []string{
		"disable", "patch", "latestPatch", "feature", "latestFeature",
		"minor", "latestMinor", "major", "latestMajor",
	}
}

// ParseRollForward parses a mode name case-insensitively.
func ParseRollForward(s string) (RollForwardMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return Disable, fmt.Errorf("unknown roll-forward mode %q (one of %s)", s, strings.Join(RollForwardModes(), ", "))
}

// ParseLegacyRollForward translates the retired integer policy
// rollForwardOnNoCandidate into the current enumeration: 0 disables
// rolling, 1 allows the nearest minor, 2 the nearest major.
func ParseLegacyRollForward(n int) (RollForwardMode, error) {
	switch n {
	case 0:
		return Disable, nil
	case 1:
		return Minor, nil
	case 2:
		return Major, nil
	default:
		return Disable, fmt.Errorf("unknown legacy roll-forward policy %d (0, 1 or 2)", n)
	}
}
