// Package config merges the resolution request from its three layered
// sources: the persisted scope configuration file, the process environment,
// and command-line flags. The merge is one deterministic function over an
// ordered list of named layers; nothing in here touches the catalog, so
// configuration conflicts surface before any install-root I/O happens.
package config

import (
	"fmt"

	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/toolver"
)

// Layer names in precedence order (lowest first).
const (
	LayerFile = "config file"
	LayerEnv  = "environment"
	LayerCLI  = "command line"
)

// Layer is one configuration source. Unset fields are nil and leave the
// lower layers' values in place: a version-only override keeps a lower
// layer's policy ("policy flows up") and a policy-only override keeps a
// lower layer's floor version.
type Layer struct {
	Name            string
	Version         *toolver.Version
	Mode            *toolver.RollForwardMode
	AllowPrerelease *bool
}

// ConflictError reports contradictory settings, either within one layer
// (legacy and current spelling of the same setting) or after the merge
// (a non-default policy with no floor version anywhere).
type ConflictError struct {
	Layer  string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Layer == "" {
		return "conflicting configuration: " + e.Reason
	}
	return fmt.Sprintf("conflicting configuration in %s: %s", e.Layer, e.Reason)
}

// Merge folds the layers, lowest precedence first, into one effective
// request. Defaults: latestPatch when a floor version is present,
// latestMajor (over the whole catalog) when none is; prereleases allowed.
func Merge(layers ...Layer) (engine.Request, error) {
	var merged Layer
	for _, l := range layers {
		if l.Version != nil {
			merged.Version = l.Version
		}
		if l.Mode != nil {
			merged.Mode = l.Mode
		}
		if l.AllowPrerelease != nil {
			merged.AllowPrerelease = l.AllowPrerelease
		}
	}

	req := engine.Request{AllowPrerelease: true}
	if merged.AllowPrerelease != nil {
		req.AllowPrerelease = *merged.AllowPrerelease
	}
	req.Floor = merged.Version

	switch {
	case merged.Mode == nil && merged.Version == nil:
		req.Mode = toolver.LatestMajor
	case merged.Mode == nil:
		req.Mode = toolver.LatestPatch
	default:
		req.Mode = *merged.Mode
	}

	// A policy without a floor is only valid when it is the explicit
	// spelling of the no-version "latest available" default.
	if merged.Version == nil && merged.Mode != nil && *merged.Mode != toolver.LatestMajor {
		return engine.Request{}, &ConflictError{
			Reason: fmt.Sprintf("roll-forward %s set without a floor version; only latestMajor is valid without one", *merged.Mode),
		}
	}

	return req, nil
}

// mode resolves the current and legacy spellings of the roll-forward
// setting for one layer, failing when both are present.
func mode(layerName, current string, legacy *int) (*toolver.RollForwardMode, error) {
	if current != "" && legacy != nil {
		return nil, &ConflictError{
			Layer:  layerName,
			Reason: "rollForward and rollForwardOnNoCandidate are mutually exclusive",
		}
	}
	if current != "" {
		m, err := toolver.ParseRollForward(current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", layerName, err)
		}
		return &m, nil
	}
	if legacy != nil {
		m, err := toolver.ParseLegacyRollForward(*legacy)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", layerName, err)
		}
		return &m, nil
	}
	return nil, nil
}

// version parses an optional version string for one layer.
func version(layerName, s string) (*toolver.Version, error) {
	if s == "" {
		return nil, nil
	}
	v, err := toolver.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layerName, err)
	}
	return &v, nil
}
