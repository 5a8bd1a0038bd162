package config

import (
	"fmt"
	"strconv"
)

// Environment variable names. The legacy candidate variable is kept for
// compatibility with pre-policy installations and is mutually exclusive
// with the current one.
const (
	EnvVersion         = "ROLLFWD_VERSION"
	EnvRollForward     = "ROLLFWD_ROLL_FORWARD"
	EnvLegacyCandidate = "ROLLFWD_ROLL_FORWARD_ON_NO_CANDIDATE"
	EnvAllowPrerelease = "ROLLFWD_ALLOW_PRERELEASE"
)

// LookupFunc reports an environment variable and whether it was set.
// The CLI snapshots os.LookupEnv once at startup; tests inject maps. The
// resolver itself never reads the process environment.
type LookupFunc func(key string) (string, bool)

// MapLookup adapts a plain map to a LookupFunc.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// LoadEnv builds the environment layer from an explicit lookup.
func LoadEnv(lookup LookupFunc) (Layer, error) {
	layer := Layer{Name: LayerEnv}

	if s, ok := lookup(EnvVersion); ok {
		v, err := version(LayerEnv, s)
		if err != nil {
			return layer, err
		}
		layer.Version = v
	}

	current, _ := lookup(EnvRollForward)
	var legacy *int
	if s, ok := lookup(EnvLegacyCandidate); ok {
		n, err := strconv.Atoi(s)
		if err != nil {
			return layer, fmt.Errorf("%s: %s is not an integer policy: %q", LayerEnv, EnvLegacyCandidate, s)
		}
		legacy = &n
	}
	m, err := mode(LayerEnv, current, legacy)
	if err != nil {
		return layer, err
	}
	layer.Mode = m

	if s, ok := lookup(EnvAllowPrerelease); ok {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return layer, fmt.Errorf("%s: %s is not a boolean: %q", LayerEnv, EnvAllowPrerelease, s)
		}
		layer.AllowPrerelease = &b
	}

	return layer, nil
}
