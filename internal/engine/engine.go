// Package engine implements roll-forward version selection. Selection is a
// pure function over an in-memory candidate list: the engine performs no
// I/O, keeps no state between calls, and has no side effects on failure.
package engine

import (
	"fmt"

	"rollfwd.dev/rollfwd/internal/toolver"
)

// Request is the effective resolution request after configuration merging.
type Request struct {
	// Floor is the requested minimum version. A nil Floor means "no floor";
	// only latestMajor is valid without one, every other mode bounds the
	// search to the floor's tier.
	Floor *toolver.Version
	// Mode is the active roll-forward policy.
	Mode toolver.RollForwardMode
	// AllowPrerelease controls whether prerelease versions are candidates.
	AllowPrerelease bool
}

// Options carries the injectable pieces of the selection algorithm.
type Options struct {
	// Prerelease orders prerelease tags; nil means
	// toolver.DefaultPrereleaseComparer.
	Prerelease toolver.PrereleaseComparer
}

// NoCandidateError reports that no installed version satisfies the request.
// It is always recoverable by the caller: install the missing version,
// relax the policy, or pin an older one.
type NoCandidateError struct {
	// Requested is the floor version, nil for no-floor requests.
	Requested *toolver.Version
	// Mode is the policy that was in effect.
	Mode toolver.RollForwardMode
	// Nearest, when non-nil, is the version a latestMajor request above the
	// same floor would have chosen. Callers use it to suggest a more
	// permissive policy.
	Nearest *toolver.Version
}

func (e *NoCandidateError) Error() string {
	req := "latest"
	if e.Requested != nil {
		req = e.Requested.String()
	}
	msg := fmt.Sprintf("no installed version satisfies %s with roll-forward %s", req, e.Mode)
	if e.Nearest != nil {
		msg += fmt.Sprintf(" (nearest available: %s, try --roll-forward latestMajor)", e.Nearest)
	}
	return msg
}

// Select picks exactly one version from installed, or fails with
// *NoCandidateError. The same (installed, req) pair always yields the same
// result.
func Select(req Request, installed []toolver.Version, opts Options) (toolver.Version, error) {
	cmp := opts.Prerelease
	if cmp == nil {
		cmp = toolver.DefaultPrereleaseComparer
	}

	if req.Floor == nil && req.Mode != toolver.LatestMajor {
		return toolver.Version{}, fmt.Errorf("roll-forward %s requires a floor version", req.Mode)
	}

	// Candidate narrowing: prerelease, floor, tier.
	candidates := make([]toolver.Version, 0, len(installed))
	for _, v := range installed {
		if !req.AllowPrerelease && v.IsPrerelease() {
			continue
		}
		if req.Floor != nil {
			if v.CompareBy(*req.Floor, cmp) < 0 {
				continue
			}
			if !inTier(v, *req.Floor, req.Mode) {
				continue
			}
		}
		candidates = append(candidates, v)
	}

	if req.Mode == toolver.Disable {
		for _, v := range candidates {
			if v.CompareBy(*req.Floor, cmp) == 0 {
				return v, nil
			}
		}
		return toolver.Version{}, noCandidate(req, installed, cmp)
	}

	if len(candidates) == 0 {
		return toolver.Version{}, noCandidate(req, installed, cmp)
	}

	if req.Mode.IsLatest() {
		return maxOf(candidates, cmp), nil
	}

	// Nearest modes. A candidate in the floor's own feature band always
	// wins, and the highest in-band patch beats an exact match.
	inBand := candidates[:0:0]
	for _, v := range candidates {
		if v.SameBand(*req.Floor) {
			inBand = append(inBand, v)
		}
	}
	if len(inBand) > 0 {
		return maxOf(inBand, cmp), nil
	}
	if req.Mode == toolver.Patch {
		// Patch never steps out of the requested band; the tier filter
		// already guarantees candidates share it, so this is unreachable,
		// kept as a guard against future filter changes.
		return toolver.Version{}, noCandidate(req, installed, cmp)
	}

	// Step up to the lowest qualifying band and take its highest patch.
	best := candidates[0].FeatureBand()
	for _, v := range candidates[1:] {
		if bandLess(v.FeatureBand(), best) {
			best = v.FeatureBand()
		}
	}
	chosen := candidates[:0:0]
	for _, v := range candidates {
		if v.FeatureBand() == best {
			chosen = append(chosen, v)
		}
	}
	return maxOf(chosen, cmp), nil
}

// inTier applies the mode's band filter. Latest modes are bounded to the
// same tier as their nearest counterparts; only the selection rule differs.
func inTier(v, floor toolver.Version, mode toolver.RollForwardMode) bool {
	switch mode {
	case toolver.Patch, toolver.LatestPatch:
		return v.SameBand(floor)
	case toolver.Feature, toolver.LatestFeature:
		return v.Major == floor.Major && v.Minor == floor.Minor
	case toolver.Minor, toolver.LatestMinor:
		return v.Major == floor.Major
	default:
		return true
	}
}

func bandLess(a, b toolver.FeatureBand) bool {
	if a.Major != b.Major {
		return a.Major < b.Major
	}
	if a.Minor != b.Minor {
		return a.Minor < b.Minor
	}
	return a.Band < b.Band
}

func maxOf(vs []toolver.Version, cmp toolver.PrereleaseComparer) toolver.Version {
	best := vs[0]
	for _, v := range vs[1:] {
		if v.CompareBy(best, cmp) > 0 {
			best = v
		}
	}
	return best
}

// noCandidate builds the failure, probing for the version a latestMajor
// request above the same floor would have found so the caller can hint at
// a more permissive policy.
func noCandidate(req Request, installed []toolver.Version, cmp toolver.PrereleaseComparer) *NoCandidateError {
	err := &NoCandidateError{Requested: req.Floor, Mode: req.Mode}
	var nearest *toolver.Version
	for _, v := range installed {
		if !req.AllowPrerelease && v.IsPrerelease() {
			continue
		}
		if req.Floor != nil && v.CompareBy(*req.Floor, cmp) < 0 {
			continue
		}
		if nearest == nil || v.CompareBy(*nearest, cmp) > 0 {
			vv := v
			nearest = &vv
		}
	}
	// The nearest alternative is only a useful hint when it is not what the
	// failing request already asked for.
	if nearest != nil && req.Mode != toolver.LatestMajor {
		err.Nearest = nearest
	}
	return err
}
