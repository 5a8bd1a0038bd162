package toolver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// PrereleaseComparer decides the relative order of two prerelease tags for
// versions sharing the same numeric prefix. It returns a negative value if
// a sorts before b, zero if they rank equal, and a positive value otherwise.
//
// The cross-vendor order of tags like "preview.3" vs "rc.1" is a product
// decision, so callers that need a different convention inject their own.
type PrereleaseComparer func(a, b string) int

// DefaultPrereleaseComparer orders tags by semver prerelease rules:
// dot-separated identifiers compared numerically when both are numbers and
// lexically otherwise, shorter tag first on a shared prefix. Under these
// rules "preview" < "rc" and "rc.1" < "rc.2" < "rc.10".
func DefaultPrereleaseComparer(a, b string) int {
	av, aerr := semver.NewVersion("0.0.0-" + a)
	bv, berr := semver.NewVersion("0.0.0-" + b)
	if aerr != nil || berr != nil {
		// Tags semver cannot digest still need a stable order.
		return strings.Compare(a, b)
	}
	return av.Compare(bv)
}
