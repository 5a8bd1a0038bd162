package cmd

import (
	"errors"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/config"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/locking"
)

// Process exit codes. Stable by contract: CI systems branch on them.
const (
	// ExitGeneric is any failure without a more specific code.
	ExitGeneric = 1
	// ExitNoCandidate: no installed version satisfies the request.
	ExitNoCandidate = 2
	// ExitConfigConflict: contradictory configuration settings.
	ExitConfigConflict = 3
	// ExitCatalogIntegrity: two installations claim the same version.
	ExitCatalogIntegrity = 4
	// ExitLockContention: shared state stayed locked past the retry bound.
	ExitLockContention = 5
)

// ExitCode maps an error to its documented process exit code.
func ExitCode(err error) int {
	var (
		noCandidate *engine.NoCandidateError
		conflict    *config.ConflictError
		integrity   *catalog.IntegrityError
		contention  *locking.ContentionError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &noCandidate):
		return ExitNoCandidate
	case errors.As(err, &conflict):
		return ExitConfigConflict
	case errors.As(err, &integrity):
		return ExitCatalogIntegrity
	case errors.As(err, &contention):
		return ExitLockContention
	default:
		return ExitGeneric
	}
}
