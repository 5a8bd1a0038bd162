package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/config"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/locking"
	"rollfwd.dev/rollfwd/internal/toolver"
)

func TestExitCode(t *testing.T) {
	requested := toolver.MustParse("8.0.100")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: ExitGeneric},
		{
			name: "no candidate",
			err:  &engine.NoCandidateError{Requested: &requested, Mode: toolver.LatestPatch},
			want: ExitNoCandidate,
		},
		{
			name: "config conflict",
			err:  &config.ConflictError{Layer: "file", Reason: "both spellings set"},
			want: ExitConfigConflict,
		},
		{
			name: "catalog integrity",
			err:  &catalog.IntegrityError{Kind: catalog.KindSDK, Version: requested},
			want: ExitCatalogIntegrity,
		},
		{
			name: "lock contention",
			err:  &locking.ContentionError{Path: "/tmp/x.lock", Attempts: 5},
			want: ExitLockContention,
		},
		{
			name: "wrapped no candidate",
			err:  fmt.Errorf("resolving sdk: %w", &engine.NoCandidateError{Requested: &requested, Mode: toolver.Disable}),
			want: ExitNoCandidate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
