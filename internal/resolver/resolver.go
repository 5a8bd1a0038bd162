// Package resolver runs the full selection pipeline for one invocation:
// effective request in, exactly one version out. A pinned scope
// short-circuits discovery entirely; anything else goes through the
// catalog and the selection engine.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/pin"
	"rollfwd.dev/rollfwd/internal/toolver"
)

// Resolver wires the catalog, the pin store, and the engine options
// together for one install-root set.
type Resolver struct {
	Catalog *catalog.Catalog
	Pins    *pin.Store
	Engine  engine.Options
	Log     *slog.Logger
}

// Outcome is one successful resolution.
type Outcome struct {
	Kind    catalog.Kind
	Version toolver.Version
	// Pinned reports that the version came from the scope's pin and the
	// catalog was not consulted for selection.
	Pinned bool
	// Request is the effective request the selection ran under; zero when
	// a pin short-circuited it.
	Request engine.Request
}

// Resolve selects exactly one installed version of kind for scope.
func (r *Resolver) Resolve(ctx context.Context, kind catalog.Kind, req engine.Request, scope string) (Outcome, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}

	rec, err := r.Pins.Get(scope)
	if err != nil {
		return Outcome{}, err
	}
	if rec != nil && rec.Kind == kind {
		v, err := pinnedVersion(rec)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.checkInstalled(ctx, kind, v); err != nil {
			return Outcome{}, err
		}
		log.Debug("resolution satisfied by pin", "kind", string(kind), "version", v.String(), "scope", scope)
		return Outcome{Kind: kind, Version: v, Pinned: true}, nil
	}

	installs, err := r.Catalog.List(ctx, kind)
	if err != nil {
		return Outcome{}, err
	}
	selected, err := engine.Select(req, catalog.Versions(installs), r.Engine)
	if err != nil {
		return Outcome{}, err
	}
	log.Debug("resolution selected from catalog", "kind", string(kind), "version", selected.String(), "mode", req.Mode.String())
	return Outcome{Kind: kind, Version: selected, Request: req}, nil
}

// checkInstalled confirms a pinned version still exists on disk. A pin to
// a removed install is a no-candidate failure the user can recover from
// (reinstall, or clear the pin), not a pin-store error.
func (r *Resolver) checkInstalled(ctx context.Context, kind catalog.Kind, v toolver.Version) error {
	installs, err := r.Catalog.List(ctx, kind)
	if err != nil {
		return err
	}
	for _, in := range installs {
		if in.Version.Compare(v) == 0 {
			return nil
		}
	}
	return &engine.NoCandidateError{Requested: &v, Mode: toolver.Disable}
}

func pinnedVersion(rec *pin.Record) (toolver.Version, error) {
	switch {
	case rec.Version != nil:
		return *rec.Version, nil
	case rec.WorkloadSet != nil:
		return *rec.WorkloadSet, nil
	default:
		return toolver.Version{}, fmt.Errorf("pin for %s pins nothing", rec.SourceScope)
	}
}
