// Package gc computes and removes installed versions that nothing
// references anymore.
//
// A version is a root when a pin marker references it, when it is what the
// default no-pin policy would select for its feature band (the highest
// complete install in the band), or when it carries the baseline marker.
// Everything else is collectible. Bands are processed independently:
// reference counts never leak across band boundaries except through the
// explicit markers the pin store writes.
package gc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/locking"
	"rollfwd.dev/rollfwd/internal/pin"
	"rollfwd.dev/rollfwd/internal/toolver"
)

// Collector plans and executes garbage collection over one install root.
type Collector struct {
	catalog *catalog.Catalog
	pins    *pin.Store
	log     *slog.Logger
	lock    locking.Options
}

// New builds a collector. The pin store must point at the same install
// root the catalog scans.
func New(cat *catalog.Catalog, pins *pin.Store, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{catalog: cat, pins: pins, log: log}
}

// Plan is the outcome of a scan: what would be removed and why the rest
// stays.
type Plan struct {
	Collectible []catalog.Install
	Kept        []KeptInstall
}

// KeptInstall pairs a surviving install with the reason it is a root.
type KeptInstall struct {
	Install catalog.Install
	Reason  string
}

// Root reasons, stable strings for log and table output.
const (
	ReasonPinned   = "pinned"
	ReasonLatest   = "latest in band"
	ReasonBaseline = "baseline"
)

// Result reports one executed pass.
type Result struct {
	Removed []catalog.Install
	// Skipped lists installs that turned into roots or got locked between
	// the scan and the delete; they are left alone, not failed on.
	Skipped []catalog.Install
}

// Plan scans the catalog and classifies every install. It performs no
// writes.
func (c *Collector) Plan(ctx context.Context) (*Plan, error) {
	all, err := c.catalog.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	for _, kind := range catalog.Kinds() {
		for _, group := range groupByBand(all[kind]) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := c.classify(group, plan); err != nil {
				return nil, err
			}
		}
	}
	return plan, nil
}

// bandGroup is the GC scope: one kind (and manifest id) within one band.
type bandGroup struct {
	band     toolver.FeatureBand
	installs []catalog.Install
}

// markerBand is the band directory whose markers reference in. Workload
// manifests are keyed by the SDK band that installed them, which is also
// where the pin store writes their markers; every other kind is keyed by
// its own version's band.
func markerBand(in catalog.Install) toolver.FeatureBand {
	if in.Kind == catalog.KindWorkloadManifest && in.OwningBand != nil {
		return *in.OwningBand
	}
	return in.Version.FeatureBand()
}

// groupByBand splits installs into per-band groups. Workload manifests
// additionally group per manifest id, since each id has its own "latest".
func groupByBand(installs []catalog.Install) []bandGroup {
	index := make(map[string]int)
	var groups []bandGroup
	for _, in := range installs {
		band := markerBand(in)
		key := in.ManifestID + "@" + band.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, bandGroup{band: band})
		}
		groups[i].installs = append(groups[i].installs, in)
	}
	return groups
}

func (c *Collector) classify(group bandGroup, plan *Plan) error {
	markers, err := c.pins.MarkersForBand(group.band)
	if err != nil {
		return err
	}

	latest := latestOf(group.installs)
	for _, in := range group.installs {
		switch {
		case in.Baseline:
			plan.Kept = append(plan.Kept, KeptInstall{Install: in, Reason: ReasonBaseline})
		case referenced(markers, in):
			plan.Kept = append(plan.Kept, KeptInstall{Install: in, Reason: ReasonPinned})
		case in.Location == latest.Location:
			plan.Kept = append(plan.Kept, KeptInstall{Install: in, Reason: ReasonLatest})
		default:
			plan.Collectible = append(plan.Collectible, in)
		}
	}
	return nil
}

// latestOf is the install the default no-pin policy would select for the
// band: the highest complete version.
func latestOf(installs []catalog.Install) catalog.Install {
	best := installs[0]
	for _, in := range installs[1:] {
		if in.Version.Compare(best.Version) > 0 {
			best = in
		}
	}
	return best
}

func referenced(markers []pin.Marker, in catalog.Install) bool {
	for _, m := range markers {
		if m.Kind != in.Kind {
			continue
		}
		if m.ManifestID != in.ManifestID {
			continue
		}
		if m.Version.Compare(in.Version) == 0 {
			return true
		}
	}
	return false
}

// Run executes a plan. Each deletion takes the per-install advisory lock
// and re-checks the band's markers immediately before removing anything: a
// version can transition from collectible to root (a new pin) between the
// scan and the delete. Races fail soft: the install is skipped and the
// pass continues. Running over an already-clean tree removes nothing and
// is not an error.
func (c *Collector) Run(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{}
	for _, in := range plan.Collectible {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		removed, err := c.remove(ctx, in)
		if err != nil {
			return res, err
		}
		if removed {
			res.Removed = append(res.Removed, in)
		} else {
			res.Skipped = append(res.Skipped, in)
		}
	}
	return res, nil
}

func (c *Collector) remove(ctx context.Context, in catalog.Install) (bool, error) {
	if _, err := os.Lstat(in.Location); errors.Is(err, os.ErrNotExist) {
		// Someone else collected it first.
		return false, nil
	}

	held, err := locking.TryAcquire(ctx, in.Location+".lock")
	if err != nil {
		var cerr *locking.ContentionError
		if errors.As(err, &cerr) {
			c.log.Info("skipping locked install", "kind", in.Kind, "version", in.Version.String())
			return false, nil
		}
		return false, err
	}
	defer func() { _ = held.Unlock() }()

	// Double-check: a pin may have appeared since the scan.
	markers, err := c.pins.MarkersForBand(markerBand(in))
	if err != nil {
		return false, err
	}
	if referenced(markers, in) {
		c.log.Info("skipping freshly pinned install", "kind", in.Kind, "version", in.Version.String())
		return false, nil
	}

	// Drop the completeness sentinel first so concurrent catalog reads
	// treat the install as absent while the tree goes away.
	if err := os.Remove(filepath.Join(in.Location, catalog.CompleteMarker)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("removing %s %s: %w", in.Kind, in.Version, err)
	}
	if err := os.RemoveAll(in.Location); err != nil {
		return false, fmt.Errorf("removing %s %s: %w", in.Kind, in.Version, err)
	}
	c.log.Debug("removed install", "kind", in.Kind, "version", in.Version.String(), "location", in.Location)
	return true, nil
}
