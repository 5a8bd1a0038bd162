// Package catalog enumerates installed toolchain component versions from
// one or more install roots, producing ordered, de-duplicated, strongly
// typed install records.
//
// Layout under each root:
//
//	<root>/runtime/<version>/
//	<root>/sdk/<version>/
//	<root>/workload-manifests/<band>/<id>/<version>/
//	<root>/workload-sets/<band>/<version>/workloadset.yaml
//
// An install directory only counts once the installer has written the
// ".complete" sentinel as its last step; a directory without it is in
// transit (being installed or removed by another process) and is treated
// as absent. A "baseline" marker file flags an install that garbage
// collection must never remove.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"rollfwd.dev/rollfwd/internal/toolver"
)

const (
	// CompleteMarker is written last by installers; its absence marks an
	// install directory that must not be consumed.
	CompleteMarker = ".complete"
	// BaselineMarker flags a non-collectible baseline install.
	BaselineMarker = "baseline"
)

// Kind identifies a component kind.
type Kind string

const (
	KindRuntime          Kind = "runtime"
	KindSDK              Kind = "sdk"
	KindWorkloadManifest Kind = "workload-manifest"
	KindWorkloadSet      Kind = "workload-set"
)

// Kinds lists every component kind.
func Kinds() []Kind {
	return []Kind{KindRuntime, KindSDK, KindWorkloadManifest, KindWorkloadSet}
}

// ParseKind validates a user-supplied kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown component kind %q (one of runtime, sdk, workload-manifest, workload-set)", s)
}

// dir returns the directory name a kind is installed under.
func (k Kind) dir() string {
	switch k {
	case KindWorkloadManifest:
		return "workload-manifests"
	case KindWorkloadSet:
		return "workload-sets"
	default:
		return string(k)
	}
}

// Install is one installed version of a component.
type Install struct {
	Kind    Kind
	Version toolver.Version
	// Location is the install directory.
	Location string
	// ManifestID identifies the manifest for workload-manifest installs.
	ManifestID string
	// OwningBand is the SDK feature band a workload manifest or set was
	// installed by. Manifests installed by one band remain usable by later
	// bands, so this is carried separately from the version itself.
	OwningBand *toolver.FeatureBand
	// Baseline marks a non-collectible baseline install.
	Baseline bool
}

// ReadError reports an I/O failure while enumerating installs. It is
// distinct from an empty catalog: callers can always tell "no versions"
// from "could not check".
type ReadError struct {
	Kind Kind
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading %s catalog at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IntegrityError reports two physically distinct installations claiming
// the same logical version. It is never auto-resolved.
type IntegrityError struct {
	Kind      Kind
	Version   toolver.Version
	Locations []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s version %s is claimed by multiple installations: %v", e.Kind, e.Version, e.Locations)
}

// Catalog enumerates installs across an ordered list of install roots.
type Catalog struct {
	roots []string
	log   *slog.Logger
}

// New builds a catalog over the given roots. Roots listed twice collapse.
func New(roots ...string) *Catalog {
	seen := make(map[string]bool, len(roots))
	uniq := make([]string, 0, len(roots))
	for _, r := range roots {
		r = filepath.Clean(r)
		if !seen[r] {
			seen[r] = true
			uniq = append(uniq, r)
		}
	}
	return &Catalog{roots: uniq, log: slog.Default()}
}

// List enumerates installed versions of one kind across all roots, sorted
// ascending. A missing kind directory yields an empty list; any other I/O
// failure yields a *ReadError.
func (c *Catalog) List(ctx context.Context, kind Kind) ([]Install, error) {
	var installs []Install
	seen := make(map[string]*Install)

	for _, root := range c.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := c.listRoot(root, kind)
		if err != nil {
			return nil, err
		}
		for _, in := range found {
			key := string(in.Kind) + "/" + in.ManifestID + "/" + versionKey(in.Version)
			if prev, ok := seen[key]; ok {
				if prev.Location == in.Location {
					continue
				}
				return nil, &IntegrityError{
					Kind:      kind,
					Version:   in.Version,
					Locations: []string{prev.Location, in.Location},
				}
			}
			installs = append(installs, in)
			seen[key] = &installs[len(installs)-1]
		}
	}

	sortInstalls(installs)
	return installs, nil
}

// versionKey renders a version so that forms equal under Compare collide:
// an absent set patch reads as 0, making "8.0.200" and "8.0.200.0" the
// same logical version.
func versionKey(v toolver.Version) string {
	var sp uint64
	if v.SetPatch != nil {
		sp = *v.SetPatch
	}
	return fmt.Sprintf("%d.%d.%d.%d.%d-%s", v.Major, v.Minor, v.Band, v.Patch, sp, v.Prerelease)
}

func sortInstalls(installs []Install) {
	sort.Slice(installs, func(i, j int) bool {
		if installs[i].ManifestID != installs[j].ManifestID {
			return installs[i].ManifestID < installs[j].ManifestID
		}
		return installs[i].Version.Compare(installs[j].Version) < 0
	})
}

// ListAll enumerates every kind, fanning the scan out per kind.
func (c *Catalog) ListAll(ctx context.Context) (map[Kind][]Install, error) {
	results := make([]([]Install), len(Kinds()))
	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds() {
		i, kind := i, kind
		g.Go(func() error {
			installs, err := c.List(ctx, kind)
			if err != nil {
				return err
			}
			results[i] = installs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := make(map[Kind][]Install, len(Kinds()))
	for i, kind := range Kinds() {
		all[kind] = results[i]
	}
	return all, nil
}

// Versions projects installs onto their bare versions, ready for the
// selection engine.
func Versions(installs []Install) []toolver.Version {
	vs := make([]toolver.Version, len(installs))
	for i, in := range installs {
		vs[i] = in.Version
	}
	return vs
}

func (c *Catalog) listRoot(root string, kind Kind) ([]Install, error) {
	base := filepath.Join(root, kind.dir())
	switch kind {
	case KindWorkloadManifest:
		return c.listBanded(base, kind, true)
	case KindWorkloadSet:
		return c.listBanded(base, kind, false)
	default:
		return c.listVersionDirs(base, kind, "", nil)
	}
}

// listBanded walks <base>/<band>/... where each band directory holds either
// version directories (workload sets) or <id>/<version> trees (manifests).
func (c *Catalog) listBanded(base string, kind Kind, withID bool) ([]Install, error) {
	bands, err := readDirTolerant(base, kind)
	if err != nil || bands == nil {
		return nil, err
	}

	var installs []Install
	for _, bandEntry := range bands {
		if !bandEntry.IsDir() {
			continue
		}
		bandVer, err := toolver.Parse(bandEntry.Name())
		if err != nil {
			c.log.Debug("skipping non-band directory in catalog", "path", filepath.Join(base, bandEntry.Name()))
			continue
		}
		band := bandVer.FeatureBand()
		bandDir := filepath.Join(base, bandEntry.Name())

		if !withID {
			found, err := c.listVersionDirs(bandDir, kind, "", &band)
			if err != nil {
				return nil, err
			}
			installs = append(installs, found...)
			continue
		}

		ids, err := readDirTolerant(bandDir, kind)
		if err != nil || ids == nil {
			if err != nil {
				return nil, err
			}
			continue
		}
		for _, idEntry := range ids {
			if !idEntry.IsDir() {
				continue
			}
			found, err := c.listVersionDirs(filepath.Join(bandDir, idEntry.Name()), kind, idEntry.Name(), &band)
			if err != nil {
				return nil, err
			}
			installs = append(installs, found...)
		}
	}
	return installs, nil
}

func (c *Catalog) listVersionDirs(dir string, kind Kind, manifestID string, band *toolver.FeatureBand) ([]Install, error) {
	entries, err := readDirTolerant(dir, kind)
	if err != nil || entries == nil {
		return nil, err
	}

	var installs []Install
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := toolver.Parse(entry.Name())
		if err != nil {
			c.log.Debug("skipping non-version directory in catalog", "path", filepath.Join(dir, entry.Name()))
			continue
		}
		location := filepath.Join(dir, entry.Name())
		complete, err := markerPresent(filepath.Join(location, CompleteMarker))
		if err != nil {
			return nil, &ReadError{Kind: kind, Path: location, Err: err}
		}
		if !complete {
			// Another process is mid-install or mid-remove; the directory
			// does not exist as far as this scan is concerned.
			continue
		}
		baseline, err := markerPresent(filepath.Join(location, BaselineMarker))
		if err != nil {
			return nil, &ReadError{Kind: kind, Path: location, Err: err}
		}
		installs = append(installs, Install{
			Kind:       kind,
			Version:    v,
			Location:   location,
			ManifestID: manifestID,
			OwningBand: band,
			Baseline:   baseline,
		})
	}
	return installs, nil
}

// readDirTolerant reads a directory, mapping "does not exist" to a nil
// listing (an empty catalog, not an error) and anything else to *ReadError.
func readDirTolerant(dir string, kind Kind) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &ReadError{Kind: kind, Path: dir, Err: err}
	}
	if entries == nil {
		entries = []fs.DirEntry{}
	}
	return entries, nil
}

func markerPresent(path string) (bool, error) {
	_, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
