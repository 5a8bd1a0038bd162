// Package pin persists resolved selections so that subsequent invocations
// reproduce them without re-running discovery.
//
// A pin is one human-editable YAML file per scope directory. Every write
// goes temp-file-then-rename so concurrent readers never observe a torn
// file, and every pin additionally drops a reference marker under the
// install root's metadata tree, keyed by feature band. The markers are the
// explicit cross-band reference counting the garbage collector consumes:
// it never infers references from the scope scan itself.
package pin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	sigsyaml "sigs.k8s.io/yaml"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/locking"
	"rollfwd.dev/rollfwd/internal/toolver"
)

const (
	// FileName is the pin file written into a scope directory.
	FileName = "rollfwd-pin.yaml"
	// markersDir is the per-band reference marker tree under an install root.
	markersDir = "metadata/pins"
)

// Record is a persisted selection for one scope. Exactly one of Version
// and WorkloadSet is set; Manifests optionally pins individual
// out-of-band manifests alongside a workload set.
type Record struct {
	// Kind of the pinned component (runtime, sdk, workload-set).
	Kind catalog.Kind `json:"kind"`
	// Version pins a runtime or SDK version.
	Version *toolver.Version `json:"version,omitempty"`
	// WorkloadSet pins a workload set version.
	WorkloadSet *toolver.Version `json:"workloadSet,omitempty"`
	// Manifests pins individual manifests out of band, id -> version/band.
	Manifests map[string]catalog.ManifestRef `json:"manifests,omitempty"`
	// SourceScope is the scope directory the record was read from. Not
	// serialized; filled in by Get.
	SourceScope string `json:"-"`
}

// pinned returns the primary pinned version.
func (r Record) pinned() (toolver.Version, error) {
	switch {
	case r.Version != nil && r.WorkloadSet != nil:
		return toolver.Version{}, errors.New("pin record sets both version and workloadSet")
	case r.Version != nil:
		return *r.Version, nil
	case r.WorkloadSet != nil:
		return *r.WorkloadSet, nil
	default:
		return toolver.Version{}, errors.New("pin record pins nothing")
	}
}

// Marker is one reference-count entry under metadata/pins/<band>/.
type Marker struct {
	Scope      string          `json:"scope"`
	Kind       catalog.Kind    `json:"kind"`
	Version    toolver.Version `json:"version"`
	ManifestID string          `json:"manifestId,omitempty"`
}

// Store reads and writes pins for scopes against one install root.
type Store struct {
	root string
	lock locking.Options
}

// NewStore builds a store recording markers under root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Get reads the pin for scope. No pin is (nil, nil), never an error:
// callers must be able to distinguish "no pin" from "could not check".
func (s *Store) Get(scope string) (*Record, error) {
	path := filepath.Join(scope, FileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading pin %s: %w", path, err)
	}

	var rec Record
	if err := sigsyaml.UnmarshalStrict(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing pin %s: %w", path, err)
	}
	if _, err := rec.pinned(); err != nil {
		return nil, fmt.Errorf("pin %s: %w", path, err)
	}
	rec.SourceScope = scope
	return &rec, nil
}

// Set atomically replaces the pin for scope and refreshes its reference
// markers. A reader concurrent with Set observes either the old pin or the
// new one, never a partial file.
func (s *Store) Set(ctx context.Context, scope string, rec Record) error {
	primary, err := rec.pinned()
	if err != nil {
		return err
	}

	path := filepath.Join(scope, FileName)
	held, err := locking.Acquire(ctx, path+".lock", s.lock)
	if err != nil {
		return err
	}
	defer func() { _ = held.Unlock() }()

	data, err := sigsyaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding pin for %s: %w", scope, err)
	}

	tmp, err := os.CreateTemp(scope, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing pin for %s: %w", scope, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing pin for %s: %w", scope, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing pin for %s: %w", scope, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing pin for %s: %w", scope, err)
	}

	// Markers for the previous pin of this scope are stale now.
	if err := s.removeMarkers(scope); err != nil {
		return err
	}
	if err := s.writeMarker(Marker{Scope: scope, Kind: rec.Kind, Version: primary}); err != nil {
		return err
	}
	for id, ref := range rec.Manifests {
		m := Marker{Scope: scope, Kind: catalog.KindWorkloadManifest, Version: ref.Version, ManifestID: id}
		if err := s.writeMarkerInBand(m, ref.OwningBand); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the pin for scope along with its markers. Clearing an
// unpinned scope is a no-op. "Update to latest" must Clear, not re-pin:
// "no pin" and "pinned to whatever is latest" stay distinguishable states
// for garbage collection.
func (s *Store) Clear(ctx context.Context, scope string) error {
	path := filepath.Join(scope, FileName)
	held, err := locking.Acquire(ctx, path+".lock", s.lock)
	if err != nil {
		return err
	}
	defer func() { _ = held.Unlock() }()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clearing pin for %s: %w", scope, err)
	}
	return s.removeMarkers(scope)
}

// MarkersForBand lists the reference markers of one feature band.
func (s *Store) MarkersForBand(band toolver.FeatureBand) ([]Marker, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(markersDir), band.String())
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading pin markers for %s: %w", band, err)
	}

	var markers []Marker
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if errors.Is(err, fs.ErrNotExist) {
			// Concurrently cleared; it no longer counts.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading pin marker %s: %w", entry.Name(), err)
		}
		var m Marker
		if err := sigsyaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parsing pin marker %s: %w", entry.Name(), err)
		}
		markers = append(markers, m)
	}
	return markers, nil
}

func (s *Store) writeMarker(m Marker) error {
	return s.writeMarkerInBand(m, m.Version.FeatureBand())
}

func (s *Store) writeMarkerInBand(m Marker, band toolver.FeatureBand) error {
	dir := filepath.Join(s.root, filepath.FromSlash(markersDir), band.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writing pin marker: %w", err)
	}
	data, err := sigsyaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding pin marker: %w", err)
	}
	name := markerName(m.Scope, m.ManifestID)
	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing pin marker: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("writing pin marker: %w", err)
	}
	return nil
}

// removeMarkers drops every marker this scope owns, across all bands.
func (s *Store) removeMarkers(scope string) error {
	base := filepath.Join(s.root, filepath.FromSlash(markersDir))
	bands, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("clearing pin markers: %w", err)
	}

	prefix := scopeID(scope)
	for _, band := range bands {
		if !band.IsDir() {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(base, band.Name()))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("clearing pin markers: %w", err)
		}
		for _, entry := range entries {
			if !strings.HasPrefix(entry.Name(), prefix) {
				continue
			}
			path := filepath.Join(base, band.Name(), entry.Name())
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("clearing pin marker %s: %w", path, err)
			}
		}
	}
	return nil
}

// scopeID derives a stable filesystem-safe identity for a scope path.
func scopeID(scope string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(scope)))
	return hex.EncodeToString(sum[:8])
}

func markerName(scope, manifestID string) string {
	if manifestID == "" {
		return scopeID(scope)
	}
	return scopeID(scope) + "-" + manifestID
}
