package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"rollfwd.dev/rollfwd/internal/toolver"
)

// workloadSetFile is the mapping file inside a workload set install.
const workloadSetFile = "workloadset.yaml"

// ManifestRef pins one manifest inside a workload set: the manifest version
// plus the SDK feature band it was built for. Wire form "version/band",
// e.g. "17.2.8091/8.0.100".
type ManifestRef struct {
	Version    toolver.Version
	OwningBand toolver.FeatureBand
}

func (r ManifestRef) String() string {
	return fmt.Sprintf("%s/%d.%d.%d00", r.Version, r.OwningBand.Major, r.OwningBand.Minor, r.OwningBand.Band)
}

// MarshalText renders the "version/band" wire form.
func (r ManifestRef) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the "version/band" wire form.
func (r *ManifestRef) UnmarshalText(text []byte) error {
	parsed, err := ParseManifestRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ParseManifestRef parses the "version/band" wire form.
func ParseManifestRef(s string) (ManifestRef, error) {
	verPart, bandPart, ok := strings.Cut(s, "/")
	if !ok {
		return ManifestRef{}, fmt.Errorf("manifest reference %q: want version/band", s)
	}
	v, err := toolver.Parse(verPart)
	if err != nil {
		return ManifestRef{}, fmt.Errorf("manifest reference %q: %w", s, err)
	}
	bandVer, err := toolver.Parse(bandPart)
	if err != nil {
		return ManifestRef{}, fmt.Errorf("manifest reference %q: %w", s, err)
	}
	return ManifestRef{Version: v, OwningBand: bandVer.FeatureBand()}, nil
}

// WorkloadSet is one atomically versioned generation of manifest versions.
// Entries are created by release builds and never mutated in place.
type WorkloadSet struct {
	Version   toolver.Version
	Manifests map[string]ManifestRef
}

// LoadWorkloadSet reads the manifest mapping of an installed workload set.
func (c *Catalog) LoadWorkloadSet(install Install) (*WorkloadSet, error) {
	if install.Kind != KindWorkloadSet {
		return nil, fmt.Errorf("install %s is a %s, not a workload set", install.Version, install.Kind)
	}
	path := filepath.Join(install.Location, workloadSetFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Kind: KindWorkloadSet, Path: path, Err: err}
	}

	var doc struct {
		Manifests map[string]string `yaml:"manifests"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	ws := &WorkloadSet{Version: install.Version, Manifests: make(map[string]ManifestRef, len(doc.Manifests))}
	for id, ref := range doc.Manifests {
		parsed, err := ParseManifestRef(ref)
		if err != nil {
			return nil, fmt.Errorf("workload set %s, manifest %s: %w", install.Version, id, err)
		}
		ws.Manifests[id] = parsed
	}
	return ws, nil
}
