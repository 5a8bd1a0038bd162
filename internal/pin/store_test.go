package pin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/locking"
	"rollfwd.dev/rollfwd/internal/toolver"
)

func ver(s string) *toolver.Version {
	v := toolver.MustParse(s)
	return &v
}

func TestSetGetRoundTrip(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)

	rec := Record{Kind: catalog.KindSDK, Version: ver("8.0.100")}
	require.NoError(t, s.Set(context.Background(), scope, rec))

	got, err := s.Get(scope)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, catalog.KindSDK, got.Kind)
	assert.Equal(t, "8.0.100", got.Version.String())
	assert.Equal(t, scope, got.SourceScope)
}

func TestGetNoPin(t *testing.T) {
	s := NewStore(t.TempDir())
	got, err := s.Get(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClearThenGet(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)

	require.NoError(t, s.Set(context.Background(), scope, Record{Kind: catalog.KindSDK, Version: ver("8.0.100")}))
	require.NoError(t, s.Clear(context.Background(), scope))

	got, err := s.Get(scope)
	require.NoError(t, err)
	assert.Nil(t, got, "cleared scope reads as no pin")

	markers, err := s.MarkersForBand(ver("8.0.100").FeatureBand())
	require.NoError(t, err)
	assert.Empty(t, markers, "clearing drops the reference markers")

	require.NoError(t, s.Clear(context.Background(), scope), "clearing an unpinned scope is a no-op")
}

func TestSetWritesBandMarkers(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)

	rec := Record{
		Kind:        catalog.KindWorkloadSet,
		WorkloadSet: ver("8.0.200.1"),
		Manifests: map[string]catalog.ManifestRef{
			"ios": {Version: toolver.MustParse("17.2.8091"), OwningBand: ver("8.0.100").FeatureBand()},
		},
	}
	require.NoError(t, s.Set(context.Background(), scope, rec))

	setMarkers, err := s.MarkersForBand(ver("8.0.200.1").FeatureBand())
	require.NoError(t, err)
	require.Len(t, setMarkers, 1)
	assert.Equal(t, "8.0.200.1", setMarkers[0].Version.String())
	assert.Equal(t, scope, setMarkers[0].Scope)

	// The manifest marker lands in the manifest's owning band, not the
	// workload set's.
	manifestMarkers, err := s.MarkersForBand(ver("8.0.100").FeatureBand())
	require.NoError(t, err)
	require.Len(t, manifestMarkers, 1)
	assert.Equal(t, "ios", manifestMarkers[0].ManifestID)
	assert.Equal(t, "17.2.8091", manifestMarkers[0].Version.String())
}

func TestSetReplacesStaleMarkers(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)

	require.NoError(t, s.Set(context.Background(), scope, Record{Kind: catalog.KindSDK, Version: ver("8.0.100")}))
	require.NoError(t, s.Set(context.Background(), scope, Record{Kind: catalog.KindSDK, Version: ver("9.0.100")}))

	old, err := s.MarkersForBand(ver("8.0.100").FeatureBand())
	require.NoError(t, err)
	assert.Empty(t, old)

	current, err := s.MarkersForBand(ver("9.0.100").FeatureBand())
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "9.0.100", current[0].Version.String())
}

func TestTwoScopesShareABand(t *testing.T) {
	root := t.TempDir()
	scopeA, scopeB := t.TempDir(), t.TempDir()
	s := NewStore(root)

	require.NoError(t, s.Set(context.Background(), scopeA, Record{Kind: catalog.KindSDK, Version: ver("8.0.100")}))
	require.NoError(t, s.Set(context.Background(), scopeB, Record{Kind: catalog.KindSDK, Version: ver("8.0.102")}))

	markers, err := s.MarkersForBand(ver("8.0.100").FeatureBand())
	require.NoError(t, err)
	assert.Len(t, markers, 2)

	require.NoError(t, s.Clear(context.Background(), scopeA))
	markers, err = s.MarkersForBand(ver("8.0.100").FeatureBand())
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, scopeB, markers[0].Scope)
}

func TestPinFileIsHandEditable(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)

	// The escape hatch: a pin written by hand, no tooling involved.
	doc := "kind: sdk\nversion: 8.0.100\n"
	require.NoError(t, os.WriteFile(filepath.Join(scope, FileName), []byte(doc), 0o644))

	got, err := s.Get(scope)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "8.0.100", got.Version.String())
}

func TestSetRejectsEmptyRecord(t *testing.T) {
	s := NewStore(t.TempDir())
	err := s.Set(context.Background(), t.TempDir(), Record{Kind: catalog.KindSDK})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pins nothing")
}

func TestSetContention(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	s := NewStore(root)
	s.lock = locking.Options{Attempts: 2, Backoff: 1}

	// Another process holds the pin lock.
	held, err := locking.Acquire(context.Background(), filepath.Join(scope, FileName+".lock"), locking.Options{})
	require.NoError(t, err)
	defer func() { _ = held.Unlock() }()

	err = s.Set(context.Background(), scope, Record{Kind: catalog.KindSDK, Version: ver("8.0.100")})
	var cerr *locking.ContentionError
	assert.ErrorAs(t, err, &cerr)
}
