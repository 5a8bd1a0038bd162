package resolver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/config"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/pin"
	"rollfwd.dev/rollfwd/internal/toolver"
)

func install(t *testing.T, root string, elems ...string) {
	t.Helper()
	dir := filepath.Join(append([]string{root}, elems...)...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, catalog.CompleteMarker), nil, 0o644))
}

func newResolver(root string) *Resolver {
	return &Resolver{Catalog: catalog.New(root), Pins: pin.NewStore(root)}
}

func req(floor string, mode toolver.RollForwardMode) engine.Request {
	r := engine.Request{Mode: mode, AllowPrerelease: true}
	if floor != "" {
		v := toolver.MustParse(floor)
		r.Floor = &v
	}
	return r
}

func TestResolveFromCatalog(t *testing.T) {
	root := t.TempDir()
	install(t, root, "sdk", "2.1.503")
	install(t, root, "sdk", "2.1.505")

	out, err := newResolver(root).Resolve(context.Background(), catalog.KindSDK, req("2.1.501", toolver.Patch), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "2.1.505", out.Version.String())
	assert.False(t, out.Pinned)
}

func TestResolvePinShortCircuits(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	install(t, root, "sdk", "2.1.503")
	install(t, root, "sdk", "2.1.505")

	r := newResolver(root)
	v := toolver.MustParse("2.1.503")
	require.NoError(t, r.Pins.Set(context.Background(), scope, pin.Record{Kind: catalog.KindSDK, Version: &v}))

	// Discovery would pick 2.1.505; the pin reproduces 2.1.503.
	out, err := r.Resolve(context.Background(), catalog.KindSDK, req("2.1.501", toolver.Patch), scope)
	require.NoError(t, err)
	assert.Equal(t, "2.1.503", out.Version.String())
	assert.True(t, out.Pinned)
}

func TestResolvePinForOtherKindIsIgnored(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	install(t, root, "sdk", "2.1.505")
	install(t, root, "runtime", "2.1.3")

	r := newResolver(root)
	v := toolver.MustParse("2.1.3")
	require.NoError(t, r.Pins.Set(context.Background(), scope, pin.Record{Kind: catalog.KindRuntime, Version: &v}))

	out, err := r.Resolve(context.Background(), catalog.KindSDK, req("2.1.501", toolver.Patch), scope)
	require.NoError(t, err)
	assert.Equal(t, "2.1.505", out.Version.String())
	assert.False(t, out.Pinned)
}

func TestResolvePinToRemovedInstall(t *testing.T) {
	root, scope := t.TempDir(), t.TempDir()
	install(t, root, "sdk", "2.1.505")

	r := newResolver(root)
	v := toolver.MustParse("2.1.503")
	require.NoError(t, r.Pins.Set(context.Background(), scope, pin.Record{Kind: catalog.KindSDK, Version: &v}))

	_, err := r.Resolve(context.Background(), catalog.KindSDK, req("", toolver.LatestMajor), scope)
	var nce *engine.NoCandidateError
	require.ErrorAs(t, err, &nce)
	assert.Equal(t, "2.1.503", nce.Requested.String())
}

func TestResolveFullPipeline(t *testing.T) {
	// File sets the policy, CLI sets only the floor: the file policy must
	// survive the merge and drive the selection.
	root, scope := t.TempDir(), t.TempDir()
	install(t, root, "sdk", "2.1.503")
	install(t, root, "sdk", "2.1.601")
	require.NoError(t, os.WriteFile(filepath.Join(scope, config.FileName), []byte("rollForward: latestFeature\n"), 0o644))

	fileLayer, err := config.LoadFile(scope)
	require.NoError(t, err)
	envLayer, err := config.LoadEnv(config.MapLookup(nil))
	require.NoError(t, err)
	cliLayer, err := config.NewCLILayer("2.1.501", "", nil, nil)
	require.NoError(t, err)

	effective, err := config.Merge(fileLayer, envLayer, cliLayer)
	require.NoError(t, err)
	assert.Equal(t, toolver.LatestFeature, effective.Mode)

	out, err := newResolver(root).Resolve(context.Background(), catalog.KindSDK, effective, scope)
	require.NoError(t, err)
	assert.Equal(t, "2.1.601", out.Version.String())
}
