package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollfwd.dev/rollfwd/internal/toolver"
)

func ver(s string) *toolver.Version {
	v := toolver.MustParse(s)
	return &v
}

func modePtr(m toolver.RollForwardMode) *toolver.RollForwardMode { return &m }

func boolPtr(b bool) *bool { return &b }

func TestMergeLayering(t *testing.T) {
	tests := []struct {
		name      string
		layers    []Layer
		wantFloor string
		wantMode  toolver.RollForwardMode
		wantPre   bool
		wantErr   string
	}{
		{
			name:      "file only",
			layers:    []Layer{{Name: LayerFile, Version: ver("8.0.100"), Mode: modePtr(toolver.Feature)}},
			wantFloor: "8.0.100", wantMode: toolver.Feature, wantPre: true,
		},
		{
			name: "policy flows up past a version-only override",
			layers: []Layer{
				{Name: LayerFile, Mode: modePtr(toolver.LatestFeature)},
				{Name: LayerCLI, Version: ver("8.0.100")},
			},
			wantFloor: "8.0.100", wantMode: toolver.LatestFeature, wantPre: true,
		},
		{
			name: "policy does not flow up when the CLI also sets one",
			layers: []Layer{
				{Name: LayerFile, Version: ver("7.0.100"), Mode: modePtr(toolver.LatestFeature)},
				{Name: LayerCLI, Version: ver("8.0.100"), Mode: modePtr(toolver.Disable)},
			},
			wantFloor: "8.0.100", wantMode: toolver.Disable, wantPre: true,
		},
		{
			name: "policy-only override retains the lower floor",
			layers: []Layer{
				{Name: LayerFile, Version: ver("8.0.100")},
				{Name: LayerEnv, Mode: modePtr(toolver.Major)},
			},
			wantFloor: "8.0.100", wantMode: toolver.Major, wantPre: true,
		},
		{
			name: "env overrides file and cli overrides env",
			layers: []Layer{
				{Name: LayerFile, Version: ver("7.0.100")},
				{Name: LayerEnv, Version: ver("8.0.100"), AllowPrerelease: boolPtr(false)},
				{Name: LayerCLI, Version: ver("9.0.100")},
			},
			wantFloor: "9.0.100", wantMode: toolver.LatestPatch, wantPre: false,
		},
		{
			name:     "no layers defaults to latest available",
			layers:   nil,
			wantMode: toolver.LatestMajor, wantPre: true,
		},
		{
			name:      "version without mode defaults to latestPatch",
			layers:    []Layer{{Name: LayerFile, Version: ver("8.0.100")}},
			wantFloor: "8.0.100", wantMode: toolver.LatestPatch, wantPre: true,
		},
		{
			name:     "bare latestMajor is the explicit default path",
			layers:   []Layer{{Name: LayerFile, Mode: modePtr(toolver.LatestMajor)}},
			wantMode: toolver.LatestMajor, wantPre: true,
		},
		{
			name:    "non-default policy without a floor conflicts",
			layers:  []Layer{{Name: LayerEnv, Mode: modePtr(toolver.Patch)}},
			wantErr: "without a floor version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Merge(tt.layers...)
			if tt.wantErr != "" {
				require.Error(t, err)
				var cerr *ConflictError
				require.ErrorAs(t, err, &cerr)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, req.Mode)
			assert.Equal(t, tt.wantPre, req.AllowPrerelease)
			if tt.wantFloor == "" {
				assert.Nil(t, req.Floor)
			} else {
				require.NotNil(t, req.Floor)
				assert.Equal(t, tt.wantFloor, req.Floor.String())
			}
		})
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestLoadFile(t *testing.T) {
	t.Run("missing file is an empty layer", func(t *testing.T) {
		layer, err := LoadFile(t.TempDir())
		require.NoError(t, err)
		assert.Nil(t, layer.Version)
		assert.Nil(t, layer.Mode)
		assert.Nil(t, layer.AllowPrerelease)
	})

	t.Run("full document", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version: 8.0.100\nrollForward: latestFeature\nallowPrerelease: false\n")
		layer, err := LoadFile(dir)
		require.NoError(t, err)
		require.NotNil(t, layer.Version)
		assert.Equal(t, "8.0.100", layer.Version.String())
		require.NotNil(t, layer.Mode)
		assert.Equal(t, toolver.LatestFeature, *layer.Mode)
		require.NotNil(t, layer.AllowPrerelease)
		assert.False(t, *layer.AllowPrerelease)
	})

	t.Run("legacy policy", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version: 8.0.100\nrollForwardOnNoCandidate: 2\n")
		layer, err := LoadFile(dir)
		require.NoError(t, err)
		require.NotNil(t, layer.Mode)
		assert.Equal(t, toolver.Major, *layer.Mode)
	})

	t.Run("legacy and current spellings conflict", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version: 8.0.100\nrollForward: patch\nrollForwardOnNoCandidate: 1\n")
		_, err := LoadFile(dir)
		var cerr *ConflictError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, LayerFile, cerr.Layer)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version: 8.0.100\nfutureSetting: true\nnested:\n  also: fine\n")
		layer, err := LoadFile(dir)
		require.NoError(t, err)
		require.NotNil(t, layer.Version)
	})

	t.Run("mistyped known field fails validation", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version: 8.0.100\nallowPrerelease: sometimes\n")
		_, err := LoadFile(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validating")
	})

	t.Run("unknown mode name", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "rollForward: sideways\n")
		_, err := LoadFile(dir)
		require.Error(t, err)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("all variables", func(t *testing.T) {
		layer, err := LoadEnv(MapLookup(map[string]string{
			EnvVersion:         "8.0.100",
			EnvRollForward:     "minor",
			EnvAllowPrerelease: "false",
		}))
		require.NoError(t, err)
		assert.Equal(t, "8.0.100", layer.Version.String())
		assert.Equal(t, toolver.Minor, *layer.Mode)
		assert.False(t, *layer.AllowPrerelease)
	})

	t.Run("legacy variable", func(t *testing.T) {
		layer, err := LoadEnv(MapLookup(map[string]string{EnvLegacyCandidate: "0"}))
		require.NoError(t, err)
		assert.Equal(t, toolver.Disable, *layer.Mode)
	})

	t.Run("legacy and current conflict in one layer", func(t *testing.T) {
		_, err := LoadEnv(MapLookup(map[string]string{
			EnvRollForward:     "minor",
			EnvLegacyCandidate: "1",
		}))
		var cerr *ConflictError
		require.ErrorAs(t, err, &cerr)
		assert.Equal(t, LayerEnv, cerr.Layer)
	})

	t.Run("empty lookup is an empty layer", func(t *testing.T) {
		layer, err := LoadEnv(MapLookup(nil))
		require.NoError(t, err)
		assert.Nil(t, layer.Version)
		assert.Nil(t, layer.Mode)
	})

	t.Run("malformed version fails closed", func(t *testing.T) {
		_, err := LoadEnv(MapLookup(map[string]string{EnvVersion: "eight"}))
		require.Error(t, err)
	})
}

func TestNewCLILayer(t *testing.T) {
	legacy := 1
	_, err := NewCLILayer("8.0.100", "patch", &legacy, nil)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, LayerCLI, cerr.Layer)

	layer, err := NewCLILayer("8.0.100", "", &legacy, boolPtr(true))
	require.NoError(t, err)
	assert.Equal(t, toolver.Minor, *layer.Mode)
	assert.Equal(t, "8.0.100", layer.Version.String())
	assert.True(t, *layer.AllowPrerelease)
}
