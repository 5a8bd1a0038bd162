// Package version reports what code the running binary was built from.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/Masterminds/semver/v3"
)

// BuildVersion is overridden via -ldflags on release builds.
var BuildVersion = "n/a"

type Info struct {
	Major      string `json:"major"`
	Minor      string `json:"minor"`
	Patch      string `json:"patch"`
	PreRelease string `json:"prerelease,omitempty"`
	GitVersion string `json:"gitVersion"`
	GoVersion  string `json:"goVersion"`
	Platform   string `json:"platform"`
}

// Get returns the binary's own version, read from the module build info
// unless BuildVersion was stamped at link time.
func Get() (Info, error) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{}, fmt.Errorf("could not read build info")
	}
	raw := bi.Main.Version
	if BuildVersion != "n/a" {
		raw = BuildVersion
	}
	if raw == "" || raw == "(devel)" {
		raw = "0.0.0-dev"
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return Info{}, fmt.Errorf("could not parse version %q: %w", raw, err)
	}

	return Info{
		Major:      strconv.FormatUint(v.Major(), 10),
		Minor:      strconv.FormatUint(v.Minor(), 10),
		Patch:      strconv.FormatUint(v.Patch(), 10),
		PreRelease: v.Prerelease(),
		GitVersion: v.String(),
		GoVersion:  bi.GoVersion,
		Platform:   fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}, nil
}
