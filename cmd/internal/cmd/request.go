// Package cmd holds the flag names and request plumbing shared by the
// subcommands that run a resolution.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/config"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/pin"
	"rollfwd.dev/rollfwd/internal/resolver"
	"rollfwd.dev/rollfwd/internal/rfctx"
)

// RegisterRequestFlags adds the request-shaping flags to a subcommand.
func RegisterRequestFlags(c *cobra.Command) {
	c.Flags().String(VersionFloorFlag, "", "requested minimum version (e.g. 8.0.100)")
	c.Flags().String(RollForwardFlag, "", "roll-forward policy (disable, patch, latestPatch, feature, latestFeature, minor, latestMinor, major, latestMajor)")
	c.Flags().Int(LegacyCandidateFlag, 0, "legacy roll-forward policy (0 disable, 1 minor, 2 major)")
	_ = c.Flags().MarkHidden(LegacyCandidateFlag)
	c.Flags().Bool(AllowPrereleaseFlag, true, "consider prerelease versions")
}

// BuildRequest merges the configuration file of the invocation's scope,
// the environment snapshot, and the command's flags into the effective
// request. Conflicts surface here, before any catalog I/O.
func BuildRequest(c *cobra.Command) (engine.Request, error) {
	inv := rfctx.From(c.Context())
	if inv == nil {
		return engine.Request{}, fmt.Errorf("no invocation attached to context")
	}

	fileLayer, err := config.LoadFile(inv.Scope)
	if err != nil {
		return engine.Request{}, err
	}
	envLayer, err := config.LoadEnv(inv.Env)
	if err != nil {
		return engine.Request{}, err
	}
	cliLayer, err := cliLayer(c)
	if err != nil {
		return engine.Request{}, err
	}

	return config.Merge(fileLayer, envLayer, cliLayer)
}

func cliLayer(c *cobra.Command) (config.Layer, error) {
	versionFloor, err := c.Flags().GetString(VersionFloorFlag)
	if err != nil {
		return config.Layer{}, err
	}
	rollForward, err := c.Flags().GetString(RollForwardFlag)
	if err != nil {
		return config.Layer{}, err
	}

	var legacy *int
	if c.Flags().Changed(LegacyCandidateFlag) {
		n, err := c.Flags().GetInt(LegacyCandidateFlag)
		if err != nil {
			return config.Layer{}, err
		}
		legacy = &n
	}

	var allowPrerelease *bool
	if c.Flags().Changed(AllowPrereleaseFlag) {
		b, err := c.Flags().GetBool(AllowPrereleaseFlag)
		if err != nil {
			return config.Layer{}, err
		}
		allowPrerelease = &b
	}

	return config.NewCLILayer(versionFloor, rollForward, legacy, allowPrerelease)
}

// NewCatalog builds the catalog over the invocation's install roots.
func NewCatalog(c *cobra.Command) (*catalog.Catalog, error) {
	inv := rfctx.From(c.Context())
	if inv == nil || len(inv.Roots) == 0 {
		return nil, fmt.Errorf("no install roots configured")
	}
	return catalog.New(inv.Roots...), nil
}

// NewPinStore builds the pin store against the primary install root.
func NewPinStore(c *cobra.Command) (*pin.Store, error) {
	inv := rfctx.From(c.Context())
	if inv == nil || len(inv.Roots) == 0 {
		return nil, fmt.Errorf("no install roots configured")
	}
	return pin.NewStore(inv.Roots[0]), nil
}

// NewResolver wires catalog and pin store for the invocation.
func NewResolver(c *cobra.Command) (*resolver.Resolver, error) {
	cat, err := NewCatalog(c)
	if err != nil {
		return nil, err
	}
	pins, err := NewPinStore(c)
	if err != nil {
		return nil, err
	}
	return &resolver.Resolver{Catalog: cat, Pins: pins}, nil
}

// Scope returns the invocation's scope directory.
func Scope(c *cobra.Command) (string, error) {
	inv := rfctx.From(c.Context())
	if inv == nil {
		return "", fmt.Errorf("no invocation attached to context")
	}
	return inv.Scope, nil
}
