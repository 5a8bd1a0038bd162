// Package pin implements the pin subcommand: fix the scope's resolution
// to a specific version until explicitly cleared.
package pin

import (
	"fmt"

	"github.com/spf13/cobra"

	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/pin"
	"rollfwd.dev/rollfwd/internal/toolver"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin {kind} [version]",
		Short: "Pin the scope to a component version",
		Long: `Pin the scope to a component version, bypassing discovery on later
  invocations until the pin is cleared (see "update"). Without an explicit
  version the pin records whatever the current request resolves to.

  Pinning a workload set also records the set's manifest mapping, so
  manifests installed out of band stay referenced for garbage collection.`,
		Example: `
pin sdk 8.0.100
pin sdk --version-floor 8.0.100 --roll-forward latestFeature
pin workload-set 8.0.200.1`,
		Args:              cobra.RangeArgs(1, 2),
		RunE:              run,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	rfcmd.RegisterRequestFlags(cmd)
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	kind, err := catalog.ParseKind(args[0])
	if err != nil {
		return err
	}
	scope, err := rfcmd.Scope(cmd)
	if err != nil {
		return err
	}
	r, err := rfcmd.NewResolver(cmd)
	if err != nil {
		return err
	}

	var selected toolver.Version
	if len(args) == 2 {
		if selected, err = toolver.Parse(args[1]); err != nil {
			return err
		}
	} else {
		req, err := rfcmd.BuildRequest(cmd)
		if err != nil {
			return err
		}
		out, err := r.Resolve(cmd.Context(), kind, req, scope)
		if err != nil {
			return err
		}
		selected = out.Version
	}

	rec := pin.Record{Kind: kind}
	if kind == catalog.KindWorkloadSet {
		rec.WorkloadSet = &selected
		manifests, err := setManifests(cmd, r.Catalog, selected)
		if err != nil {
			return err
		}
		rec.Manifests = manifests
	} else {
		rec.Version = &selected
	}

	pins, err := rfcmd.NewPinStore(cmd)
	if err != nil {
		return err
	}
	if err := pins.Set(cmd.Context(), scope, rec); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "pinned %s %s for %s\n", kind, selected, scope)
	return err
}

// setManifests loads the manifest mapping of the installed workload set
// so the pin roots them too.
func setManifests(cmd *cobra.Command, cat *catalog.Catalog, setVersion toolver.Version) (map[string]catalog.ManifestRef, error) {
	installs, err := cat.List(cmd.Context(), catalog.KindWorkloadSet)
	if err != nil {
		return nil, err
	}
	for _, in := range installs {
		if in.Version.Compare(setVersion) != 0 {
			continue
		}
		ws, err := cat.LoadWorkloadSet(in)
		if err != nil {
			return nil, err
		}
		return ws.Manifests, nil
	}
	// An explicit version may point at a set that is not installed yet;
	// the pin still records it, just without manifest references.
	return nil, nil
}
