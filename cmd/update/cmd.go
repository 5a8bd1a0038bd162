// Package update implements the update subcommand: drop the scope's pin
// and report what the scope resolves to afterwards.
package update

import (
	"fmt"

	"github.com/spf13/cobra"

	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/engine"
	"rollfwd.dev/rollfwd/internal/toolver"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update [kind]",
		Short: "Clear the scope's pin and float to the latest installed version",
		Long: `Clear the scope's pin so resolution floats again, then report the
  latest installed version the scope now binds to. Without an argument
  the kind is taken from the existing pin. The scope is left unpinned;
  run "pin" afterwards to fix the new version in place.`,
		Example: `
update
update sdk`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	scope, err := rfcmd.Scope(cmd)
	if err != nil {
		return err
	}
	pins, err := rfcmd.NewPinStore(cmd)
	if err != nil {
		return err
	}

	var kind catalog.Kind
	if len(args) == 1 {
		if kind, err = catalog.ParseKind(args[0]); err != nil {
			return err
		}
	} else {
		rec, err := pins.Get(scope)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("scope %s has no pin; pass a kind to update", scope)
		}
		kind = rec.Kind
	}

	if err := pins.Clear(cmd.Context(), scope); err != nil {
		return err
	}

	r, err := rfcmd.NewResolver(cmd)
	if err != nil {
		return err
	}
	req := engine.Request{Mode: toolver.LatestMajor, AllowPrerelease: true}
	out, err := r.Resolve(cmd.Context(), kind, req, scope)
	if err != nil {
		return fmt.Errorf("pin cleared, resolving replacement: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "unpinned %s for %s; now resolves to %s\n", kind, scope, out.Version)
	return err
}
