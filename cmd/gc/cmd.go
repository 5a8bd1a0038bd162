// Package gc implements the gc subcommand over the garbage collector.
package gc

import (
	"fmt"

	"github.com/spf13/cobra"

	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/internal/gc"
)

const dryRunFlag = "dry-run"

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Remove installed versions no scope references",
		Long: `Remove installed versions that are not pinned by any scope, not the
  latest of their feature band, and not marked as a baseline. Removal is
  skipped for any install that is concurrently locked or freshly pinned.`,
		Example: `
gc --dry-run
gc`,
		Args:              cobra.NoArgs,
		RunE:              run,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().Bool(dryRunFlag, false, "report what would be removed without removing anything")
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	cat, err := rfcmd.NewCatalog(cmd)
	if err != nil {
		return err
	}
	pins, err := rfcmd.NewPinStore(cmd)
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool(dryRunFlag)
	if err != nil {
		return err
	}

	c := gc.New(cat, pins, nil)
	plan, err := c.Plan(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, kept := range plan.Kept {
		if _, err := fmt.Fprintf(out, "keep   %s %s (%s)\n", kept.Install.Kind, kept.Install.Version, kept.Reason); err != nil {
			return err
		}
	}
	for _, in := range plan.Collectible {
		verb := "remove"
		if dryRun {
			verb = "would remove"
		}
		if _, err := fmt.Fprintf(out, "%s %s %s\n", verb, in.Kind, in.Version); err != nil {
			return err
		}
	}
	if dryRun {
		return nil
	}

	res, err := c.Run(cmd.Context(), plan)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "removed %d of %d candidates (%d skipped)\n", len(res.Removed), len(plan.Collectible), len(res.Skipped))
	return err
}
