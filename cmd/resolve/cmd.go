// Package resolve implements the resolve subcommand: run the full
// selection pipeline for one component kind and print the chosen version.
package resolve

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/flags/enum"
)

const (
	outputPlain = "plain"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// outcomeDoc is the machine-readable rendering of a resolution.
type outcomeDoc struct {
	Kind    string `json:"kind"`
	Version string `json:"version"`
	Pinned  bool   `json:"pinned"`
	Mode    string `json:"mode,omitempty"`
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve {runtime|sdk|workload-manifest|workload-set}",
		Short: "Select exactly one installed version of a component",
		Long: `Select exactly one installed version of a component, or fail with a
  distinct exit code: 2 when no installed version satisfies the request,
  3 on conflicting configuration, 4 on a catalog integrity violation,
  5 on lock contention.

  The effective request layers the scope configuration file, the
  ROLLFWD_* environment variables, and this command's flags; a layer's
  policy survives a higher layer that only overrides the version, and a
  layer's version survives a higher layer that only overrides the policy.`,
		Example: `
resolve sdk --version-floor 8.0.100
resolve sdk --version-floor 8.0.100 --roll-forward latestFeature
resolve runtime --output json
ROLLFWD_ROLL_FORWARD=minor resolve sdk --version-floor 8.0.100`,
		Args:              cobra.ExactArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	rfcmd.RegisterRequestFlags(cmd)
	enum.VarP(cmd.Flags(), rfcmd.OutputFlag, "o", []string{outputPlain, outputJSON, outputYAML}, "output format of the selected version")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	kind, err := catalog.ParseKind(args[0])
	if err != nil {
		return err
	}

	// Configuration conflicts must surface before any catalog I/O.
	req, err := rfcmd.BuildRequest(cmd)
	if err != nil {
		return err
	}

	r, err := rfcmd.NewResolver(cmd)
	if err != nil {
		return err
	}
	scope, err := rfcmd.Scope(cmd)
	if err != nil {
		return err
	}

	out, err := r.Resolve(cmd.Context(), kind, req, scope)
	if err != nil {
		return err
	}

	format, err := enum.Get(cmd.Flags(), rfcmd.OutputFlag)
	if err != nil {
		return err
	}
	doc := outcomeDoc{Kind: string(out.Kind), Version: out.Version.String(), Pinned: out.Pinned}
	if !out.Pinned {
		doc.Mode = out.Request.Mode.String()
	}
	switch format {
	case outputJSON:
		return json.NewEncoder(cmd.OutOrStdout()).Encode(doc)
	case outputYAML:
		data, err := sigsyaml.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		_, err = fmt.Fprintln(cmd.OutOrStdout(), doc.Version)
		return err
	}
}
