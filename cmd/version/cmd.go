// Package version implements the version subcommand.
package version

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"rollfwd.dev/rollfwd/internal/version"
)

const (
	FlagFormat            = "format"
	FlagFormatShortHand   = "f"
	FlagFormatJSON        = "json"
	FlagFormatGoBuildInfo = "gobuildinfo"
)

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Retrieve the version of the rollfwd CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString(FlagFormat)
			if err != nil {
				return err
			}
			switch format {
			case FlagFormatJSON:
				info, err := version.Get()
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			case FlagFormatGoBuildInfo:
				bi, ok := debug.ReadBuildInfo()
				if !ok {
					return fmt.Errorf("no build info available")
				}
				_, err = io.Copy(cmd.OutOrStdout(), strings.NewReader(bi.String()))
				return err
			default:
				info, err := version.Get()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "rollfwd %s %s %s\n", info.GitVersion, info.GoVersion, info.Platform)
				return err
			}
		},
		Args:              cobra.NoArgs,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.Flags().StringP(FlagFormat, FlagFormatShortHand, "", "output format (json, gobuildinfo)")
	return cmd
}
