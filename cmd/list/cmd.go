// Package list implements the list subcommand: a table of installed
// versions with band, baseline, and pin annotations.
package list

import (
	"encoding/json"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	sigsyaml "sigs.k8s.io/yaml"

	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/internal/catalog"
	"rollfwd.dev/rollfwd/internal/flags/enum"
	"rollfwd.dev/rollfwd/internal/pin"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

type installDoc struct {
	Kind       string `json:"kind"`
	Version    string `json:"version"`
	Band       string `json:"band"`
	ManifestID string `json:"manifestId,omitempty"`
	Baseline   bool   `json:"baseline,omitempty"`
	Pinned     bool   `json:"pinned,omitempty"`
	Location   string `json:"location"`
}

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [kind]",
		Aliases: []string{"ls"},
		Short:   "List installed component versions",
		Long: `List installed versions across all install roots. Without a kind
  argument every component kind is listed.`,
		Args:              cobra.MaximumNArgs(1),
		RunE:              run,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	enum.VarP(cmd.Flags(), rfcmd.OutputFlag, "o", []string{outputTable, outputJSON, outputYAML}, "output format of the install listing")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cat, err := rfcmd.NewCatalog(cmd)
	if err != nil {
		return err
	}
	pins, err := rfcmd.NewPinStore(cmd)
	if err != nil {
		return err
	}

	var installs []catalog.Install
	if len(args) == 1 {
		kind, err := catalog.ParseKind(args[0])
		if err != nil {
			return err
		}
		if installs, err = cat.List(cmd.Context(), kind); err != nil {
			return err
		}
	} else {
		all, err := cat.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		for _, kind := range catalog.Kinds() {
			installs = append(installs, all[kind]...)
		}
	}

	docs := make([]installDoc, 0, len(installs))
	for _, in := range installs {
		pinned, err := isPinned(pins, in)
		if err != nil {
			return err
		}
		doc := installDoc{
			Kind:       string(in.Kind),
			Version:    in.Version.String(),
			Band:       in.Version.FeatureBand().String(),
			ManifestID: in.ManifestID,
			Baseline:   in.Baseline,
			Pinned:     pinned,
			Location:   in.Location,
		}
		docs = append(docs, doc)
	}

	format, err := enum.Get(cmd.Flags(), rfcmd.OutputFlag)
	if err != nil {
		return err
	}
	switch format {
	case outputJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	case outputYAML:
		data, err := sigsyaml.Marshal(docs)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		return renderTable(cmd, docs)
	}
}

func isPinned(pins *pin.Store, in catalog.Install) (bool, error) {
	markers, err := pins.MarkersForBand(in.Version.FeatureBand())
	if err != nil {
		return false, err
	}
	for _, m := range markers {
		if m.Kind == in.Kind && m.ManifestID == in.ManifestID && m.Version.Compare(in.Version) == 0 {
			return true, nil
		}
	}
	return false, nil
}

func renderTable(cmd *cobra.Command, docs []installDoc) error {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		t.SetAllowedRowLength(width)
	}
	t.AppendHeader(table.Row{"KIND", "VERSION", "BAND", "MANIFEST", "FLAGS"})
	for _, d := range docs {
		var flags string
		if d.Baseline {
			flags += "baseline "
		}
		if d.Pinned {
			flags += "pinned"
		}
		t.AppendRow(table.Row{d.Kind, d.Version, d.Band, d.ManifestID, flags})
	}
	t.Render()
	return nil
}
