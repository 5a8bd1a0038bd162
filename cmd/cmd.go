package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	gccmd "rollfwd.dev/rollfwd/cmd/gc"
	rfcmd "rollfwd.dev/rollfwd/cmd/internal/cmd"
	"rollfwd.dev/rollfwd/cmd/list"
	pincmd "rollfwd.dev/rollfwd/cmd/pin"
	"rollfwd.dev/rollfwd/cmd/resolve"
	"rollfwd.dev/rollfwd/cmd/update"
	"rollfwd.dev/rollfwd/cmd/version"
	"rollfwd.dev/rollfwd/internal/config"
	"rollfwd.dev/rollfwd/internal/flags/log"
	"rollfwd.dev/rollfwd/internal/rfctx"
)

// Execute adds all child commands to the root command and runs it. This is
// called by main.main(), and it maps resolution failures onto their
// documented exit codes.
func Execute() {
	root := New()
	if err := root.Execute(); err != nil {
		os.Exit(ExitCode(err))
	}
}

// New builds the root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollfwd [sub-command]",
		Short: "Deterministic version resolution for installed toolchain components",
		Long: `rollfwd selects exactly one installed version of a toolchain component
  (runtime, SDK, workload manifest, or workload set) from a requested
  minimum version and a roll-forward policy, layered from a scope
  configuration file, environment variables and command-line flags.
  It also pins selections per scope and garbage-collects installs
  nothing references anymore.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().StringArray(rfcmd.InstallRootFlag, nil,
		`install root to scan; repeatable, first root is primary (default: $HOME/.rollfwd)`)
	cmd.PersistentFlags().String(rfcmd.ScopeFlag, "",
		`scope directory whose configuration file and pin apply (default: working directory)`)
	log.RegisterLoggingFlags(cmd)

	cmd.AddCommand(resolve.New())
	cmd.AddCommand(list.New())
	cmd.AddCommand(pincmd.New())
	cmd.AddCommand(update.New())
	cmd.AddCommand(gccmd.New())
	cmd.AddCommand(version.New())

	return cmd
}

// setup installs the logger and attaches the immutable invocation state:
// install roots, scope, and a one-time environment snapshot. Nothing below
// this point reads the process environment.
func setup(cmd *cobra.Command, args []string) error {
	logger, err := log.GetBaseLogger(cmd)
	if err != nil {
		return fmt.Errorf("could not configure logger: %w", err)
	}
	slog.SetDefault(logger)

	roots, err := cmd.Flags().GetStringArray(rfcmd.InstallRootFlag)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("determining default install root: %w", err)
		}
		roots = []string{filepath.Join(home, ".rollfwd")}
	}

	scope, err := cmd.Flags().GetString(rfcmd.ScopeFlag)
	if err != nil {
		return err
	}
	if scope == "" {
		if scope, err = os.Getwd(); err != nil {
			return fmt.Errorf("determining scope: %w", err)
		}
	}

	inv := &rfctx.Invocation{
		Roots: roots,
		Scope: scope,
		Env:   snapshotEnv(),
	}
	cmd.SetContext(rfctx.With(cmd.Context(), inv))
	return nil
}

// snapshotEnv captures the resolution-relevant environment variables once.
func snapshotEnv() config.LookupFunc {
	snapshot := make(map[string]string)
	for _, key := range []string{
		config.EnvVersion,
		config.EnvRollForward,
		config.EnvLegacyCandidate,
		config.EnvAllowPrerelease,
	} {
		if v, ok := os.LookupEnv(key); ok {
			snapshot[key] = v
		}
	}
	return config.MapLookup(snapshot)
}
