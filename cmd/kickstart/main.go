package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/waabox/kickstart/internal/config"
	"github.com/waabox/kickstart/internal/logging"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// OAuth application IDs used when the config does not set client_id.
// Device flow clients are public (no secret), so they are safe to ship in the binary.
// Override at build time with -ldflags "-X main.defaultGitHubClientID=...".
var (
	defaultGitHubClientID = ""
	defaultGitLabClientID = "9df6c8abe93dc879a79ecf7681909b4a37d5c61064190a795bbf16e1ed8bffa3"
)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kickstart",
		Short:         "Create a new project from a template",
		Long:          `Scaffold a project from a template, commit it, and optionally create and push a GitHub or GitLab repository.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(os.Stderr, a.logLevel)
			cfg, err := config.LoadFrom(a.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultConfigPath(), "path to the config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error, quiet)")

	root.AddCommand(newNewCmd(a))
	root.AddCommand(newLoginCmd(a))
	root.AddCommand(newDoctorCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kickstart version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kickstart", version)
		},
	}
}
