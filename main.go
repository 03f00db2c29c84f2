package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/greensdlc/sustainability-dashboard/pkg/config"
	"github.com/greensdlc/sustainability-dashboard/pkg/logging"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "sustainability-dashboard",
		Short: "Carbon footprint dashboard API for software projects",
		Long: `Tracks the CO2 consumed by the infrastructure and CI/CD pipelines of software
projects and serves dashboard roll-ups over HTTP.

Running without a subcommand starts the API server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath,
		"path to the YAML config file (environment variables override it)")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	return root
}

// bootstrap loads configuration and builds the logger every command runs with.
func bootstrap(opts *globalOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath, Version)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
