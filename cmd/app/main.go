package main

import (
	"fmt"
	"os"

	"StockBrain/internal/di"
	"StockBrain/pkg/config"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	checkConfig bool
)

var rootCmd = &cobra.Command{
	Use:           "stockbrain",
	Short:         "Serve price forecasts over HTTP and run forecast jobs",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if checkConfig {
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: env=%s source=%s interval=%s port=%d\n",
				cfg.Environment, cfg.Source.Type, cfg.Source.Interval, cfg.Server.Port)
			return nil
		}

		app, err := di.InitializeApp(cfg)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
		// blocks until SIGINT/SIGTERM
		return app.Run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "config file path")
	rootCmd.Flags().BoolVar(&checkConfig, "check", false, "validate the config and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stockbrain:", err)
		os.Exit(1)
	}
}
