package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	listenAddr string
	workers    int64
	overrides  = newOverrideFlag()
)

var rootCmd = &cobra.Command{
	Use:   "xlatorfsd",
	Short: "Run a translator graph loaded from a config file",
	Long: `xlatorfsd assembles a translator graph from a config file, starts the
synctask worker pool and its RPC connections, and serves until signaled.
It contains no translator behavior of its own; translators are supplied
by whatever registers them against this daemon's config.Registry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the graph config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "metrics-addr", ":9080", "address to serve /metrics on")
	rootCmd.PersistentFlags().Int64Var(&workers, "workers", 16, "maximum concurrently runnable synctasks")
	rootCmd.PersistentFlags().VarP(overrides, "set", "s", "override a graph config key, repeatable (key=value)")
	_ = rootCmd.MarkPersistentFlagRequired("config")
}

// pflag.Value is satisfied structurally; this line only documents the
// intent at the point of use, since VarP above is where it matters.
var _ pflag.Value = (*overrideFlag)(nil)

func loadViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	for key, value := range overrides.values {
		v.Set(key, value)
	}
	return v, nil
}

// Execute runs the root command under ctx, which main cancels on
// SIGINT/SIGTERM so run's blocking wait unwinds cleanly.
func Execute(ctx context.Context) {
	rootCmd.SetContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("xlatorfsd exiting")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
