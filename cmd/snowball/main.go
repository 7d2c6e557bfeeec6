// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the snowball CLI. Each subcommand
// drives one engine operation on a query directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/snowball/internal/logger"
	"github.com/pdiddy/snowball/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

var rootCmd = &cobra.Command{
	Use:   "snowball",
	Short: "Citation snowballing over scholarly-graph APIs",
	Long: `snowball grows a set of papers from seed DOIs by following citations and
references through Semantic Scholar or OpenAlex, filtering each expansion by
keyword rules until no new qualifying papers appear.

Each query lives in its own directory under the query root. Create one with
"query new", then alternate "expand", "filter" and "accept", or let "run"
pick the next step.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, err := logger.New(viper.GetString("log.env"), viper.GetString("log.level"))
		if err != nil {
			return err
		}
		cmd.SetContext(logger.WithContext(cmd.Context(), log))

		secretsDir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(secretsDir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", zap.Strings("keys", keys))
		}

		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			serveMetrics(cmd.Context(), addr, log)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.FromContext(cmd.Context()).Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./snowball.yaml or ~/.config/snowball/snowball.yaml)")
	flags.String("root", "", "directory holding the query directories")
	flags.String("backend", "", "scholarly-graph backend: S2 or OpenAlex")
	flags.String("secrets-dir", secrets.DefaultDir, "directory of credential files")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolP("quiet", "q", false, "suppress progress output")

	_ = viper.BindPFlag("queries.root", flags.Lookup("root"))
	_ = viper.BindPFlag("graph.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
}

func initConfig() {
	viper.SetDefault("queries.root", ".")
	viper.SetDefault("queries.prefix", "Query-")
	viper.SetDefault("cache.max_age_days", 31)
	viper.SetDefault("graph.backend", "S2")
	viper.SetDefault("graph.chunk_size", 30)
	viper.SetDefault("graph.requests_per_second", 1.0)
	viper.SetDefault("graph.timeout", "30s")
	viper.SetDefault("log.env", "local")
	viper.SetDefault("log.level", "warn")

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("snowball")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "snowball"))
		}
	}

	viper.SetEnvPrefix("SNOWBALL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
