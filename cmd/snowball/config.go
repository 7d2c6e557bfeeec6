// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/engine"
	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/logger"
	"github.com/pdiddy/snowball/internal/secrets"
	"github.com/pdiddy/snowball/pkg/types"
)

// loadConfig assembles the configuration from defaults, the config file,
// SNOWBALL_* environment variables and flags.
func loadConfig() types.Config {
	cfg := types.Config{
		Queries: types.QueriesConfig{
			Root:   viper.GetString("queries.root"),
			Prefix: viper.GetString("queries.prefix"),
		},
		Cache: types.CacheConfig{MaxAgeDays: viper.GetInt("cache.max_age_days")},
		Graph: types.GraphConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("graph.timeout"),
				UserAgent: viper.GetString("graph.user_agent"),
				Proxy:     viper.GetString("graph.proxy"),
			},
			Backend:           types.Backend(viper.GetString("graph.backend")),
			APIKey:            viper.GetString("graph.api_key"),
			Email:             viper.GetString("graph.email"),
			ChunkSize:         viper.GetInt("graph.chunk_size"),
			RequestsPerSecond: viper.GetFloat64("graph.requests_per_second"),
		},
		Log: types.LogConfig{
			Env:   viper.GetString("log.env"),
			Level: viper.GetString("log.level"),
		},
	}
	secrets.Apply(&cfg.Graph, loadedSecrets)
	return cfg
}

// openEngine builds the engine and loads the query list.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg := loadConfig()
	log := logger.FromContext(cmd.Context())
	client, err := graph.New(cfg.Graph, log)
	if err != nil {
		return nil, err
	}
	e := engine.New(cfg, client, log)
	if err := e.Discover(cmd.Context()); err != nil {
		return nil, err
	}
	return e, nil
}

// openQuery builds the engine and looks up the query named by args[0].
func openQuery(cmd *cobra.Command, args []string) (*engine.Engine, *engine.Query, error) {
	e, err := openEngine(cmd)
	if err != nil {
		return nil, nil, err
	}
	q, err := e.Get(args[0])
	if err != nil {
		return nil, nil, err
	}
	return e, q, nil
}

// progressPrinter reports fetch progress on w and cancels when the command
// context is done.
func progressPrinter(cmd *cobra.Command, w io.Writer) graph.Progress {
	quiet, _ := cmd.Flags().GetBool("quiet")
	ctx := cmd.Context()
	return func(title string, fraction float64, status string) bool {
		if !quiet {
			fmt.Fprintf(w, "\r%-40s %3.0f%%  %s", title, fraction*100, status)
			if fraction >= 1 {
				fmt.Fprintln(w)
			}
		}
		return ctx.Err() == nil
	}
}
