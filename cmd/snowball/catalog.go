// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/snowball/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Index and search the archives of all queries",
	Long: `Catalog keeps a SQLite full-text index over the archived papers of every
query so a paper can be found across queries. Use "catalog index" after
queries change and "catalog search" to look papers up.`,
}

var catalogIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the query archives; unchanged archives are skipped",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		cfg := loadConfig()
		summary, err := store.Index(cmd.Context(), cfg.Queries.Root, cfg.Queries.Prefix, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d query archive(s) failed indexing", summary.Failed)
		}
		return nil
	},
}

var catalogSearchCmd = &cobra.Command{
	Use:   "search <text...>",
	Short: "Full-text search over titles, abstracts and summaries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		hits, err := store.Search(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}
		if len(hits) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		fmt.Fprintf(out, "%-20s  %-30s  %-10s  %s\n", "Query", "Paper", "Date", "Title")
		fmt.Fprintln(out, strings.Repeat("-", 100))
		for _, h := range hits {
			fmt.Fprintf(out, "%-20s  %-30s  %-10s  %s\n",
				truncate(h.Query, 20), truncate(h.PaperID, 30), h.Date, truncate(h.Title, 60))
		}
		fmt.Fprintf(out, "\n%d results\n", len(hits))
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = filepath.Join(viper.GetString("queries.root"), catalog.FileName)
	}
	return catalog.Open(path)
}

func init() {
	catalogCmd.PersistentFlags().String("db", "", "catalog database (default: catalog.db in the query root)")
	catalogSearchCmd.Flags().Int("limit", 20, "maximum number of results")
	catalogSearchCmd.Flags().Bool("json", false, "output results as JSON")

	catalogCmd.AddCommand(catalogIndexCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	rootCmd.AddCommand(catalogCmd)
}
