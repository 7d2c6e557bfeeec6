// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/engine"
	"github.com/pdiddy/snowball/internal/match"
	"github.com/pdiddy/snowball/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Create, list, show and remove queries",
}

// --- new subcommand ---

var queryNewCmd = &cobra.Command{
	Use:   "new <name> [seed-doi...]",
	Short: "Create a query from seed identifiers",
	Long: `New creates the query directory, writes the seed identifiers to
accepted.txt and, when keywords are given, confirms the settings so the
query is ready to expand.

Keywords are comma-separated phrases or one boolean expression such as
"(heart failure or cardiomyopathy) and not mouse".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQueryNew,
}

func runQueryNew(cmd *cobra.Command, args []string) error {
	typeName, _ := cmd.Flags().GetString("type")
	typ, err := types.ParseQueryType(typeName)
	if err != nil {
		return err
	}
	setting, err := settingFromFlags(cmd, types.QuerySetting{})
	if err != nil {
		return err
	}

	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	q, err := e.NewQuery(typ, args[0], args[1:], setting)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s, %d seeds) in %s: %s\n",
		q.Name, q.Type, len(q.Accepted), q.Dir().Path, q.Status)
	return nil
}

// --- list subcommand ---

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queries with their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		sortBy, _ := cmd.Flags().GetString("sort")
		queries := e.List(sortBy)

		out := cmd.OutOrStdout()
		if len(queries) == 0 {
			fmt.Fprintln(out, "No queries found.")
			return nil
		}
		fmt.Fprintf(out, "%-24s  %-22s  %-13s  %8s  %8s  %-16s  %s\n",
			"Name", "Type", "Status", "Accepted", "Rejected", "Last expansion", "Next")
		fmt.Fprintln(out, strings.Repeat("-", 110))
		for _, q := range queries {
			next := engine.NextAction(q)
			if q.NoNewAccepted && next != "" {
				next += " (no new papers last time)"
			}
			fmt.Fprintf(out, "%-24s  %-22s  %-13s  %8d  %8d  %-16s  %s\n",
				q.Name, q.Type, q.Status, len(q.Accepted), len(q.Rejected), formatDate(q.LastExpansionDate), next)
		}
		return nil
	},
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

// --- show subcommand ---

var queryShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the settings and counts of a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, q, err := openQuery(cmd, args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Name:      %s\n", q.Name)
		fmt.Fprintf(out, "Directory: %s\n", q.Dir().Path)
		fmt.Fprintf(out, "Type:      %s\n", q.Type)
		fmt.Fprintf(out, "Status:    %s\n", q.Status)
		fmt.Fprintf(out, "Accepted:  %d\n", len(q.Accepted))
		fmt.Fprintf(out, "Rejected:  %d\n", len(q.Rejected))
		fmt.Fprintf(out, "Expanded:  %s\n", formatDate(q.LastExpansionDate))
		fmt.Fprintf(out, "Next:      %s\n", engine.NextAction(q))
		fmt.Fprintln(out, "Settings:")
		data, err := json.MarshalIndent(q.Setting, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", data)
		return nil
	},
}

// --- remove subcommand ---

var queryRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a query and its directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		if err := e.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

// --- settings command ---

var settingsCmd = &cobra.Command{
	Use:   "settings <name>",
	Short: "Change and confirm the keyword and filter settings of a query",
	Long: `Settings updates the flags given on the command line, keeps the rest
of the stored settings, validates the keyword rules and saves them. An
uninitialized query becomes ready to expand.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, q, err := openQuery(cmd, args)
		if err != nil {
			return err
		}
		setting, err := settingFromFlags(cmd, q.Setting)
		if err != nil {
			return err
		}
		if err := e.ConfirmSettings(cmd.Context(), q, setting); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved settings of %s: %s\n", q.Name, q.Status)
		return nil
	},
}

// settingFromFlags overlays the changed setting flags on base.
func settingFromFlags(cmd *cobra.Command, base types.QuerySetting) (types.QuerySetting, error) {
	flags := cmd.Flags()
	if flags.Changed("keywords") {
		v, _ := flags.GetString("keywords")
		base.MandatoryKeyWords = match.ParseSetting(v)
	}
	if flags.Changed("forbidden") {
		v, _ := flags.GetString("forbidden")
		base.ForbiddenKeyWords = match.ParseSetting(v)
	}
	if flags.Changed("pub-date") {
		base.PubDate, _ = flags.GetString("pub-date")
	}
	if flags.Changed("pub-type") {
		base.PubType, _ = flags.GetStringSlice("pub-type")
		for _, t := range base.PubType {
			if !isArticleType(t) {
				return base, fmt.Errorf("unknown publication type %q (want one of %s)", t, strings.Join(types.ArticleTypes, ", "))
			}
		}
	}
	return base, nil
}

func isArticleType(t string) bool {
	for _, a := range types.ArticleTypes {
		if a == t {
			return true
		}
	}
	return false
}

func addSettingFlags(cmd *cobra.Command) {
	cmd.Flags().String("keywords", "", "mandatory keywords: comma-separated phrases or one boolean expression")
	cmd.Flags().String("forbidden", "", "keywords that reject a paper when found in its title")
	cmd.Flags().String("pub-date", "", "publication year filter: YYYY, YYYY-YYYY, YYYY- or -YYYY")
	cmd.Flags().StringSlice("pub-type", nil, "publication types to keep (expression search only)")
}

func init() {
	queryNewCmd.Flags().String("type", "supervised", "query type: supervised, snowball, expression or similarity")
	addSettingFlags(queryNewCmd)
	addSettingFlags(settingsCmd)
	queryListCmd.Flags().String("sort", engine.SortByName, "sort order: name or date")

	queryCmd.AddCommand(queryNewCmd)
	queryCmd.AddCommand(queryListCmd)
	queryCmd.AddCommand(queryShowCmd)
	queryCmd.AddCommand(queryRemoveCmd)

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(settingsCmd)
}
