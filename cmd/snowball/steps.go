// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/engine"
	"github.com/pdiddy/snowball/internal/graph"
	"github.com/pdiddy/snowball/internal/ident"
	"github.com/pdiddy/snowball/pkg/types"
)

type stepFunc func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error)

// stepCommand runs one engine operation on the query named by the first
// argument and prints the result.
func stepCommand(step stepFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, q, err := openQuery(cmd, args)
		if err != nil {
			return err
		}
		res, err := step(cmd.Context(), e, q, progressPrinter(cmd, cmd.ErrOrStderr()))
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), q, res)
		return nil
	}
}

func printResult(w io.Writer, q *engine.Query, r engine.Result) {
	switch {
	case r.Skipped:
		fmt.Fprintf(w, "%s: another expansion is running, skipped\n", q.Name)
		return
	case !r.Completed:
		fmt.Fprintf(w, "%s: cancelled, nothing changed\n", q.Name)
		return
	case r.Exploded:
		fmt.Fprintf(w, "%s: expansion exploded with %d new papers (limit %d); narrow the query\n",
			q.Name, r.New, engine.ExplodedLimit)
		return
	}
	fmt.Fprintf(w, "%s: %s", q.Name, q.Status)
	if r.Missing > 0 || r.New > 0 {
		fmt.Fprintf(w, ", looked up %d, found %d new", r.Missing, r.New)
	}
	if r.Retained > 0 || r.Rejected > 0 {
		fmt.Fprintf(w, ", retained %d, rejected %d", r.Retained, r.Rejected)
	}
	if r.Accepted > 0 {
		fmt.Fprintf(w, ", accepted %d", r.Accepted)
	}
	if r.Exhausted {
		fmt.Fprint(w, ", nothing left to expand")
	}
	fmt.Fprintln(w)
}

var expandCmd = &cobra.Command{
	Use:   "expand [name...]",
	Short: "Expand queries by one citation hop",
	Long: `Expand looks up the citations and references of every accepted paper,
using the per-query cache where it is fresh, and writes the identifiers not
seen before to expanded.txt. With several names or --all the queries are
expanded concurrently.`,
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	parallel, _ := cmd.Flags().GetInt("parallel")

	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	names := args
	if all {
		names = nil
		for _, q := range e.List(engine.SortByName) {
			if q.Status == types.StatusFiltered2 && engine.Snowballs(q.Type) {
				names = append(names, q.Name)
			}
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no query to expand: give names or --all")
	}

	results, err := e.ExpandAll(cmd.Context(), names, parallel, progressPrinter(cmd, cmd.ErrOrStderr()))
	sort.Strings(names)
	for _, name := range names {
		res, ok := results[name]
		if !ok {
			continue
		}
		q, _ := e.Get(name)
		printResult(cmd.OutOrStdout(), q, res)
	}
	return err
}

var filterCmd = &cobra.Command{
	Use:   "filter <name>",
	Short: "Filter the expanded papers by the keyword rules",
	Args:  cobra.ExactArgs(1),
	RunE: stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error) {
		return e.Filter1(ctx, q, p)
	}),
}

var acceptCmd = &cobra.Command{
	Use:   "accept <name>",
	Short: "Finish the review of filtered papers",
	Long: `Accept moves the papers waiting in filtered.txt to the accepted set.
Identifiers given with --reject go to the rejected set instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rejectIDs, _ := cmd.Flags().GetStringSlice("reject")
		tags := make(map[string]types.Tag, len(rejectIDs))
		for _, id := range rejectIDs {
			tags[ident.Canonical(id)] = types.TagRejected
		}
		return stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, _ graph.Progress) (engine.Result, error) {
			return e.FinishReview(ctx, q, tags)
		})(cmd, args)
	},
}

var runCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run the next step of a query",
	Long: `Run performs what the query type calls for: a bulk search for
expression queries, recommendations for similarity queries, the automatic
expand-filter-accept loop for snowballing queries, and the next expand or
filter step for supervised queries.`,
	Args: cobra.ExactArgs(1),
	RunE: stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error) {
		return e.Run(ctx, q, p)
	}),
}

var snowballCmd = &cobra.Command{
	Use:   "snowball <name>",
	Short: "Expand, filter and accept until no new papers qualify",
	Args:  cobra.ExactArgs(1),
	RunE: stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error) {
		return e.AutoSnowball(ctx, q, p)
	}),
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Run the query keywords as a bulk search",
	Args:  cobra.ExactArgs(1),
	RunE: stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error) {
		return e.ExpressionSearch(ctx, q, p)
	}),
}

var similarCmd = &cobra.Command{
	Use:   "similar <name>",
	Short: "Add papers recommended as similar to the accepted ones",
	Args:  cobra.ExactArgs(1),
	RunE: stepCommand(func(ctx context.Context, e *engine.Engine, q *engine.Query, p graph.Progress) (engine.Result, error) {
		return e.SimilaritySearch(ctx, q, p)
	}),
}

func init() {
	expandCmd.Flags().Bool("all", false, "expand every query that is ready to expand")
	expandCmd.Flags().Int("parallel", 2, "queries expanded at the same time")
	acceptCmd.Flags().StringSlice("reject", nil, "paper ids to reject instead of accept")

	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(acceptCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(snowballCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
}
