// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/snowball/internal/archive"
	"github.com/pdiddy/snowball/internal/querydir"
)

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export the archived papers of a query as RIS or CSL-YAML",
	Long: `Export writes the archive of a query to exported.ris (--format ris) or
exported.yaml (--format csl) inside the query directory, or to --out.
Use --out - to write to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")
	acceptedOnly, _ := cmd.Flags().GetBool("accepted-only")

	_, q, err := openQuery(cmd, args)
	if err != nil {
		return err
	}
	papers, err := archive.New(q.Dir()).Load()
	if err != nil {
		return err
	}
	if acceptedOnly {
		kept := papers[:0]
		for _, p := range papers {
			if q.Accepted.Has(p.PaperID) {
				kept = append(kept, p)
			}
		}
		papers = kept
	}

	var (
		buf  bytes.Buffer
		file string
	)
	switch format {
	case "ris", "":
		err = archive.FormatRIS(papers, &buf)
		file = querydir.ExportRIS
	case "csl", "yaml":
		err = archive.FormatCSL(papers, &buf)
		file = querydir.ExportCSL
	default:
		return fmt.Errorf("unsupported format %q: use ris or csl", format)
	}
	if err != nil {
		return err
	}

	switch out {
	case "-":
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	case "":
		if err := q.Dir().WriteFile(file, buf.Bytes()); err != nil {
			return err
		}
		out = q.Dir().File(file)
	default:
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d papers to %s\n", len(papers), out)
	return nil
}

func init() {
	exportCmd.Flags().String("format", "ris", "export format: ris or csl")
	exportCmd.Flags().String("out", "", "output file (default: inside the query directory)")
	exportCmd.Flags().Bool("accepted-only", false, "export only papers in the accepted set")
	rootCmd.AddCommand(exportCmd)
}
