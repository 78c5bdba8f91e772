package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/arrowload/pkg/connector/sources"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/loader"
)

type columnReport struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Strict   string `json:"strict,omitempty"`
	Extended string `json:"extended,omitempty"`
}

type inspectReport struct {
	Source  string         `json:"source"`
	Format  string         `json:"format"`
	Batches int            `json:"batches"`
	Rows    int64          `json:"rows"`
	Columns []columnReport `json:"columns"`
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect SOURCE",
		Short: "Show the schema, row count and column mapping of a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, map[string]string{
				"performance.read_batch_size": "read-batch-size",
			})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			src, err := sources.Open(ctx, args[0], cfg)
			if err != nil {
				return err
			}
			defer src.Close()

			report := inspectReport{Source: args[0], Format: string(src.Format())}
			for {
				rec, err := src.Next(ctx)
				if err == io.EOF {
					break
				}
				if err != nil {
					return errors.SourceFormat(args[0], err)
				}
				report.Batches++
				report.Rows += rec.NumRows()
				rec.Release()
			}

			for _, f := range src.Schema().Fields() {
				c := columnReport{Name: f.Name, Type: f.Type.String()}
				if t, err := loader.MapType(f.Type, loader.Strict); err == nil {
					c.Strict = string(t)
				}
				if t, err := loader.MapType(f.Type, loader.Extended); err == nil {
					c.Extended = string(t)
				}
				report.Columns = append(report.Columns, c)
			}

			if asJSON {
				return writeJSON(cmd, report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	cmd.Flags().Int("read-batch-size", 0, "Rows per batch read from Parquet sources")
	return cmd
}

func printReport(w io.Writer, r inspectReport) error {
	fmt.Fprintf(w, "%s (%s): %d rows in %d batches\n\n", r.Source, r.Format, r.Rows, r.Batches)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tSTRICT\tEXTENDED")
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Type, orDash(c.Strict), orDash(c.Extended))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
