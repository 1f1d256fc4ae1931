package main

//
// Dataset discovery and retrieval subcommands
//

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/adp-wfs-client/internal/featureio"
)

func operationsSubcommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "Lists the operations advertised by the WFS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			ops, err := c.Operations(cmd.Context())
			if err != nil {
				return err
			}
			for _, op := range ops {
				fmt.Fprintln(a.stdout, op)
			}
			return nil
		},
	}
}

func contentsSubcommand(a *app) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "contents",
		Short: "Lists the datasets advertised by the WFS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			fts, err := c.Contents(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tTITLE\tCRS")
			needle := strings.ToLower(match)
			for _, ft := range fts {
				if needle != "" &&
					!strings.Contains(strings.ToLower(ft.Name), needle) &&
					!strings.Contains(strings.ToLower(ft.Title), needle) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ft.Name, ft.Title, ft.DefaultCRS)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&match, "match", "m", "", "only list datasets whose name or title contains this text")
	return cmd
}

func fetchSubcommand(a *app) *cobra.Command {
	var (
		qf  queryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Downloads a dataset and saves the response verbatim",
		Long: "Downloads a dataset with GetFeature. The body is written as returned by\n" +
			"the server to --out, which defaults to <typename>.gml or <typename>.geojson.\n" +
			"Use --out - to write to standard output.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			q, err := qf.query()
			if err != nil {
				return err
			}
			c, err := a.client(ctx)
			if err != nil {
				return err
			}
			if out == "-" {
				_, err := c.FetchTo(ctx, q, a.stdout)
				return err
			}
			if out == "" {
				out = localName(q.TypeName) + featureio.FileExt(q.OutputFormat)
			}
			s, err := c.Open(ctx, q)
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()
			n, err := featureio.Save(out, s)
			if err != nil {
				return err
			}
			a.log.Info("saved response", "path", out, "bytes", n, "content_type", s.ContentType, "cached", s.FromCache)
			fmt.Fprintf(a.stdout, "%s (%d bytes)\n", out, n)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - for stdout")
	return cmd
}

func headSubcommand(a *app) *cobra.Command {
	var (
		qf   queryFlags
		n    int
		cols []string
	)
	cmd := &cobra.Command{
		Use:   "head [file]",
		Short: "Prints the first rows of a saved or fetched dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.loadFrame(cmd.Context(), args, &qf)
			if err != nil {
				return err
			}
			if len(cols) > 0 {
				if f, err = f.Select(cols...); err != nil {
					return err
				}
			}
			return f.WriteTable(a.stdout, n)
		},
	}
	qf.register(cmd)
	cmd.Flags().IntVarP(&n, "rows", "n", 5, "number of rows, negative for all")
	cmd.Flags().StringSliceVarP(&cols, "columns", "c", nil, "columns to keep")
	return cmd
}
