package main

//
// Static plots and interactive maps
//

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/adp-wfs-client/internal/core/model"
	h3mapper "github.com/mohammed-shakir/adp-wfs-client/internal/mapper/h3"
	"github.com/mohammed-shakir/adp-wfs-client/internal/mapview"
)

func plotSubcommand(a *app) *cobra.Command {
	var (
		qf   queryFlags
		out  string
		opts mapview.PlotOptions
	)
	cmd := &cobra.Command{
		Use:   "plot [file]",
		Short: "Draws the geometries of a saved or fetched dataset as SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.loadFrame(cmd.Context(), args, &qf)
			if err != nil {
				return err
			}
			if opts.Title == "" {
				opts.Title = layerName(args, qf.typeName)
			}
			return a.writeOutput(out, func(w io.Writer) error {
				return mapview.Plot(w, f, opts)
			})
		},
	}
	qf.register(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&out, "out", "o", "plot.svg", "output file, - for stdout")
	fl.IntVar(&opts.Width, "width", 0, "image width in pixels")
	fl.IntVar(&opts.Height, "height", 0, "image height in pixels")
	fl.StringVar(&opts.Fill, "fill", "", "fill colour")
	fl.StringVar(&opts.Title, "title", "", "image title")
	return cmd
}

func mapSubcommand(a *app) *cobra.Command {
	var (
		qf       queryFlags
		out      string
		tiles    string
		hexRes   int
		maxCells int
		covRes   int
	)
	cmd := &cobra.Command{
		Use:   "map [file]",
		Short: "Renders an interactive Leaflet map",
		Long: "Renders an interactive Leaflet map. Without a dataset the map shows\n" +
			"Australia, or the --bbox outline when one is given. A saved file or a\n" +
			"--typename adds the features as a layer; --hex-res adds an H3 density\n" +
			"layer. --coverage-res adds the H3 cells covering the bbox and the\n" +
			"dataset's polygons.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := mapview.TilesByName(tiles); err != nil {
				return fmt.Errorf("%w (have %s)", err, strings.Join(mapview.TileNames(), ", "))
			}
			m := mapview.DefaultMap()
			var bb *model.BBox
			if qf.bbox != "" {
				b, err := model.ParseBBox(qf.bbox)
				if err != nil {
					return err
				}
				bb = &b
				m = mapview.ForBBox(b)
			}
			m.Tiles = tiles

			hex := h3mapper.New()
			loaded := false
			if len(args) == 1 || qf.typeName != "" {
				loaded = true
				f, err := a.loadFrame(cmd.Context(), args, &qf)
				if err != nil {
					return err
				}
				name := layerName(args, qf.typeName)
				m.AddFrame(name, "", f)
				if hexRes > 0 {
					fc, err := hex.Hexbin(f, hexRes, maxCells)
					if err != nil {
						return err
					}
					m.AddLayer(name+" density", "", fc)
				}
				if covRes > 0 {
					fc, err := hex.FeatureCoverage(f, covRes)
					if err != nil {
						return err
					}
					if len(fc.Features) > 0 {
						m.AddLayer(name+" coverage", "", fc)
					}
				}
			}
			if covRes > 0 {
				if bb == nil && !loaded {
					return fmt.Errorf("--coverage-res needs --bbox or a dataset")
				}
				if bb != nil {
					fc, err := hex.Coverage(*bb, covRes)
					if err != nil {
						return err
					}
					m.AddLayer("coverage", "", fc)
				}
			}
			if out == "-" {
				return m.Render(a.stdout)
			}
			if err := m.WriteFile(out); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, out)
			return nil
		},
	}
	qf.register(cmd)
	fl := cmd.Flags()
	fl.StringVarP(&out, "out", "o", "map.html", "output file, - for stdout")
	fl.StringVar(&tiles, "tiles", mapview.DefaultTiles, "basemap tiles")
	fl.IntVar(&hexRes, "hex-res", 0, "H3 resolution of the density layer, 0 to disable")
	fl.IntVar(&maxCells, "max-cells", 2000, "coarsen the density layer above this many cells")
	fl.IntVar(&covRes, "coverage-res", 0, "H3 resolution of the bbox and polygon coverage layers, 0 to disable")
	return cmd
}

func (a *app) writeOutput(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(a.stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, path)
	return nil
}

func layerName(args []string, typeName string) string {
	if len(args) == 1 {
		return strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	}
	return localName(typeName)
}
