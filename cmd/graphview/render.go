package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
)

func renderCmd() *cobra.Command {
	var (
		output        string
		format        string
		width, height int
		ticks         int
		search, kind  string
		selectID      string
		fit           bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Settle the layout and write a still frame (svg, png or term)",
		Example: "  graphview render -o graph.svg\n" +
			"  graphview render -o graph.png --width 1600 --height 1200\n" +
			"  graphview render --format term --kind RUNS_ON\n" +
			"  graphview render -o graph.svg --fit",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(output), ".")
			}
			switch format {
			case "svg", "png", "term":
			case "":
				format = "term"
			default:
				return fmt.Errorf("unknown format %q (want svg, png or term)", format)
			}

			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			loader, err := a.loader(cmd.Context())
			if err != nil {
				return err
			}
			res, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}

			opts := a.viewOptions("cli", format)
			opts.AutoStart = false
			frames := scheduler.NewManualFrames(time.Now(), a.cfg.FrameInterval())
			view := graphview.New(frames, render.NewSVGSurface(io.Discard), opts)
			defer view.Close()

			view.Load(res.Records)
			if ticks <= 0 {
				ticks = view.Model().Config().Iterations
			}
			energy := view.Settle(ticks)
			if fit {
				view.Fit()
			}
			view.SetSearch(search)
			view.SetRelationFilter(kind)
			if selectID != "" {
				if err := view.NavigateTo(selectID); err != nil {
					return err
				}
			}
			view.SetFrameSize(width, height)

			if err := writeFrame(view, format, output); err != nil {
				return err
			}
			if output != "" {
				good.Printf("✓ wrote %s ", output)
				subtle.Printf("(%d nodes, %d ticks, energy %.3f)\n", view.Stats().TotalNodes, ticks, energy)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file; empty writes to stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "svg, png or term (default from the output extension)")
	cmd.Flags().IntVar(&width, "width", 0, "Frame width (0 uses the canvas width)")
	cmd.Flags().IntVar(&height, "height", 0, "Frame height (0 uses the canvas height)")
	cmd.Flags().IntVar(&ticks, "ticks", 0, "Simulation ticks before drawing (0 uses scheduler.settle)")
	cmd.Flags().BoolVar(&fit, "fit", false, "Stretch the settled layout to fill the padded canvas")
	cmd.Flags().StringVar(&search, "search", "", "Only draw nodes whose name or category matches")
	cmd.Flags().StringVar(&kind, "kind", "", "Only draw relations of this kind")
	cmd.Flags().StringVar(&selectID, "select", "", "Highlight this node")
	return cmd
}

func writeFrame(view *graphview.View, format, output string) (err error) {
	var w io.Writer = os.Stdout
	if output != "" {
		f, ferr := os.Create(output)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	bw := bufio.NewWriter(w)

	switch format {
	case "svg":
		err = view.RenderTo(render.NewSVGSurface(bw))
	case "png":
		surface := render.NewRasterSurface()
		if err = view.RenderTo(surface); err == nil {
			err = surface.EncodePNG(bw)
		}
	case "term":
		cols, rows := terminalSize()
		surface := render.NewTermSurface(cols, rows)
		if err = view.RenderTo(surface); err == nil {
			_, err = fmt.Fprintln(bw, surface.String())
		}
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return bw.Flush()
}

// terminalSize reads COLUMNS and LINES, falling back to 100x30
func terminalSize() (cols, rows int) {
	cols, rows = 100, 30
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		cols = n
	}
	if n, err := strconv.Atoi(os.Getenv("LINES")); err == nil && n > 2 {
		rows = n - 2
	}
	return cols, rows
}
