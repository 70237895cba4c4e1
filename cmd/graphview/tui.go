package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/tui"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

func tuiCmd() *cobra.Command {
	var noLoad bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore the graph in the terminal",
		Long: "Explore the graph in the terminal. The mouse hovers, drags and selects nodes\n" +
			"and the wheel zooms; press ? for the key bindings.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			loader, err := a.loader(ctx)
			if err != nil {
				return err
			}

			var records []visualization.RelationRecord
			if !noLoad {
				res, err := loader.Load(ctx)
				if err != nil {
					return err
				}
				records = res.Records
			}

			return tui.Run(ctx, tui.Options{
				View:          a.viewOptions("tui", "term"),
				FrameInterval: a.cfg.FrameInterval(),
				Records:       records,
				Loader:        loader,
				Title:         "graphview · " + loader.Source().Name(),
			}, a.cfg.Source.Refresh)
		},
	}

	cmd.Flags().BoolVar(&noLoad, "no-load", false, "Start empty and load with r")
	return cmd
}
