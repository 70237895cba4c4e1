package main

import (
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/source"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Snapshot the configured source into a local relations file",
		Long: "Snapshot the configured source into a local relations file. The name picks\n" +
			"the format: .json, .yaml or .yml, with an optional .sz suffix for snappy.",
		Example: "  graphview export relations.json.sz",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := source.WriteFile(args[0], res.Records); err != nil {
				return err
			}

			good.Printf("✓ exported %d relations to %s\n", len(res.Records), args[0])
			if len(res.Skipped) > 0 {
				bad.Printf("  %d invalid records were left out\n", len(res.Skipped))
			}
			return nil
		},
	}
}
