package main

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

type statsReport struct {
	Source        string              `json:"source"`
	Records       int                 `json:"records"`
	Skipped       int                 `json:"skipped"`
	Dropped       int                 `json:"dropped"`
	RelationKinds []string            `json:"relationKinds"`
	ByKind        map[string]int      `json:"byKind"`
	Stats         visualization.Stats `json:"stats"`
}

func statsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Load the source and print node, edge and status counts",
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

			m := visualization.NewModel(res.Records, a.cfg.ModelOptions())
			report := statsReport{
				Source:        loader.Source().Name(),
				Records:       len(res.Records),
				Skipped:       len(res.Skipped),
				Dropped:       m.DroppedEdges(),
				RelationKinds: m.RelationKinds(),
				ByKind:        make(map[string]int),
				Stats:         m.Stats(),
			}
			for _, e := range m.Edges() {
				report.ByKind[e.Kind]++
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStats(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printStats(r statsReport) {
	banner("graph statistics")

	fmt.Printf("  Source:     %s\n", info.Sprint(r.Source))
	fmt.Printf("  Nodes:      %d\n", r.Stats.TotalNodes)
	fmt.Printf("  Edges:      %d\n", r.Stats.TotalEdges)
	if r.Skipped > 0 {
		fmt.Printf("  Skipped:    %s\n", bad.Sprintf("%d invalid records", r.Skipped))
	}
	if r.Dropped > 0 {
		fmt.Printf("  Dropped:    %s\n", bad.Sprintf("%d relations with a missing endpoint", r.Dropped))
	}
	fmt.Println()

	var rows [][]string
	known := visualization.Statuses()
	for _, status := range known {
		if n := r.Stats.ByStatus[status]; n > 0 {
			rows = append(rows, []string{statusDot(status) + " " + status, strconv.Itoa(n)})
		}
	}
	others := slices.Sorted(maps.Keys(r.Stats.ByStatus))
	for _, status := range others {
		if slices.Contains(known, status) {
			continue
		}
		label := status
		if label == "" {
			label = "(none)"
		}
		rows = append(rows, []string{statusDot(status) + " " + label, strconv.Itoa(r.Stats.ByStatus[status])})
	}
	table([]string{"Status", "Nodes"}, rows)
	fmt.Println()

	rows = rows[:0]
	for _, kind := range r.RelationKinds {
		rows = append(rows, []string{relationDot(kind) + " " + kind, strconv.Itoa(r.ByKind[kind])})
	}
	table([]string{"Relation", "Edges"}, rows)
}
