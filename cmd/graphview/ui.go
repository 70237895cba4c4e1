package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

var (
	brand  = color.New(color.FgHiCyan, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
	info   = color.New(color.FgCyan)
)

func banner(subtitle string) {
	fmt.Printf("%s %s\n\n", brand.Sprint("graphview"), subtle.Sprint("· "+subtitle))
}

// swatch colors text with a palette hex color
func swatch(hex, text string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return text
	}
	r, g, b := c.RGB255()
	return color.RGB(int(r), int(g), int(b)).Sprint(text)
}

func statusDot(status string) string {
	return swatch(visualization.StatusColor(status), "●")
}

func relationDot(kind string) string {
	return swatch(visualization.RelationColor(kind), "─▶")
}

// table prints rows aligned under headers
func table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Print("  " + subtle.Sprint(pad(h, widths[i])))
	}
	fmt.Println()
	for _, row := range rows {
		for i, cell := range row {
			fmt.Print("  " + pad(cell, widths[i]))
		}
		fmt.Println()
	}
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
