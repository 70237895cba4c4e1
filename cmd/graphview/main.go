// Command graphview serves, renders and explores relationship graphs.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.3.0"

// global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "graphview",
	Short: "graphview: force-directed relationship graphs",
	Long: brand.Sprint("graphview") + " lays out CMDB relationships as a live force-directed graph\n" +
		subtle.Sprint("Serve it over HTTP and websockets, explore it in the terminal, or render still frames"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("graphview {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		serveCmd(),
		tuiCmd(),
		renderCmd(),
		statsCmd(),
		exportCmd(),
		watchCmd(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		bad.Fprintf(os.Stderr, "graphview: %v\n", err)
		os.Exit(1)
	}
}
