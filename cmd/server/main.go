// deepscan serves the media authenticity API and offers one-shot local analysis.
//
// Usage:
//
//	deepscan serve [--config=<file>]
//	deepscan migrate [--config=<file>]
//	deepscan analyze <path> [--config=<file>]
package main

import (
    "fmt"
    "os"

    "github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
    configPath string
}

var rootCmd = &cobra.Command{
    Use:   "deepscan",
    Short: "Deepfake and manipulation analysis for images, video and audio",
    CompletionOptions: cobra.CompletionOptions{
        HiddenDefaultCmd: true,
    },
    SilenceUsage: true,
}

func init() {
    rootCmd.PersistentFlags().StringVar(&rootFlags.configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
    rootCmd.AddCommand(serveCmd)
    rootCmd.AddCommand(migrateCmd)
    rootCmd.AddCommand(analyzeCmd)
    rootCmd.Version = version
}

func main() {
    if err := rootCmd.Execute(); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}
