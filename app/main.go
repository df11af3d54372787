package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML configuration file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "todo-ai",
	Short: "Todo service with natural-language task entry",
	Long: `todo-ai stores per-user tasks in Neo4j and turns free-form text into
task lists with an OpenAI-compatible language model.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(extractCmd)
}
