package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	rootWorkspace string
	rootVerbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Guided business idea discovery",
	Long: `compass walks a business idea through four stages: Discovery,
Validation, MVP, and Launch. You capture the idea in your own words;
compass synthesizes research scaffolding from it, keeps that scaffolding
consistent as the idea evolves, and tracks progress toward launch.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command under a cancellable context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootWorkspace, "dir", "C", ".", "project directory containing the .compass workspace")
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "enable debug logging")
}
