package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagHook   string
	flagMode   string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "loupe",
	Short:         "Editor intelligence for sandboxed Lua hook scripts",
	Long:          "Loupe analyzes pipeline hook scripts: diagnostics, completion, hover, and signature help, with full knowledge of the script sandbox.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagHook, "hook", "", "hook the scripts run under (e.g. on_task_complete)")
	rootCmd.PersistentFlags().StringVar(&flagMode, "mode", "", "execution mode for return-shape checking: transform|filter|notify")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(hoverCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(signatureCmd)
}
