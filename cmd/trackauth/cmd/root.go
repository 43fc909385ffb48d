package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trackauth",
	Short: "trackauth runs the student-tracker authentication service",
	Long: `Credential and session lifecycle for the student-application tracker.

Configuration is read from the environment (ACCESS_SECRET, REFRESH_SECRET,
ACCESS_TTL, HASH_COST, STORE, ...) or a file named by CONFIG_PATH.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
