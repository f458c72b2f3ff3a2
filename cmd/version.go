package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the heblo-mcp version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Printf("heblo-mcp %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
