package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   versionCmdStr,
	Short: "Print the strata version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("strata version %s\n", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
