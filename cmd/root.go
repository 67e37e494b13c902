package cmd

import (
	"github.com/kurtosis-tech/stacktrace"
	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/config"
)

var strataDirpath string
var strataConfig *config.StrataConfig

var rootCmd = &cobra.Command{
	Use:   strataCmdStr,
	Short: "Strata — layered Claude Code configuration manager",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dirpath, err := config.GetStrataDirpath()
		if err != nil {
			return stacktrace.Propagate(err, "failed to get strata directory path")
		}
		strataDirpath = dirpath

		if err := config.EnsureDirStructure(strataDirpath); err != nil {
			return stacktrace.Propagate(err, "failed to ensure directory structure")
		}

		cfg, err := config.ReadStrataConfig(strataDirpath)
		if err != nil {
			return stacktrace.Propagate(err, "failed to read strata config")
		}
		strataConfig = cfg

		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command, for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}
