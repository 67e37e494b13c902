package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/config"
)

var initCmd = &cobra.Command{
	Use:   initCmdStr,
	Short: "Create the strata home directory layout",
	Long: "Create the strata home directory (" + config.StrataDirpathEnvVar + " or ~/" + config.DefaultStrataDirname + ") with\n" +
		"empty base/ and stacks/ directories and a default config.yml.",
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	// PersistentPreRunE already created the layout; this just confirms it.
	fmt.Printf("Initialized strata home at %s\n", strataDirpath)
	fmt.Printf("  %s/\tbase layer, applied to every composition\n", config.BaseDirname)
	fmt.Printf("  %s/\tone directory per stack\n", config.StacksDirname)
	fmt.Printf("  %s\ttool configuration\n", config.ConfigFilename)
	fmt.Printf("\nOptional files: %s (stack metadata), %s (install profiles)\n",
		config.RegistryFilename, config.ProfilesFilename)
	return nil
}
