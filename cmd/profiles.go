package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/profile"
	"github.com/layerworks/strata/internal/tableprinter"
)

var profilesCmd = &cobra.Command{
	Use:   profilesCmdStr,
	Short: "List the configured install profiles",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

func runProfiles(cmd *cobra.Command, args []string) error {
	profilesFilepath := config.GetProfilesFilepath(strataDirpath)
	profiles, err := profile.ReadProfiles(profilesFilepath)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Printf("No profiles defined in '%s'\n", profilesFilepath)
		return nil
	}

	tbl := tableprinter.NewTable("NAME", "STACKS", "DESCRIPTION")
	for _, name := range profiles.Names() {
		prof := profiles[name]
		displayName := name
		if name == strataConfig.DefaultProfile {
			displayName = name + " (default)"
		}
		tbl.AddRow(displayName, strings.Join(prof.Stacks, "+"), prof.Description)
	}
	tbl.Print()
	return nil
}
