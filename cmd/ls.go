package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/layer"
	"github.com/layerworks/strata/internal/tableprinter"
)

var lsCmd = &cobra.Command{
	Use:   lsCmdStr,
	Short: "List the available stacks",
	Args:  cobra.NoArgs,
	RunE:  runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	stacksDirpath := effectiveStacksDirpath()
	stackNames, err := layer.ListStacks(stacksDirpath)
	if err != nil {
		return err
	}
	if len(stackNames) == 0 {
		fmt.Printf("No stacks found in '%s'\n", stacksDirpath)
		return nil
	}

	registry, err := layer.ReadRegistry(config.GetRegistryFilepath(strataDirpath))
	if err != nil {
		return err
	}

	tbl := tableprinter.NewTable("NAME", "AGENTS", "SKILLS", "HOOKS", "COMMANDS", "DEPENDS", "DESCRIPTION")
	for _, name := range stackNames {
		stackLayer := layer.Layer{Name: name, Dirpath: filepath.Join(stacksDirpath, name)}

		counts := make(map[string]int, len(layer.NamedItemDirnames))
		for _, roleDirname := range layer.NamedItemDirnames {
			itemNames, err := stackLayer.ItemNames(roleDirname)
			if err != nil {
				return err
			}
			counts[roleDirname] = len(itemNames)
		}

		declared, _, err := stackLayer.Dependencies()
		if err != nil {
			return err
		}
		info := registry[name]
		if info.Extends != "" {
			declared = append([]string{info.Extends}, declared...)
		}

		tbl.AddRow(
			name,
			counts["agents"],
			counts["skills"],
			counts["hooks"],
			counts["commands"],
			strings.Join(declared, ","),
			info.Description,
		)
	}
	tbl.Print()
	return nil
}
