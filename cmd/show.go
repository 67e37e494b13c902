package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/config"
	"github.com/layerworks/strata/internal/layer"
)

var showCmd = &cobra.Command{
	Use:   showCmdStr + " <stack>",
	Short: "Show one stack's contents, dependencies, and resolved layer order",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	stackName := args[0]

	resolver, err := newResolver()
	if err != nil {
		return err
	}
	resolution, err := resolver.Resolve([]string{stackName})
	if err != nil {
		return err
	}
	printResolutionWarnings(resolution)

	stackLayer := layer.Layer{
		Name:    stackName,
		Dirpath: filepath.Join(effectiveStacksDirpath(), stackName),
	}

	registry, err := layer.ReadRegistry(config.GetRegistryFilepath(strataDirpath))
	if err != nil {
		return err
	}
	info := registry[stackName]

	fmt.Printf("Stack: %s\n", stackName)
	if info.Description != "" {
		fmt.Printf("Description: %s\n", info.Description)
	}
	if info.Extends != "" {
		fmt.Printf("Extends: %s\n", info.Extends)
	}
	if len(info.CompatibleWith) > 0 {
		fmt.Printf("Compatible with: %s\n", strings.Join(info.CompatibleWith, ", "))
	}

	declared, _, err := stackLayer.Dependencies()
	if err != nil {
		return err
	}
	if len(declared) > 0 {
		fmt.Printf("Depends: %s\n", strings.Join(declared, ", "))
	}
	fmt.Printf("Resolves to: %s\n", strings.Join(resolution.LayerNames(), " + "))

	for _, roleDirname := range append(append([]string{}, layer.NamedItemDirnames...), layer.OpaqueDirnames...) {
		itemNames, err := stackLayer.ItemNames(roleDirname)
		if err != nil {
			return err
		}
		if len(itemNames) == 0 {
			continue
		}
		fmt.Printf("\n%s (%d):\n", roleDirname, len(itemNames))
		for _, itemName := range itemNames {
			fmt.Printf("  %s\n", itemName)
		}
	}

	var documents []string
	if _, found, err := stackLayer.Settings(); err != nil {
		return err
	} else if found {
		documents = append(documents, config.SettingsFilename)
	}
	if _, found, err := stackLayer.ClaudeMd(); err != nil {
		return err
	} else if found {
		documents = append(documents, config.ClaudeMdFilename)
	}
	if len(documents) > 0 {
		fmt.Printf("\nDocuments: %s\n", strings.Join(documents, ", "))
	}

	passthrough, err := stackLayer.PassthroughFilenames()
	if err != nil {
		return err
	}
	if len(passthrough) > 0 {
		fmt.Printf("Passthrough files: %s\n", strings.Join(passthrough, ", "))
	}
	return nil
}
