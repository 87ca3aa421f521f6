package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/adalundhe/museswarm/core/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfig(cmd.OutOrStdout(), app.manager.Get())
	},
}

var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List the config files that are read, lowest precedence first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		printPaths(cmd.OutOrStdout(), app.manager.Paths())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathsCmd)
}

func writeConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func printPaths(w io.Writer, paths []string) {
	for _, p := range paths {
		mark := " "
		if _, err := os.Stat(p); err == nil {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %s\n", mark, p)
	}
}
