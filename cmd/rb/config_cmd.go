package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/studyreward/rewardbook/internal/config"
	"github.com/studyreward/rewardbook/internal/ui"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "admin",
	Short:   "Inspect and create configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		force, _ := cmd.Flags().GetBool("force")

		path := "rewardbook.yaml"
		if format == config.FormatTOML {
			path = "rewardbook.toml"
		}
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteDefault(path, format, force); err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		data, err := config.Marshal(cfg, format)
		if err != nil {
			return err
		}
		if used := v.ConfigFileUsed(); used != "" {
			fmt.Fprintf(os.Stderr, "# from %s\n", used)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().String("format", "", "yaml or toml (default: from the file extension)")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	configShowCmd.Flags().String("format", config.FormatYAML, "yaml or toml")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
