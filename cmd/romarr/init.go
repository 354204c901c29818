package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runInitCmd,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("path", "", "Where to write the config (default: $XDG_CONFIG_HOME/romarr/config.toml)")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

func runInitCmd(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	force, _ := cmd.Flags().GetBool("force")
	if path == "" {
		path = config.DefaultPath()
	}

	if err := config.WriteDefault(path, force); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit [library] root, then run 'romarr import'.")
	return nil
}
