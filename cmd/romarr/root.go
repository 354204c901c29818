package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "romarr",
	Short: "Import and catalog game ROMs",
	Long: `romarr - import pipeline for a game ROM library

Classifies files dropped into the intake directory by system, groups
multi-file discs, moves them into the library and records them in
the catalog. Anything that cannot be placed goes to the conflicts area.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code for non-fatal outcomes such as a
// batch that left conflicts behind.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("romarr {{.Version}}\n")
}
