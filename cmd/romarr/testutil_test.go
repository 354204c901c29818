package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestConfig creates a library root and a config pointing at it.
func writeTestConfig(t *testing.T) (cfgPath, root string) {
	t.Helper()
	root = t.TempDir()
	cfgPath = filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "error"

[library]
root = "` + root + `"

[import]
concurrency = 2
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0644))
	return cfgPath, root
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath = ""
		jsonOutput = false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
	})
	// Flag variables survive between executions.
	configPath = ""
	jsonOutput = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}
