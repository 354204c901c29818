package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "romarr", "config.toml")

	out, err := execute(t, "init", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	_, err = execute(t, "init", "--path", path)
	require.ErrorIs(t, err, os.ErrExist)

	_, err = execute(t, "init", "--path", path, "--force")
	require.NoError(t, err)
}

func TestImportCmd_JSON(t *testing.T) {
	cfgPath, root := writeTestConfig(t)
	src := filepath.Join(root, "import", "Kart Fighter (Unl).nes")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("HEADERHEADERHEADkart fighter rom"), 0644))

	out, err := execute(t, "--config", cfgPath, "--json", "import")
	require.NoError(t, err)

	var got batchView
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "committed", got.Items[0].Status)
	assert.Equal(t, []string{"nes"}, got.Items[0].Systems)
	assert.Equal(t, filepath.Join(root, "roms", "nes", "Kart Fighter (Unl).nes"), got.Items[0].Dest)
	assert.Equal(t, 1, got.Committed)
	assert.False(t, got.EncounteredConflicts)
	assert.FileExists(t, filepath.Join(root, "romarr.db"))

	out, err = execute(t, "--config", cfgPath, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "imported")
	assert.Contains(t, out, "Kart Fighter (Unl).nes")

	out, err = execute(t, "--config", cfgPath, "--json", "systems")
	require.NoError(t, err)
	var views []systemView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	for _, v := range views {
		if v.ID == "nes" {
			assert.Equal(t, 1, v.Games)
		}
	}
}

func TestImportCmd_ConflictsExitCode(t *testing.T) {
	cfgPath, root := writeTestConfig(t)
	src := filepath.Join(root, "import", "readme.bin")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("not a rom"), 0644))

	out, err := execute(t, "--config", cfgPath, "import")
	require.Error(t, err)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.code)
	assert.Contains(t, out, "conflicted")

	out, err = execute(t, "--config", cfgPath, "--json", "conflicts")
	require.NoError(t, err)
	var files []conflictFile
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(root, "conflicts", "readme.bin"), files[0].Path)
	assert.NotEmpty(t, files[0].Reason)
}

func TestImportCmd_NothingToImport(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to import")
}

func TestImportCmd_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "absent.toml"), "import")
	require.Error(t, err)
}

func TestEventsCmd(t *testing.T) {
	cfgPath, root := writeTestConfig(t)
	src := filepath.Join(root, "import", "Kart Fighter (Unl).nes")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("HEADERHEADERHEADkart fighter rom"), 0644))
	_, err := execute(t, "--config", cfgPath, "import")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "events")
	require.NoError(t, err)
	assert.Contains(t, out, "batch.completed")
	assert.Contains(t, out, "import.committed")

	out, err = execute(t, "--config", cfgPath, "--json", "events", "--type", "import.committed", "--since", "1h")
	require.NoError(t, err)
	var got []struct {
		Type  string `json:"type"`
		Event struct {
			Kind string `json:"kind"`
			Dest string `json:"dest"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "import.committed", got[0].Type)
	assert.Equal(t, filepath.Join(root, "roms", "nes", "Kart Fighter (Unl).nes"), got[0].Event.Dest)

	_, err = execute(t, "--config", cfgPath, "events", "--type", "nope")
	require.ErrorContains(t, err, "unknown event type")
}
