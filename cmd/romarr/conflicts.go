package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/importer"
	"github.com/vmunix/romarr/internal/systems"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "List files waiting in the conflicts area",
	RunE:  runConflictsCmd,
}

func init() {
	rootCmd.AddCommand(conflictsCmd)
}

// conflictFile is one file in the conflicts area.
type conflictFile struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	Reason   string    `json:"reason,omitempty"`
}

// listConflicts returns the files under dir, newest first. A missing
// directory has no conflicts.
func listConflicts(dir string) ([]conflictFile, error) {
	var files []conflictFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, conflictFile{Path: path, Size: info.Size(), Modified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b conflictFile) int { return b.Modified.Compare(a.Modified) })
	return files, nil
}

// attachReasons fills in the most recent recorded reason for each file.
func attachReasons(files []conflictFile, history []*importer.HistoryEntry) {
	reasons := make(map[string]string)
	for _, h := range history {
		var data importer.HistoryData
		if err := json.Unmarshal([]byte(h.Data), &data); err != nil || data.Dest == "" {
			continue
		}
		if _, seen := reasons[data.Dest]; !seen {
			reasons[data.Dest] = data.Error
		}
	}
	for i := range files {
		files[i].Reason = reasons[files[i].Path]
	}
}

func runConflictsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	dir := filepath.Join(a.cfg.Library.Root, systems.ConflictsDir)
	files, err := listConflicts(dir)
	if err != nil {
		return fmt.Errorf("list conflicts: %w", err)
	}

	event := importer.EventConflicted
	history, err := importer.NewHistoryStore(a.db).List(importer.HistoryFilter{Event: &event})
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	attachReasons(files, history)

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), files)
	}
	printConflicts(cmd.OutOrStdout(), dir, files)
	return nil
}

func printConflicts(w io.Writer, dir string, files []conflictFile) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No conflicts")
		return
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(dir, f.Path)
		if err != nil {
			rel = f.Path
		}
		rows = append(rows, []string{
			truncate(rel, 48),
			humanize.IBytes(uint64(f.Size)),
			humanize.Time(f.Modified),
			truncate(f.Reason, 60),
		})
	}
	fmt.Fprintf(w, "Conflicts (%d) in %s:\n", len(files), dir)
	fmt.Fprintln(w, renderTable([]string{"FILE", "SIZE", "MODIFIED", "REASON"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}))
}
