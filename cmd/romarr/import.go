package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import [paths...]",
	Short: "Run one import batch",
	Long: `Run one import batch over the given files and directories, or over the
intake directory when none are given.

Exits with status 2 when any item was moved to the conflicts area.`,
	RunE: runImportCmd,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

// itemView is the JSON form of an import item.
type itemView struct {
	Source   string     `json:"source"`
	Dest     string     `json:"dest,omitempty"`
	Kind     string     `json:"kind"`
	Status   string     `json:"status"`
	Systems  []string   `json:"systems,omitempty"`
	GameID   int64      `json:"game_id,omitempty"`
	Error    string     `json:"error,omitempty"`
	Children []itemView `json:"children,omitempty"`
}

// batchView is the JSON form of a batch result.
type batchView struct {
	ID                   string     `json:"id"`
	StartedAt            time.Time  `json:"started_at"`
	FinishedAt           time.Time  `json:"finished_at"`
	Items                []itemView `json:"items"`
	Subsumed             int        `json:"subsumed"`
	Junk                 []string   `json:"junk,omitempty"`
	Committed            int        `json:"committed"`
	Conflicted           int        `json:"conflicted"`
	Failed               int        `json:"failed"`
	Deferred             int        `json:"deferred"`
	EncounteredConflicts bool       `json:"encountered_conflicts"`
}

func newItemView(it *importer.Item) itemView {
	v := itemView{
		Source:  it.Source,
		Dest:    it.Dest,
		Kind:    string(it.Kind),
		Status:  string(it.Status),
		Systems: it.Systems,
		GameID:  it.GameID,
	}
	if it.Err != nil {
		v.Error = it.Err.Error()
	}
	for _, c := range it.Children {
		v.Children = append(v.Children, newItemView(c))
	}
	return v
}

func newBatchView(b *importer.BatchResult) batchView {
	v := batchView{
		ID:                   b.ID,
		StartedAt:            b.StartedAt,
		FinishedAt:           b.FinishedAt,
		Items:                make([]itemView, 0, len(b.Items)),
		Subsumed:             len(b.Subsumed),
		Junk:                 b.Junk,
		Committed:            b.Committed,
		Conflicted:           b.Conflicted,
		Failed:               b.Failed,
		Deferred:             b.Deferred,
		EncounteredConflicts: b.EncounteredConflicts,
	}
	for _, it := range b.Items {
		v.Items = append(v.Items, newItemView(it))
	}
	return v
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.importer.Run(ctx, args)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		if err := printJSON(out, newBatchView(res)); err != nil {
			return err
		}
	} else {
		printBatch(out, res)
	}

	if res.EncounteredConflicts {
		return &exitError{code: 2, msg: fmt.Sprintf("%d item(s) moved to conflicts, see 'romarr conflicts'", res.Conflicted)}
	}
	return nil
}

func itemRows(items []*importer.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		result := it.Dest
		if it.Err != nil {
			result = it.Err.Error()
		}
		source := it.Name()
		if n := len(it.Files()) - 1; n > 0 {
			source = fmt.Sprintf("%s (+%d)", source, n)
		}
		rows = append(rows, []string{
			truncate(source, 48),
			string(it.Status),
			strings.Join(it.Systems, ","),
			truncate(result, 60),
		})
	}
	return rows
}

func printBatch(w io.Writer, b *importer.BatchResult) {
	if len(b.Items) == 0 && len(b.Junk) == 0 {
		fmt.Fprintln(w, "Nothing to import")
		return
	}
	if len(b.Items) > 0 {
		fmt.Fprintln(w, renderTable([]string{"FILE", "STATUS", "SYSTEM", "RESULT"}, itemRows(b.Items), nil))
	}
	fmt.Fprintf(w, "\nBatch %s: %d committed, %d conflicted, %d failed, %d deferred, %d grouped, %d junk removed (%s)\n",
		b.ID, b.Committed, b.Conflicted, b.Failed, b.Deferred, len(b.Subsumed), len(b.Junk),
		b.FinishedAt.Sub(b.StartedAt).Round(time.Millisecond))
}
