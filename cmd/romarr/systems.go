package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vmunix/romarr/internal/library"
	"github.com/vmunix/romarr/internal/systems"
)

var systemsCmd = &cobra.Command{
	Use:   "systems",
	Short: "Show configured systems, game counts and BIOS status",
	RunE:  runSystemsCmd,
}

func init() {
	rootCmd.AddCommand(systemsCmd)
}

// systemView is one row of the systems listing.
type systemView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Extensions   []string `json:"extensions"`
	CDBased      bool     `json:"cd_based"`
	HeaderOffset int64    `json:"header_offset,omitempty"`
	Games        int      `json:"games"`
	BIOSPresent  int      `json:"bios_present"`
	BIOSTotal    int      `json:"bios_total"`
}

func buildSystemViews(snap *systems.Snapshot, store *library.Store) ([]systemView, error) {
	bios, err := store.ListBIOS()
	if err != nil {
		return nil, fmt.Errorf("list bios: %w", err)
	}
	present := make(map[string]int)
	for _, b := range bios {
		if b.Path != nil {
			present[b.SystemID]++
		}
	}

	var views []systemView
	for _, s := range snap.Systems() {
		id := s.ID
		_, total, err := store.ListGames(library.GameFilter{SystemID: &id, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("count games: %w", err)
		}
		views = append(views, systemView{
			ID:           s.ID,
			Name:         s.Name,
			Extensions:   s.Extensions,
			CDBased:      s.CDBased,
			HeaderOffset: s.HeaderOffset,
			Games:        total,
			BIOSPresent:  present[s.ID],
			BIOSTotal:    len(s.BIOS),
		})
	}
	return views, nil
}

func runSystemsCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	views, err := buildSystemViews(a.systems.Current(), library.NewStore(a.db))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), views)
	}
	printSystems(cmd.OutOrStdout(), views)
	return nil
}

func printSystems(w io.Writer, views []systemView) {
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		bios := "-"
		if v.BIOSTotal > 0 {
			bios = fmt.Sprintf("%d/%d", v.BIOSPresent, v.BIOSTotal)
		}
		rows = append(rows, []string{
			v.ID,
			truncate(v.Name, 32),
			truncate(strings.Join(v.Extensions, " "), 32),
			strconv.Itoa(v.Games),
			bios,
		})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "NAME", "EXTENSIONS", "GAMES", "BIOS"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
}
