package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/housemarket/internal/persistence"
	"github.com/talgya/housemarket/internal/stat"
)

func newRunsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs recorded in a database",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return listRuns(cmd.OutOrStdout(), db)
		},
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "data/housesim.db", "Run database")

	var ticks int
	show := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show a recorded run; defaults to the most recent",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := persistence.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return showRun(cmd.OutOrStdout(), db, id, ticks)
		},
	}
	show.Flags().IntVar(&ticks, "ticks", 8, "Number of final ticks to list")
	cmd.AddCommand(show)
	return cmd
}

func listRuns(w io.Writer, db *persistence.DB) error {
	runs, err := db.Runs()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Run", "Started", "Seed", "Scenario"}),
	)
	for _, r := range runs {
		table.Append([]string{r.ID, r.StartedAt, fmt.Sprint(r.Seed), r.Scenario})
	}
	return table.Render()
}

// showRun prints a run's last ticks and a summary of its final snapshot.
// An empty id selects the most recently started run.
func showRun(w io.Writer, db *persistence.DB, id string, ticks int) error {
	if id == "" {
		last, err := db.GetMeta("last_run")
		if errors.Is(err, sql.ErrNoRows) {
			return errors.New("no runs recorded")
		}
		if err != nil {
			return fmt.Errorf("find last run: %w", err)
		}
		id = last
	}

	run, err := db.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	color.New(color.FgCyan, color.Bold).Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  started %s, seed %d, scenario %s\n\n", run.StartedAt, run.Seed, run.Scenario)

	history, err := db.History(id, ticks)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"Tick", "Houses", "Owners", "Seeking", "Median ask", "Median sold", "Sales"}),
		)
		for _, m := range history {
			table.Append([]string{
				fmt.Sprint(m.Tick),
				humanize.Comma(int64(m.Houses)),
				humanize.Comma(int64(m.Owners)),
				fmt.Sprint(m.SeekingHome),
				humanize.Comma(int64(m.MedianForSale)),
				humanize.Comma(int64(m.MedianSold)),
				fmt.Sprint(m.Transactions),
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	houses, err := db.SnapshotHouses(id)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if len(houses) == 0 {
		fmt.Fprintln(w, "\nno snapshot saved")
		return nil
	}

	var listed, vacant int
	var prices, quality []float64
	for _, h := range houses {
		if h.ForSale {
			listed++
		}
		if h.OwnerID == nil {
			vacant++
		}
		prices = append(prices, h.SalePrice)
		quality = append(quality, h.Quality)
	}
	fmt.Fprintf(w, "\nFinal snapshot: %s houses, %d listed, %d vacant, median price %s, mean quality %.2f\n",
		humanize.Comma(int64(len(houses))), listed, vacant,
		humanize.Comma(int64(stat.Median(prices))), stat.Mean(quality))
	return nil
}
