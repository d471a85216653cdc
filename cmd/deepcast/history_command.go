package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([]table.Row, 0, len(entries))
			for _, entry := range entries {
				status := "ok"
				if entry.Failed {
					status = "failed"
				}
				duration := (time.Duration(entry.Duration * float64(time.Second))).Round(time.Second).String()
				rows = append(rows, table.Row{
					entry.CreatedAt.Local().Format("2006-01-02 15:04"),
					entry.Episode,
					status,
					len(entry.Steps),
					duration,
				})
			}
			fmt.Fprintln(out, renderTable(
				table.Row{"When", "Episode", "Status", "Steps", "Duration"},
				rows, 4, 5,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")
	return cmd
}
