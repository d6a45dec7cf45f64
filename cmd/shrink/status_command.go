package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue health counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Queued", strconv.Itoa(health.Queued)},
				{"Processing", strconv.Itoa(health.Processing)},
				{"Processed", strconv.Itoa(health.Processed)},
				{"Failed", strconv.Itoa(health.Failed)},
				{"Errored", strconv.Itoa(health.Errored)},
				{"Total", strconv.Itoa(health.Total)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
