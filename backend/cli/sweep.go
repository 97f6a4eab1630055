package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close every due cycle once and send pending notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report := svc.scheduler.Tick(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "resets: %d, summaries: %d, reminders: %d\n",
				report.Resets, report.Summaries, report.Reminders)
			return nil
		},
	}
}
