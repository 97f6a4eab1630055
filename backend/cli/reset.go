package cli

import (
	"cactus/backend/cycle"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset <user-id>",
		Short: "Close a user's cycle if it is due",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var res cycle.Result
			if force {
				res, err = svc.coordinator.ResetNow(ctx, args[0])
			} else {
				res, err = svc.coordinator.CheckAndReset(ctx, args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.ResetPerformed {
				fmt.Fprintf(out, "No reset: next cycle starts %s\n", res.NextCycleStart.Format("2006-01-02 15:04 MST"))
				return nil
			}
			s := res.Summary
			fmt.Fprintf(out, "Closed cycle: %d of %d tasks done\n", s.CompletedCount, s.TotalTasks)
			if len(s.IncompleteTitles) > 0 {
				fmt.Fprintf(out, "Dropped: %s\n", strings.Join(s.IncompleteTitles, ", "))
			}
			if svc.notifier.DeliverSummary(ctx, res) {
				fmt.Fprintln(out, "Summary sent")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "close the cycle regardless of its age (needs ALLOW_TEST_RESET)")
	return cmd
}
