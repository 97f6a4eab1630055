package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <user-id>",
		Short: "Show a user's cycle, streak and mood",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			svc, cleanup, err := openServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			st, err := svc.coordinator.Status(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			loc := svc.cfg.Location()
			fmt.Fprintf(out, "Cycle started:   %s\n", st.CycleStart.In(loc).Format(time.RFC1123))
			fmt.Fprintf(out, "Cycle closes:    %s\n", st.NextCycleStart.In(loc).Format(time.RFC1123))
			if st.Due {
				fmt.Fprintln(out, "Reset due:       yes")
			} else {
				fmt.Fprintf(out, "Reset due:       in %.1fh\n", st.HoursRemaining)
			}
			fmt.Fprintf(out, "Streak:          %d (longest %d)\n", st.Streak, st.LongestStreak)
			fmt.Fprintf(out, "Mood:            %d, %s (%s)\n", st.MoodScore, st.MoodTier, st.Face)
			fmt.Fprintf(out, "Locked:          %t\n", st.IsLocked)
			return nil
		},
	}
}
