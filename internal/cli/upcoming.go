package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newUpcomingCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		days   int
	)

	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Print a user's dose agenda",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			if days < 1 || days > 30 {
				return fmt.Errorf("--days must be between 1 and 30")
			}

			a, err := opts.app(cmd, nil)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer a.Close()

			from := a.Clock.Now()
			items, err := a.Doses.Upcoming(cmd.Context(), userID, from, from.Add(time.Duration(days)*24*time.Hour))
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no upcoming doses")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCHEDULED\tMEDICATION\tSEQ\tSTATUS")
			for _, it := range items {
				status := string(it.Dose.Status)
				if it.Projected {
					status += " (projected)"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.Dose.ScheduledAt.Format(time.RFC3339), it.Dose.MedicationName, it.Dose.Seq, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Owner user id")
	cmd.Flags().IntVar(&days, "days", 1, "Days ahead (1-30)")
	return cmd
}
