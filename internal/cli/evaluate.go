package cli

import (
	"fmt"
	"time"

	"doseclock/internal/platform/clock"

	"github.com/spf13/cobra"
)

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun bool
		at     string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run a single evaluation pass",
		Long: `Hace una pasada del evaluador: siembra dosis, marca las vencidas como
missed y entrega los avisos pendientes.

Con --dry-run solo informa lo que haría, sin escribir ni entregar.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = t.UTC()
			}

			a, err := opts.app(cmd, clock.Fixed(now))
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer a.Close()

			rep, err := a.Evaluator(dryRun).Evaluate(cmd.Context(), now)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			mode := "applied"
			if rep.DryRun {
				mode = "dry-run"
			}
			fmt.Fprintf(out, "evaluation at %s (%s, storage=%s)\n", rep.At.Format(time.RFC3339), mode, a.Storage)
			fmt.Fprintf(out, "  seeded:     %d\n", rep.Seeded)
			fmt.Fprintf(out, "  missed:     %d\n", rep.Swept)
			fmt.Fprintf(out, "  reminders:  advance=%d due=%d missed=%d\n", rep.Advance, rep.Due, rep.Missed)
			fmt.Fprintf(out, "  delivered:  %d (suppressed %d, failed %d)\n", rep.Delivered, rep.Suppressed, rep.Failed)
			for _, ev := range rep.Events {
				fmt.Fprintf(out, "  - %-7s %s %s @ %s\n", ev.Kind, ev.DoseID, ev.MedicationName, ev.ScheduledAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute without writing or delivering")
	cmd.Flags().StringVar(&at, "at", "", "Evaluate as of this RFC3339 instant (default now)")
	return cmd
}
