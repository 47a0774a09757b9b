package cli

import (
	"context"
	"fmt"
	"time"

	"doseclock/internal/platform/clock"
	"doseclock/internal/timesync"

	"github.com/spf13/cobra"
)

func newCountdownCmd(opts *rootOptions) *cobra.Command {
	var (
		to        string
		reference string
		tick      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Show a live countdown to an instant",
		Long: `Muestra el tiempo restante hasta --to, corrigiendo el reloj local con
--reference si se indica (p.ej. el valor de GET /time del servidor).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := time.Parse(time.RFC3339, to)
			if err != nil {
				return fmt.Errorf("--to must be RFC3339: %w", err)
			}
			if tick <= 0 {
				return fmt.Errorf("--tick must be positive")
			}

			rec := timesync.NewReconciler(clock.System(), opts.logger(cmd.ErrOrStderr()))
			if reference != "" {
				if _, err := rec.Calibrate(reference); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v, using local clock\n", err)
				}
			}
			return runCountdown(cmd.Context(), cmd, timesync.NewSession(rec), target, tick)
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Target RFC3339 instant")
	cmd.Flags().StringVar(&reference, "reference", "", "Trusted RFC3339 instant for calibration")
	cmd.Flags().DurationVar(&tick, "tick", time.Second, "Refresh period")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func runCountdown(ctx context.Context, cmd *cobra.Command, sess *timesync.Session, target time.Time, tick time.Duration) error {
	out := cmd.OutOrStdout()
	done := make(chan struct{})
	if err := sess.Start("target", target, func(string) { close(done) }); err != nil {
		return err
	}
	defer sess.Close()

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		sess.Tick()
		select {
		case <-done:
			fmt.Fprintln(out, "now")
			return nil
		default:
		}
		if rem, ok := sess.Remaining("target"); ok {
			fmt.Fprintln(out, timesync.FormatRemaining(rem))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-done:
		case <-ticker.C:
		}
	}
}
