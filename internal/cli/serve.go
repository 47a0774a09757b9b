package cli

import (
	"fmt"

	"doseclock/internal/platform/clock"
	"doseclock/internal/timesync"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var reference string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background evaluator",
		Long: `Levanta la API HTTP y el evaluador periódico (siembra, sweep y avisos)
hasta recibir SIGINT/SIGTERM.

--clock-reference calibra el reloj del servidor contra un instante RFC3339
confiable; si no se puede interpretar se sigue con el reloj local.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := opts.logger(cmd.ErrOrStderr())

			var c clock.Clock = clock.System()
			if reference != "" {
				rec := timesync.NewReconciler(c, log)
				if _, err := rec.Calibrate(reference); err != nil {
					log.Warn("serving with local clock", map[string]any{"err": err})
				}
				c = rec
			}

			a, err := opts.app(cmd, c)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer a.Close()

			return a.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&reference, "clock-reference", "", "Trusted RFC3339 instant to calibrate against")
	return cmd
}
