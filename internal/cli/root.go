// Package cli arma los comandos de doseclock: el servidor y las herramientas
// operativas (evaluación manual, agenda, tokens, countdown).
package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"doseclock/internal/app"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/config"
	"doseclock/internal/platform/logger"

	"github.com/spf13/cobra"
)

// rootOptions son los flags globales. Pisan a las variables de entorno.
type rootOptions struct {
	port       string
	dbDSN      string
	sqlitePath string
	logLevel   string
	logFormat  string
}

// Execute corre el comando raíz con os.Args.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "doseclock",
		Short: "Dose scheduling engine",
		Long: `doseclock genera la agenda de dosis de cada tratamiento, valida las
confirmaciones contra la ventana de toma y emite avisos antes, en y después
de cada hora programada.

Storage: DB_DSN (Postgres) > SQLITE_PATH > memoria.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.port, "port", "", "HTTP port (env PORT)")
	pf.StringVar(&opts.dbDSN, "db-dsn", "", "Postgres DSN (env DB_DSN)")
	pf.StringVar(&opts.sqlitePath, "sqlite", "", "SQLite file path (env SQLITE_PATH)")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug|info|warn|error (env LOG_LEVEL)")
	pf.StringVar(&opts.logFormat, "log-format", "", "text|json (env LOG_FORMAT)")

	root.AddCommand(
		newServeCmd(opts),
		newEvaluateCmd(opts),
		newUpcomingCmd(opts),
		newTokenCmd(opts),
		newCountdownCmd(opts),
	)
	return root
}

func (o *rootOptions) config() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if v := strings.TrimSpace(o.port); v != "" {
		cfg.Port = v
	}
	if v := strings.TrimSpace(o.dbDSN); v != "" {
		cfg.DBDSN = v
	}
	if v := strings.TrimSpace(o.sqlitePath); v != "" {
		cfg.SQLitePath = v
	}
	return cfg, cfg.Validate()
}

// logger usa stderr para no mezclar logs con la salida de los comandos.
func (o *rootOptions) logger(out io.Writer) logger.Logger {
	level := o.logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	format := o.logFormat
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if out == nil {
		out = os.Stderr
	}
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(level),
		Format: logger.ParseFormat(format),
		App:    "doseclock",
		Out:    out,
	})
}

func (o *rootOptions) app(cmd *cobra.Command, c clock.Clock) (*app.App, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	return app.New(cmd.Context(), cfg, o.logger(cmd.ErrOrStderr()), c)
}
