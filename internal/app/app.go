package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"doseclock/internal/adapters/auth/jwtauth"
	"doseclock/internal/adapters/delivery/logsink"
	"doseclock/internal/adapters/delivery/telegram"
	"doseclock/internal/adapters/storage/memory"
	"doseclock/internal/adapters/storage/postgres"
	"doseclock/internal/adapters/storage/sqlite"
	"doseclock/internal/domain/doses"
	"doseclock/internal/domain/medications"
	"doseclock/internal/domain/notifications"
	"doseclock/internal/domain/preferences"
	"doseclock/internal/domain/treatments"
	"doseclock/internal/engine"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/config"
	"doseclock/internal/platform/logger"
	"doseclock/internal/ports/auth"
	"doseclock/internal/ports/delivery"
	"doseclock/internal/router"

	"golang.org/x/sync/errgroup"
)

// App es el grafo de dependencias armado a partir de la config.
type App struct {
	Config config.Config
	Log    logger.Logger
	Clock  clock.Clock

	Medications   *medications.Service
	Treatments    *treatments.Service
	Doses         *doses.Service
	Notifications *notifications.Service
	Preferences   *preferences.Service

	Verifier *jwtauth.Verifier // nil sin JWT_SECRET (modo dev)
	Notifier delivery.Notifier

	Storage string
	closers []io.Closer
}

type stores struct {
	meds  medications.Repository
	treat treatments.Repository
	doses doses.Repository
	prefs preferences.Repository
	sent  notifications.SentLog
}

// New elige storage (Postgres > SQLite > memoria) y arma los servicios.
// c puede ser nil: se usa el reloj del sistema.
func New(ctx context.Context, cfg config.Config, log logger.Logger, c clock.Clock) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	if c == nil {
		c = clock.System()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log, Clock: c}

	st, err := a.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	a.Medications = medications.NewService(st.meds)
	a.Medications.UseClock(c)
	a.Treatments = treatments.NewService(st.treat, a.Medications, log)
	a.Treatments.UseClock(c)
	a.Doses = doses.NewService(st.doses, a.Treatments, doses.Options{
		Windows: doses.Windows{Advance: cfg.AdvanceWindow, Grace: cfg.GraceWindow},
		Horizon: cfg.Horizon,
		Clock:   c,
		Logger:  log,
	})
	a.Treatments.UseSeeder(a.Doses)
	a.Notifications = notifications.NewService(st.sent, notifications.Config{
		Advance:      cfg.AdvanceWindow,
		Window:       cfg.NotifyWindow,
		MissedWindow: cfg.MissedWindow,
	})
	a.Preferences = preferences.NewService(st.prefs)
	a.Preferences.UseClock(c)

	if cfg.JWTSecret != "" {
		a.Verifier = jwtauth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	}

	notifiers := delivery.Fanout{logsink.New(log)}
	if cfg.TelegramBotToken != "" {
		tc, err := telegram.NewClient(telegram.Config{
			APIURL:   cfg.TelegramAPIURL,
			BotToken: cfg.TelegramBotToken,
			Retries:  1,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		notifiers = append(notifiers, telegram.NewNotifier(tc, time.UTC, log))
	}
	a.Notifier = notifiers

	log.Info("app ready", map[string]any{
		"storage":   a.Storage,
		"jwt":       a.Verifier != nil,
		"telegram":  cfg.TelegramBotToken != "",
		"advance":   cfg.AdvanceWindow.String(),
		"grace":     cfg.GraceWindow.String(),
		"horizon":   cfg.Horizon.String(),
		"notify_at": cfg.NotifyWindow.String(),
	})
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (stores, error) {
	switch {
	case a.Config.DBDSN != "":
		db, err := postgres.Open(a.Config.DBDSN)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, db)
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = a.Close()
			return stores{}, err
		}
		a.Storage = "postgres"
		return stores{
			meds:  postgres.NewMedicationsRepo(db),
			treat: postgres.NewTreatmentsRepo(db),
			doses: postgres.NewDosesRepo(db),
			prefs: postgres.NewPreferencesRepo(db),
			sent:  postgres.NewSentLog(db),
		}, nil

	case a.Config.SQLitePath != "":
		db, err := sqlite.Open(a.Config.SQLitePath)
		if err != nil {
			return stores{}, err
		}
		a.closers = append(a.closers, db)
		if err := sqlite.Migrate(ctx, db); err != nil {
			_ = a.Close()
			return stores{}, err
		}
		a.Storage = "sqlite"
		return stores{
			meds:  sqlite.NewMedicationsRepo(db),
			treat: sqlite.NewTreatmentsRepo(db),
			doses: sqlite.NewDosesRepo(db),
			prefs: sqlite.NewPreferencesRepo(db),
			sent:  sqlite.NewSentLog(db),
		}, nil
	}

	a.Storage = "memory"
	return stores{
		meds:  memory.NewMedicationRepo(),
		treat: memory.NewTreatmentRepo(),
		doses: memory.NewDoseRepo(),
		prefs: memory.NewPreferencesRepo(),
		sent:  memory.NewSentLog(),
	}, nil
}

// Evaluator arma un evaluador sobre los servicios de la app.
func (a *App) Evaluator(dryRun bool) *engine.Evaluator {
	return engine.NewEvaluator(a.Treatments, a.Doses, a.Notifications, a.Preferences, a.Notifier, engine.Options{
		DryRun: dryRun,
		Logger: a.Log,
	})
}

// Runner evalúa con el período más corto entre sweep y recheck de avisos.
func (a *App) Runner() *engine.Runner {
	period := min(a.Config.SweepPeriod, a.Config.NotifyRecheck)
	return engine.NewRunner(a.Evaluator(false), a.Clock, period, a.Log)
}

func (a *App) Handler() http.Handler {
	// interfaz nil explícita: un *jwtauth.Verifier nil no es un verifier nil
	var verifier auth.AuthVerifier
	if a.Verifier != nil {
		verifier = a.Verifier
	}
	return router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Logger:       a.Log,
		Clock:        a.Clock,
		Medications:  a.Medications,
		Treatments:   a.Treatments,
		Doses:        a.Doses,
		Preferences:  a.Preferences,
	})
}

// Serve corre el HTTP server y el evaluador hasta que ctx se cancele o
// alguno falle; luego apaga el server con un timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr(),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.Runner().Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.Log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
