package router

import (
	"net/http"

	"doseclock/internal/domain/doses"
	"doseclock/internal/domain/medications"
	"doseclock/internal/domain/preferences"
	"doseclock/internal/domain/treatments"
	"doseclock/internal/middleware"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/logger"
	"doseclock/internal/ports/auth"
	"doseclock/internal/timesync"

	_ "doseclock/docs"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)
	Logger       logger.Logger
	Clock        clock.Clock

	Medications *medications.Service
	Treatments  *treatments.Service
	Doses       *doses.Service
	Preferences *preferences.Service
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	c := opts.Clock
	if c == nil {
		c = clock.System()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(log))
	r.Use(middleware.Recover(log))

	r.Use(middleware.AuthContext(opts.AuthVerifier, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	timesync.RegisterRoutes(r, c)

	// Rutas por módulo
	medications.RegisterRoutes(r, opts.Medications)
	treatments.RegisterRoutes(r, opts.Treatments)
	doses.RegisterRoutes(r, opts.Doses)
	preferences.RegisterRoutes(r, opts.Preferences)

	return r
}
