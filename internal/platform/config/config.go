package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAdvanceWindow = 5 * time.Minute
	DefaultGraceWindow   = 20 * time.Minute
	DefaultSweepPeriod   = 30 * time.Second
	DefaultNotifyRecheck = 30 * time.Second
	DefaultNotifyWindow  = time.Minute
	DefaultMissedWindow  = time.Hour
	DefaultHorizon       = 24 * time.Hour
	DefaultTelegramAPI   = "https://api.telegram.org"
)

// Config agrupa todo lo configurable del servicio. Las ventanas de dosis
// son parámetros, no constantes de negocio.
type Config struct {
	Port string

	// Storage: DBDSN (Postgres) tiene prioridad sobre SQLitePath; sin ninguno => in-memory.
	DBDSN      string
	SQLitePath string

	AdvanceWindow time.Duration
	GraceWindow   time.Duration
	SweepPeriod   time.Duration
	NotifyRecheck time.Duration
	NotifyWindow  time.Duration
	// MissedWindow acota cuánto después de vencida se sigue reintentando la alerta.
	MissedWindow time.Duration
	Horizon      time.Duration

	JWTSecret string
	JWTIssuer string

	TelegramBotToken string
	TelegramAPIURL   string
}

func Default() Config {
	return Config{
		Port:           "8080",
		AdvanceWindow:  DefaultAdvanceWindow,
		GraceWindow:    DefaultGraceWindow,
		SweepPeriod:    DefaultSweepPeriod,
		NotifyRecheck:  DefaultNotifyRecheck,
		NotifyWindow:   DefaultNotifyWindow,
		MissedWindow:   DefaultMissedWindow,
		Horizon:        DefaultHorizon,
		JWTIssuer:      "doseclock",
		TelegramAPIURL: DefaultTelegramAPI,
	}
}

// Load lee la config desde variables de entorno sobre Default().
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom permite inyectar el lookup (tests).
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("PORT", &cfg.Port)
	str("DB_DSN", &cfg.DBDSN)
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("JWT_ISSUER", &cfg.JWTIssuer)
	str("TELEGRAM_BOT_TOKEN", &cfg.TelegramBotToken)
	str("TELEGRAM_API_URL", &cfg.TelegramAPIURL)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DOSE_ADVANCE_WINDOW", &cfg.AdvanceWindow},
		{"DOSE_GRACE_WINDOW", &cfg.GraceWindow},
		{"SWEEP_PERIOD", &cfg.SweepPeriod},
		{"NOTIFY_RECHECK_PERIOD", &cfg.NotifyRecheck},
		{"NOTIFY_WINDOW", &cfg.NotifyWindow},
		{"MISSED_ALERT_WINDOW", &cfg.MissedWindow},
		{"SCHEDULE_HORIZON", &cfg.Horizon},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rechaza ventanas no positivas y una ventana de notificación que no
// cubra el período de evaluación (se perderían recordatorios).
func (c Config) Validate() error {
	checks := []struct {
		name string
		v    time.Duration
	}{
		{"advance window", c.AdvanceWindow},
		{"grace window", c.GraceWindow},
		{"sweep period", c.SweepPeriod},
		{"notify recheck period", c.NotifyRecheck},
		{"notify window", c.NotifyWindow},
		{"missed alert window", c.MissedWindow},
		{"horizon", c.Horizon},
	}
	for _, ch := range checks {
		if ch.v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %s", ch.name, ch.v)
		}
	}
	if c.NotifyWindow <= c.NotifyRecheck {
		return fmt.Errorf("config: notify window (%s) must exceed recheck period (%s)", c.NotifyWindow, c.NotifyRecheck)
	}
	if c.MissedWindow <= c.SweepPeriod {
		return fmt.Errorf("config: missed alert window (%s) must exceed sweep period (%s)", c.MissedWindow, c.SweepPeriod)
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// parseDuration acepta "5m" o un entero en segundos ("300").
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
