package timesync

import (
	"encoding/json"
	"net/http"
	"time"

	"doseclock/internal/platform/clock"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, c clock.Clock) {
	r.Get("/time", timeHandler(c))
}

type timeResponse struct {
	Reference string `json:"reference"` // RFC3339Nano
	UnixMilli int64  `json:"unix_ms"`
}

// timeHandler godoc
// @Summary Instante de referencia del servidor
// @Description Devuelve la hora del servidor para calibrar las cuentas regresivas del cliente (offset = referencia - reloj local).
// @Tags time
// @Produce json
// @Success 200 {object} timeResponse
// @Router /time [get]
func timeHandler(c clock.Clock) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := c.Now().UTC()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(timeResponse{
			Reference: now.Format(time.RFC3339Nano),
			UnixMilli: now.UnixMilli(),
		})
	}
}
