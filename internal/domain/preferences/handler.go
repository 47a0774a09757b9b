package preferences

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"doseclock/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Get("/me/preferences", getPreferencesHandler(svc))
	r.Patch("/me/preferences", updatePreferencesHandler(svc))
}

type preferencesResponse struct {
	UserID               string     `json:"user_id"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
	AdvanceReminder      bool       `json:"advance_reminder"`
	TelegramChatID       string     `json:"telegram_chat_id,omitempty"`
	TelegramEnabled      bool       `json:"telegram_enabled"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

type updatePreferencesRequest struct {
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	AdvanceReminder      *bool   `json:"advance_reminder"`
	TelegramChatID       *string `json:"telegram_chat_id"`
	TelegramEnabled      *bool   `json:"telegram_enabled"`
}

// getPreferencesHandler godoc
// @Summary Ver preferencias de notificación
// @Description Devuelve las preferencias del usuario autenticado. Si nunca las guardó, devuelve los valores por defecto.
// @Tags preferences
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Success 200 {object} preferencesResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me/preferences [get]
func getPreferencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		p, err := svc.Get(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toPreferencesResponse(p))
	}
}

// updatePreferencesHandler godoc
// @Summary Actualizar preferencias de notificación
// @Description Actualización parcial: los campos ausentes no se modifican. Activar Telegram requiere un chat id vinculado.
// @Tags preferences
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param payload body updatePreferencesRequest true "Campos a modificar"
// @Success 200 {object} preferencesResponse
// @Failure 400 {string} string "invalid json / invalid input"
// @Failure 401 {string} string "unauthorized"
// @Router /me/preferences [patch]
func updatePreferencesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updatePreferencesRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		p, err := svc.Update(r.Context(), claims.UserID, UpdateInput{
			NotificationsEnabled: req.NotificationsEnabled,
			AdvanceReminder:      req.AdvanceReminder,
			TelegramChatID:       req.TelegramChatID,
			TelegramEnabled:      req.TelegramEnabled,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toPreferencesResponse(p))
	}
}

func toPreferencesResponse(p Preferences) preferencesResponse {
	resp := preferencesResponse{
		UserID:               p.UserID,
		NotificationsEnabled: p.NotificationsEnabled,
		AdvanceReminder:      p.AdvanceReminder,
		TelegramChatID:       p.TelegramChatID,
		TelegramEnabled:      p.TelegramEnabled,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
