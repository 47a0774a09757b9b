package treatments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"doseclock/internal/domain/schedule"
	"doseclock/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/treatments", func(tr chi.Router) {
		tr.Post("/", createTreatmentHandler(svc))
		tr.Get("/", listTreatmentsHandler(svc))
		tr.Get("/{treatmentID}", getTreatmentHandler(svc))
		tr.Patch("/{treatmentID}", updateTreatmentHandler(svc))
		tr.Post("/{treatmentID}/pause", transitionHandler(svc.Pause))
		tr.Post("/{treatmentID}/resume", transitionHandler(svc.Resume))
		tr.Post("/{treatmentID}/finish", transitionHandler(svc.Finish))
	})
}

type createTreatmentRequest struct {
	MedicationID   string  `json:"medication_id"`
	StartAt        string  `json:"start_at"`       // RFC3339
	IntervalHours  float64 `json:"interval_hours"` // 0.5 .. 168
	Anchor         string  `json:"anchor"`         // from_scheduled | from_confirmation
	DurationDays   *int    `json:"duration_days"`
	MaxOccurrences int     `json:"max_occurrences"`
	Notes          string  `json:"notes"`
}

type updateTreatmentRequest struct {
	Anchor *string `json:"anchor"`
	Notes  *string `json:"notes"`
}

type treatmentResponse struct {
	ID             string     `json:"id"`
	OwnerUserID    string     `json:"owner_user_id"`
	MedicationID   string     `json:"medication_id"`
	MedicationName string     `json:"medication_name"`
	StartAt        time.Time  `json:"start_at"`
	IntervalHours  float64    `json:"interval_hours"`
	Anchor         string     `json:"anchor"`
	Status         string     `json:"status"`
	DeactivatedAt  *time.Time `json:"deactivated_at,omitempty"`
	EndsAt         *time.Time `json:"ends_at,omitempty"`
	MaxOccurrences int        `json:"max_occurrences,omitempty"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// createTreatmentHandler godoc
// @Summary Crear tratamiento
// @Description Define la recurrencia de un medicamento. El intervalo va de 0.5 a 168 horas. La primera dosis se materializa al crear.
// @Tags treatments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param payload body createTreatmentRequest true "Definición del tratamiento"
// @Success 201 {object} treatmentResponse
// @Failure 400 {string} string "invalid json / invalid schedule"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "medication not found"
// @Router /treatments [post]
func createTreatmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createTreatmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		startAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartAt))
		if err != nil {
			http.Error(w, "invalid start_at (expected RFC3339)", http.StatusBadRequest)
			return
		}

		t, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			MedicationID:   req.MedicationID,
			StartAt:        startAt,
			Interval:       time.Duration(req.IntervalHours * float64(time.Hour)),
			Anchor:         req.Anchor,
			DurationDays:   req.DurationDays,
			MaxOccurrences: req.MaxOccurrences,
			Notes:          req.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTreatmentResponse(t))
	}
}

// listTreatmentsHandler godoc
// @Summary Listar tratamientos
// @Tags treatments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param status query string false "active | paused | finished"
// @Success 200 {array} treatmentResponse
// @Failure 400 {string} string "invalid status"
// @Failure 401 {string} string "unauthorized"
// @Router /treatments [get]
func listTreatmentsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var status Status
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status = Status(strings.ToLower(raw))
			if !status.Valid() {
				http.Error(w, "invalid status", http.StatusBadRequest)
				return
			}
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]treatmentResponse, 0, len(items))
		for _, t := range items {
			if status != "" && t.Status != status {
				continue
			}
			out = append(out, toTreatmentResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getTreatmentHandler godoc
// @Summary Ver tratamiento
// @Tags treatments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param treatmentID path string true "ID del tratamiento"
// @Success 200 {object} treatmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "treatment not found"
// @Router /treatments/{treatmentID} [get]
func getTreatmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, err := svc.GetOwned(r.Context(), chi.URLParam(r, "treatmentID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTreatmentResponse(t))
	}
}

// updateTreatmentHandler godoc
// @Summary Actualizar tratamiento
// @Description Cambia el modo de anclaje o las notas. El nuevo anclaje aplica solo a las dosis que se generen después.
// @Tags treatments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param treatmentID path string true "ID del tratamiento"
// @Param payload body updateTreatmentRequest true "Campos a modificar"
// @Success 200 {object} treatmentResponse
// @Failure 400 {string} string "invalid json / invalid schedule"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "treatment not found"
// @Failure 409 {string} string "invalid status transition"
// @Router /treatments/{treatmentID} [patch]
func updateTreatmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateTreatmentRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		t, err := svc.Update(r.Context(), chi.URLParam(r, "treatmentID"), claims.UserID, UpdateInput{
			Anchor: req.Anchor,
			Notes:  req.Notes,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTreatmentResponse(t))
	}
}

// transitionHandler godoc
// @Summary Pausar, reanudar o finalizar tratamiento
// @Description Pausar o finalizar corta la generación de dosis nuevas; las ya materializadas no cambian. Finalizar es terminal.
// @Tags treatments
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param treatmentID path string true "ID del tratamiento"
// @Success 200 {object} treatmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "treatment not found"
// @Failure 409 {string} string "invalid status transition"
// @Router /treatments/{treatmentID}/pause [post]
// @Router /treatments/{treatmentID}/resume [post]
// @Router /treatments/{treatmentID}/finish [post]
func transitionHandler(apply func(ctx context.Context, id, actorUserID string) (Treatment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, err := apply(r.Context(), chi.URLParam(r, "treatmentID"), claims.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toTreatmentResponse(t))
	}
}

func writeError(w http.ResponseWriter, err error) {
	var schedErr *schedule.InvalidScheduleError
	switch {
	case errors.As(err, &schedErr):
		http.Error(w, schedErr.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "treatment not found", http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, "invalid status transition", http.StatusConflict)
	case errors.Is(err, ErrMedicationUnavailable):
		http.Error(w, "medication not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toTreatmentResponse(t Treatment) treatmentResponse {
	return treatmentResponse{
		ID:             t.ID,
		OwnerUserID:    t.OwnerUserID,
		MedicationID:   t.MedicationID,
		MedicationName: t.MedicationName,
		StartAt:        t.StartAt,
		IntervalHours:  t.Interval.Hours(),
		Anchor:         string(t.Anchor),
		Status:         string(t.Status),
		DeactivatedAt:  t.DeactivatedAt,
		EndsAt:         t.EndsAt,
		MaxOccurrences: t.MaxOccurrences,
		Notes:          t.Notes,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
