package doses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"doseclock/internal/domain/schedule"
	"doseclock/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Get("/", listMyDosesHandler(svc))
		dr.Get("/upcoming", upcomingHandler(svc))
		dr.Get("/{doseID}", getDoseHandler(svc))
		dr.Post("/{doseID}/confirm", confirmDoseHandler(svc))
	})

	// Dosis por tratamiento (solo owner)
	r.Route("/treatments/{treatmentID}/doses", func(tr chi.Router) {
		tr.Get("/", listTreatmentDosesHandler(svc))
		tr.Get("/adherence", adherenceHandler(svc))
	})
}

type doseResponse struct {
	ID              string          `json:"id"`
	TreatmentID     string          `json:"treatment_id"`
	Seq             int             `json:"seq"`
	MedicationName  string          `json:"medication_name"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	ConfirmableFrom time.Time       `json:"confirmable_from"`
	ExpiresAt       time.Time       `json:"expires_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	Status          Status          `json:"status"`
	Projected       bool            `json:"projected,omitempty"`
	Window          *windowResponse `json:"window,omitempty"`
}

type windowResponse struct {
	CanConfirm   bool         `json:"can_confirm"`
	Reason       WindowReason `json:"reason"`
	OnTime       bool         `json:"on_time"`
	MinutesUntil int          `json:"minutes_until,omitempty"`
	MinutesLate  int          `json:"minutes_late,omitempty"`
}

type adherenceResponse struct {
	TreatmentID string  `json:"treatment_id"`
	Total       int     `json:"total"`
	Confirmed   int     `json:"confirmed"`
	Late        int     `json:"late"`
	Missed      int     `json:"missed"`
	Pending     int     `json:"pending"`
	RatePercent float64 `json:"adherence_rate"`
}

// listMyDosesHandler godoc
// @Summary Historial de dosis del usuario
// @Description Lista las dosis del usuario autenticado, más reciente primero. El estado se recalcula al momento de la consulta. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param status query string false "Lista CSV de estados (pending,confirmable,confirmed,late,missed)"
// @Param from query string false "scheduled_at mínimo (RFC3339)"
// @Param to query string false "scheduled_at máximo (RFC3339)"
// @Param limit query int false "Máximo de dosis (1-200). Por defecto 50"
// @Success 200 {array} doseResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Router /doses [get]
func listMyDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		in, err := parseListQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in.OwnerUserID = claims.UserID
		in.Desc = true

		items, err := svc.List(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDoseResponse(d, svc.Windows()))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// upcomingHandler godoc
// @Summary Próximas dosis
// @Description Agenda de los próximos días: dosis ya materializadas más la proyección de cada tratamiento activo.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param days query int false "Días hacia adelante (1-30). Por defecto 7"
// @Success 200 {array} doseResponse
// @Failure 400 {string} string "days inválido"
// @Failure 401 {string} string "unauthorized"
// @Router /doses/upcoming [get]
func upcomingHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		days := 7
		if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 30 {
				http.Error(w, "days must be between 1 and 30", http.StatusBadRequest)
				return
			}
			days = n
		}

		now := svc.now()
		items, err := svc.Upcoming(r.Context(), claims.UserID, now, now.Add(time.Duration(days)*24*time.Hour))
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, it := range items {
			resp := toDoseResponse(it.Dose, svc.Windows())
			resp.Projected = it.Projected
			out = append(out, resp)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getDoseHandler godoc
// @Summary Detalle de una dosis
// @Description Devuelve la dosis con su estado actual y la ventana de confirmación.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param doseID path string true "ID de la dosis"
// @Success 200 {object} doseResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "dose not found"
// @Router /doses/{doseID} [get]
func getDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			writeError(w, err)
			return
		}
		// dosis ajena = no encontrada
		if d.OwnerUserID != claims.UserID {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}

		resp := toDoseResponse(d, svc.Windows())
		info := svc.Window(d)
		resp.Window = &windowResponse{
			CanConfirm:   info.CanConfirm,
			Reason:       info.Reason,
			OnTime:       info.OnTime,
			MinutesUntil: info.MinutesUntil,
			MinutesLate:  info.MinutesLate,
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// confirmDoseHandler godoc
// @Summary Confirmar toma
// @Description Registra la toma de la dosis con la hora del servidor. Dentro de la ventana queda `confirmed`, pasada la gracia queda `late` (siempre se acepta, incluso si ya estaba `missed`). Antes de la ventana devuelve 422.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param doseID path string true "ID de la dosis"
// @Success 200 {object} doseResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "dose not found"
// @Failure 409 {string} string "dose already confirmed"
// @Failure 422 {string} string "dose not yet confirmable"
// @Router /doses/{doseID}/confirm [post]
func confirmDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		doseID := chi.URLParam(r, "doseID")
		current, err := svc.GetByID(r.Context(), doseID)
		if err != nil {
			writeError(w, err)
			return
		}
		if current.OwnerUserID != claims.UserID {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}

		// la hora de toma la pone siempre el reloj del servidor; el body se ignora
		d, err := svc.Confirm(r.Context(), doseID, time.Time{})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDoseResponse(d, svc.Windows()))
	}
}

// listTreatmentDosesHandler godoc
// @Summary Dosis de un tratamiento
// @Description Lista las dosis materializadas de un tratamiento en orden de secuencia.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param treatmentID path string true "ID del tratamiento"
// @Param status query string false "Lista CSV de estados"
// @Param from query string false "scheduled_at mínimo (RFC3339)"
// @Param to query string false "scheduled_at máximo (RFC3339)"
// @Param limit query int false "Máximo de dosis (1-200). Por defecto 50"
// @Success 200 {array} doseResponse
// @Failure 400 {string} string "Parámetros de filtro inválidos"
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "treatment not found"
// @Router /treatments/{treatmentID}/doses [get]
func listTreatmentDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		treatmentID := chi.URLParam(r, "treatmentID")
		if !ownsTreatment(r, svc, treatmentID, claims.UserID) {
			http.Error(w, "treatment not found", http.StatusNotFound)
			return
		}

		in, err := parseListQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		in.TreatmentID = treatmentID

		items, err := svc.List(r.Context(), in)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDoseResponse(d, svc.Windows()))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// adherenceHandler godoc
// @Summary Adherencia de un tratamiento
// @Description Resumen de cumplimiento: confirmadas, tardías, perdidas y tasa sobre las dosis resueltas.
// @Tags doses
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario para depuración"
// @Param Authorization header string false "Bearer token"
// @Param treatmentID path string true "ID del tratamiento"
// @Success 200 {object} adherenceResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "treatment not found"
// @Router /treatments/{treatmentID}/doses/adherence [get]
func adherenceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		treatmentID := chi.URLParam(r, "treatmentID")
		if !ownsTreatment(r, svc, treatmentID, claims.UserID) {
			http.Error(w, "treatment not found", http.StatusNotFound)
			return
		}

		a, err := svc.Adherence(r.Context(), treatmentID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, adherenceResponse{
			TreatmentID: treatmentID,
			Total:       a.Total,
			Confirmed:   a.Confirmed,
			Late:        a.Late,
			Missed:      a.Missed,
			Pending:     a.Pending,
			RatePercent: a.RatePercent,
		})
	}
}

func ownsTreatment(r *http.Request, svc *Service, treatmentID, userID string) bool {
	plan, err := svc.plans.PlanFor(r.Context(), treatmentID)
	return err == nil && plan.OwnerUserID == userID
}

func parseListQuery(r *http.Request) (ListInput, error) {
	q := r.URL.Query()
	in := ListInput{Limit: 50}

	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			return ListInput{}, errors.New("limit must be between 1 and 200")
		}
		in.Limit = n
	}

	if v := strings.TrimSpace(q.Get("status")); v != "" {
		for _, raw := range strings.Split(v, ",") {
			st := Status(strings.ToLower(strings.TrimSpace(raw)))
			if st == "" {
				continue
			}
			if !st.Valid() {
				return ListInput{}, errors.New("invalid status: " + raw)
			}
			in.Statuses = append(in.Statuses, st)
		}
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListInput{}, errors.New("from must be RFC3339")
		}
		in.From = &t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return ListInput{}, errors.New("to must be RFC3339")
		}
		in.To = &t
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return ListInput{}, errors.New("to must be after from")
	}
	return in, nil
}

func writeError(w http.ResponseWriter, err error) {
	var already *AlreadyConfirmedError
	var stale *StaleWriteError
	var invalid *schedule.InvalidScheduleError

	switch {
	case errors.Is(err, ErrInvalidInput), errors.As(err, &invalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "dose not found", http.StatusNotFound)
	case errors.As(err, &already), errors.As(err, &stale):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotYetConfirmable):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toDoseResponse(d Dose, win Windows) doseResponse {
	return doseResponse{
		ID:              d.ID,
		TreatmentID:     d.TreatmentID,
		Seq:             d.Seq,
		MedicationName:  d.MedicationName,
		ScheduledAt:     d.ScheduledAt,
		ConfirmableFrom: d.ConfirmableFrom(win),
		ExpiresAt:       d.ExpiresAt(win),
		ConfirmedAt:     d.ConfirmedAt,
		Status:          d.Status,
	}
}

// writeJSON duplicado por módulo, igual que en el resto de handlers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
