package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doseclock/internal/app"
	"doseclock/internal/platform/clock"
	"doseclock/internal/platform/config"
)

var start = time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)

func newServer(t *testing.T) (*httptest.Server, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(start)
	a, err := app.New(context.Background(), config.Default(), nil, clk)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ts := httptest.NewServer(a.Handler())
	t.Cleanup(ts.Close)
	return ts, clk
}

func TestHTTP_EndToEnd_ConfirmDose(t *testing.T) {
	ts, clk := newServer(t)
	owner := "owner-1"

	// 1) Medicamento y tratamiento cada 8h desde las 08:00
	medID := createResource(t, ts.URL, "/medications", owner, map[string]any{
		"name": "Amoxicilina",
	})
	treatmentID := createResource(t, ts.URL, "/treatments", owner, map[string]any{
		"medication_id":  medID,
		"start_at":       "2025-03-01T08:00:00Z",
		"interval_hours": 8,
		"anchor":         "from_scheduled",
		"duration_days":  7,
	})

	// 2) La primera dosis ya está sembrada y pendiente
	doseID := ""
	{
		st, body := doReq(t, ts.URL, "GET", "/treatments/"+treatmentID+"/doses", owner, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 listing doses, got %d body=%s", st, string(body))
		}
		var items []struct {
			ID          string    `json:"id"`
			Seq         int       `json:"seq"`
			Status      string    `json:"status"`
			ScheduledAt time.Time `json:"scheduled_at"`
		}
		_ = json.Unmarshal(body, &items)
		if len(items) == 0 || items[0].Seq != 1 || items[0].Status != "pending" {
			t.Fatalf("expected first dose pending, got %s", string(body))
		}
		if !items[0].ScheduledAt.Equal(start.Add(time.Hour)) {
			t.Fatalf("expected first dose at 08:00, got %s", items[0].ScheduledAt)
		}
		doseID = items[0].ID
	}

	// 3) Antes de la ventana => 422
	{
		st, body := doReq(t, ts.URL, "POST", "/doses/"+doseID+"/confirm", owner, nil)
		if st != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422 before window, got %d body=%s", st, string(body))
		}
	}

	// 4) Otro usuario no ve la dosis
	{
		st, _ := doReq(t, ts.URL, "GET", "/doses/"+doseID, "intruder", nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 for foreign dose, got %d", st)
		}
	}

	// 5) A las 08:03 se confirma a tiempo
	clk.Set(start.Add(63 * time.Minute))
	{
		st, body := doReq(t, ts.URL, "POST", "/doses/"+doseID+"/confirm", owner, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 confirm, got %d body=%s", st, string(body))
		}
		var d struct {
			Status string `json:"status"`
		}
		_ = json.Unmarshal(body, &d)
		if d.Status != "confirmed" {
			t.Fatalf("expected confirmed, got %s", string(body))
		}
	}

	// 6) Segunda confirmación => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/doses/"+doseID+"/confirm", owner, nil)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on second confirm, got %d", st)
		}
	}

	// 7) Adherencia refleja la confirmación
	{
		st, body := doReq(t, ts.URL, "GET", "/treatments/"+treatmentID+"/doses/adherence", owner, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 adherence, got %d body=%s", st, string(body))
		}
		var a struct {
			Confirmed int `json:"confirmed"`
		}
		_ = json.Unmarshal(body, &a)
		if a.Confirmed != 1 {
			t.Fatalf("expected 1 confirmed, got %s", string(body))
		}
	}
}

func TestHTTP_ConfirmUsesServerClock(t *testing.T) {
	ts, clk := newServer(t)
	owner := "owner-1"

	medID := createResource(t, ts.URL, "/medications", owner, map[string]any{"name": "Amoxicilina"})
	treatmentID := createResource(t, ts.URL, "/treatments", owner, map[string]any{
		"medication_id":  medID,
		"start_at":       "2025-03-01T08:00:00Z",
		"interval_hours": 8,
		"anchor":         "from_scheduled",
		"duration_days":  7,
	})

	st, body := doReq(t, ts.URL, "GET", "/treatments/"+treatmentID+"/doses", owner, nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 listing doses, got %d body=%s", st, string(body))
	}
	var items []struct {
		ID  string `json:"id"`
		Seq int    `json:"seq"`
	}
	_ = json.Unmarshal(body, &items)
	bySeq := map[int]string{}
	for _, it := range items {
		bySeq[it.Seq] = it.ID
	}
	if bySeq[1] == "" || bySeq[2] == "" {
		t.Fatalf("expected doses 08:00 and 16:00 seeded, got %s", string(body))
	}

	clk.Set(start.Add(3 * time.Hour)) // 10:00

	// una hora de toma anterior enviada por el cliente no convierte la tardía en confirmada
	st, body = doReq(t, ts.URL, "POST", "/doses/"+bySeq[1]+"/confirm", owner, map[string]any{
		"confirmed_at": "2025-03-01T08:05:00Z",
	})
	if st != http.StatusOK {
		t.Fatalf("expected 200 confirm, got %d body=%s", st, string(body))
	}
	var d struct {
		Status      string    `json:"status"`
		ConfirmedAt time.Time `json:"confirmed_at"`
	}
	_ = json.Unmarshal(body, &d)
	if d.Status != "late" || !d.ConfirmedAt.Equal(start.Add(3*time.Hour)) {
		t.Fatalf("expected late at 10:00, got %s", string(body))
	}

	// una hora futura tampoco abre la ventana de las 16:00
	st, body = doReq(t, ts.URL, "POST", "/doses/"+bySeq[2]+"/confirm", owner, map[string]any{
		"confirmed_at": "2025-03-01T15:58:00Z",
	})
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 before window, got %d body=%s", st, string(body))
	}
}

func TestHTTP_CreateTreatment_RejectsBadSchedule(t *testing.T) {
	ts, _ := newServer(t)
	owner := "owner-1"

	medID := createResource(t, ts.URL, "/medications", owner, map[string]any{"name": "Ibuprofeno"})

	st, body := doReq(t, ts.URL, "POST", "/treatments", owner, map[string]any{
		"medication_id":  medID,
		"start_at":       "2025-03-01T08:00:00Z",
		"interval_hours": 0,
	})
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero interval, got %d body=%s", st, string(body))
	}

	// sin usuario => 401
	st, _ = doReq(t, ts.URL, "GET", "/treatments", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", st)
	}
}

func TestHTTP_TimeAndHealth(t *testing.T) {
	ts, _ := newServer(t)

	st, body := doReq(t, ts.URL, "GET", "/health", "", nil)
	if st != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health: %d %s", st, string(body))
	}

	st, body = doReq(t, ts.URL, "GET", "/time", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 /time, got %d", st)
	}
	var ref struct {
		UnixMS int64 `json:"unix_ms"`
	}
	_ = json.Unmarshal(body, &ref)
	if ref.UnixMS != start.UnixMilli() {
		t.Fatalf("expected server clock %d, got %s", start.UnixMilli(), string(body))
	}
}

func createResource(t *testing.T, baseURL, path, userID string, payload map[string]any) string {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", path, userID, payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 POST %s, got %d body=%s", path, st, string(body))
	}

	var resp struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("POST %s: missing id body=%s", path, string(body))
	}
	return resp.ID
}

func doReq(t *testing.T, baseURL, method, path, debugUserID string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("json marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if debugUserID != "" {
		req.Header.Set("X-Debug-User-ID", debugUserID)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	respBody, _ := io.ReadAll(res.Body)
	return res.StatusCode, respBody
}
