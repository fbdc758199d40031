package diag_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nikosgri/sensornode/diag"
	"github.com/nikosgri/sensornode/wifi"
)

type stubSource struct {
	status wifi.Status
}

func (s stubSource) Status() wifi.Status {
	return s.status
}

func newTestServer(status wifi.Status) *diag.Server {
	return &diag.Server{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Source: stubSource{status: status},
	}
}

func TestServer(t *testing.T) {
	t.Run("Status snapshot as JSON", func(t *testing.T) {
		status := wifi.Status{
			BoardIP:     "192.168.1.77",
			HardwareID:  "c8:d7:78:3c:9a:01",
			Conn:        wifi.StateConnected,
			RSSI:        -42,
			SensorValue: 1250,
		}

		rec := httptest.NewRecorder()
		newTestServer(status).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}

		var got struct {
			BoardIP     string `json:"board_ip"`
			HardwareID  string `json:"hardware_id"`
			Conn        string `json:"conn"`
			RSSI        int    `json:"rssi"`
			SensorValue int    `json:"sensor_value"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.BoardIP != status.BoardIP || got.HardwareID != status.HardwareID {
			t.Errorf("expected %+v, got %+v", status, got)
		}
		if got.Conn != "connected" {
			t.Errorf("expected the state by name, got %q", got.Conn)
		}
		if got.RSSI != -42 || got.SensorValue != 1250 {
			t.Errorf("expected %+v, got %+v", status, got)
		}
	})

	t.Run("Health check", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(wifi.Status{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Body.String() != "ok" {
			t.Errorf("expected body ok, got %q", rec.Body.String())
		}
	})

	t.Run("Unknown path", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(wifi.Status{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("Status rejects writes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(wifi.Status{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status 405, got %d", rec.Code)
		}
	})
}
