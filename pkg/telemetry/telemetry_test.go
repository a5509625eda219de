package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitWithoutEndpoint(t *testing.T) {
	shutdown, mw, err := Init(context.Background(), "studyd", "", zerolog.Nop())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if mw == nil {
		t.Fatal("Init() returned nil middleware")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, _, err := Init(context.Background(), "", "", zerolog.Nop()); err == nil {
		t.Fatal("Init() expected error for empty service name")
	}
}

func TestNewTraceExporterRejectsHostlessURL(t *testing.T) {
	if _, err := newTraceExporter(context.Background(), "http://"); err == nil {
		t.Fatal("expected error for endpoint without host")
	}
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := Middleware("studyd", log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/notifications", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["path"] != "/v1/notifications" || entry["method"] != "GET" {
		t.Fatalf("log entry = %v", entry)
	}
	if status, _ := entry["status"].(float64); int(status) != http.StatusTeapot {
		t.Fatalf("status = %v", entry["status"])
	}
}
