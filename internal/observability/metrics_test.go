package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics(testLogger)
	m.PagesFetched.Add(3)
	m.StubsParsed.Add(42)
	m.ClassifyErrors.Add(1)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"ngascope_pages_fetched_total 3",
		"ngascope_stubs_parsed_total 42",
		"ngascope_classify_errors_total 1",
		"ngascope_classified_total 0",
		"# TYPE ngascope_pages_fetched_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

func TestSnapshot(t *testing.T) {
	m := NewMetrics(testLogger)
	m.ContentFetched.Add(7)

	snap := m.Snapshot()
	if snap["content_fetched"] != 7 {
		t.Errorf("snapshot = %v", snap)
	}
	if len(snap) != 8 {
		t.Errorf("expected 8 counters, got %d", len(snap))
	}
}
