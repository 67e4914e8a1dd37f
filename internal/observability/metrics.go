package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for a crawl run.
type Metrics struct {
	PagesFetched   atomic.Int64
	PageErrors     atomic.Int64
	StubsParsed    atomic.Int64
	ContentFetched atomic.Int64
	ContentErrors  atomic.Int64
	Classified     atomic.Int64
	Fallbacks      atomic.Int64
	ClassifyErrors atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"ngascope_pages_fetched_total", "Listing pages fetched", m.PagesFetched.Load()},
		{"ngascope_page_errors_total", "Listing pages that failed to fetch or parse", m.PageErrors.Load()},
		{"ngascope_stubs_parsed_total", "Unique post stubs parsed from listings", m.StubsParsed.Load()},
		{"ngascope_content_fetched_total", "Thread bodies fetched", m.ContentFetched.Load()},
		{"ngascope_content_errors_total", "Thread bodies that failed to fetch", m.ContentErrors.Load()},
		{"ngascope_classified_total", "Posts classified", m.Classified.Load()},
		{"ngascope_fallbacks_total", "Classifications that used the keyword fallback", m.Fallbacks.Load()},
		{"ngascope_classify_errors_total", "Posts whose classification was unavailable", m.ClassifyErrors.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP listener.
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	m.logger.Info("metrics server starting", "addr", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map for end-of-run logging.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":   m.PagesFetched.Load(),
		"page_errors":     m.PageErrors.Load(),
		"stubs_parsed":    m.StubsParsed.Load(),
		"content_fetched": m.ContentFetched.Load(),
		"content_errors":  m.ContentErrors.Load(),
		"classified":      m.Classified.Load(),
		"fallbacks":       m.Fallbacks.Load(),
		"classify_errors": m.ClassifyErrors.Load(),
	}
}
