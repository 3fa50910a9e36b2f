// Package metrics exposes Prometheus counters for the capture binaries.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_stored_total", Help: "Stream events persisted, by kind"},
		[]string{"kind"},
	)
	StorageErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "storage_errors_total", Help: "Failed storage writes, by kind"},
		[]string{"kind"},
	)
	ParseDrops = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "parse_drops_total", Help: "Messages dropped for parse or classification failure"},
	)
	Reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ws_reconnects_total", Help: "Push-feed reconnect attempts"},
	)
	PollSnapshots = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "poll_snapshots_total", Help: "Order book snapshots captured via REST"},
	)
	PollErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "poll_errors_total", Help: "Per-target poll failures, by cause"},
		[]string{"cause"},
	)
	FillsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fills_inserted_total", Help: "Backfilled fill records inserted"},
	)
)

func init() {
	prometheus.MustRegister(
		EventsStored,
		StorageErrors,
		ParseDrops,
		Reconnects,
		PollSnapshots,
		PollErrors,
		FillsInserted,
	)
}

// Serve starts an HTTP server exposing the metrics endpoint at path.
// Extra handlers (e.g. /health) may be registered on the returned mux
// before traffic arrives.
func Serve(addr, path string) (*http.Server, *http.ServeMux) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv, mux
}
