package server

import (
	"log/slog"
	"net/http"
	"strings"
)

// Options configure the HTTP surface.
type Options struct {
	Engine         Engine
	Hub            *Hub
	Gate           TokenGate
	Reports        Reporter
	ReportFilename string
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Handler builds the API, websocket and metrics routes.
func Handler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "server"))
	if opts.Hub == nil {
		opts.Hub = NewHub(logger)
	}
	if opts.ReportFilename == "" {
		opts.ReportFilename = "Interview_Report.txt"
	}

	mux := http.NewServeMux()
	registerWSRoute(mux, opts.Hub, logger)
	registerAPIRoutes(mux, opts)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		http.NotFound(w, r)
	})

	return withCaller(mux)
}
