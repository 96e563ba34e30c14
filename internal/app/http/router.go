package http

import (
	"github.com/beldeveloper/ecomet/internal/app/errtype"
	"github.com/beldeveloper/ecomet/internal/app/metrics"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

// NewRouter creates and configures a new instance of the router.
func NewRouter(h Handler, m *metrics.Collector, g prometheus.Gatherer) *httprouter.Router {
	r := httprouter.New()
	handle := func(method, path string, fn httprouter.Handle) {
		r.Handle(method, path, instrument(m, method, path, fn))
	}

	handle(http.MethodGet, "/api/db_version", h.DBVersion)
	handle(http.MethodGet, "/api/repositories", h.Repositories)
	handle(http.MethodGet, "/api/repositories/:owner/:name", h.Repository)
	handle(http.MethodPost, "/api/compose/validate", h.ValidateCompose)
	handle(http.MethodPost, "/api/compose/order", h.ComposeOrder)
	handle(http.MethodGet, "/healthz", h.Liveness)
	handle(http.MethodGet, "/readyz", h.Readiness)
	r.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	r.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetDefaultHeaders(w)
		h := w.Header()
		h.Set("Access-Control-Allow-Methods", h.Get("Allow"))
		w.WriteHeader(http.StatusNoContent)
	})
	r.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "not found", Code: "NOT_FOUND", Details: errtype.Details{}})
	})

	return r
}

// NewServerHandler wraps the router with the request ID middleware.
func NewServerHandler(r *httprouter.Router) http.Handler {
	return WithRequestID(r)
}
