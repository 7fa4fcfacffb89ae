package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/maneesh/filedrop/internal/chunker"
	"github.com/maneesh/filedrop/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterConfig carries the knobs the handlers need beyond storage.
type RouterConfig struct {
	Chunker      *chunker.Chunker
	URLs         URLs
	FetchWorkers int
	ShareTTLDays int
}

// NewRouter wires every /api route plus /health and /metrics.
func NewRouter(stores Stores, cfg RouterConfig, logger *slog.Logger) *mux.Router {
	uploads := NewUploadHandler(stores, cfg.Chunker, cfg.URLs, logger)
	downloads := NewDownloadHandler(stores, cfg.FetchWorkers, logger)
	files := NewFilesHandler(stores, cfg.URLs, logger)
	shares := NewShareHandler(stores, downloads, cfg.URLs, cfg.ShareTTLDays, logger)

	router := mux.NewRouter()
	router.Use(metrics.Middleware)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	traced := func(method, path string, h http.Handler) {
		api.Handle(path, otelhttp.NewHandler(h, method+" /api"+path)).Methods(method)
	}

	traced(http.MethodPost, "/upload/", uploads)
	traced(http.MethodGet, "/files/", http.HandlerFunc(files.ListMine))
	traced(http.MethodGet, "/public-files/", http.HandlerFunc(files.ListPublic))
	traced(http.MethodDelete, "/files/{id}/", http.HandlerFunc(files.Delete))
	traced(http.MethodPost, "/files/{id}/share/", http.HandlerFunc(shares.Create))
	traced(http.MethodGet, "/files/{id}/download/", downloads)
	traced(http.MethodGet, "/share/{token}/", http.HandlerFunc(shares.Download))

	return router
}
