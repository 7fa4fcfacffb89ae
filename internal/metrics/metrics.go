// Package metrics exposes Prometheus metrics for the file API.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrop_http_requests_total",
			Help: "Total HTTP requests to the file API",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filedrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// UploadBytes counts bytes accepted by successful uploads.
	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "filedrop_upload_bytes_total",
			Help: "Bytes stored by successful uploads",
		},
	)

	// Operations counts file operations by name and result.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filedrop_operations_total",
			Help: "File operations by operation and result",
		},
		[]string{"operation", "result"},
	)
)

// Observe records one operation outcome.
func Observe(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Operations.WithLabelValues(operation, result).Inc()
}

// Middleware records request counts and latency per route template, so
// file ids and share tokens do not become label values.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := routeTemplate(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return "/api/other"
	}
	return r.URL.Path
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
