// Package testutil provides an HTTP mock of the file API for client tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockServer is an httptest server that counts the requests it receives.
type MockServer struct {
	*httptest.Server

	mu    sync.Mutex
	calls map[string]int
}

// NewMockServer serves handlers keyed by net/http patterns such as
// "GET /api/files/{$}". Unmatched requests get 404. The server is closed
// when the test finishes.
func NewMockServer(t *testing.T, handlers map[string]http.HandlerFunc) *MockServer {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}

	ms := &MockServer{calls: make(map[string]int)}
	ms.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ms.mu.Lock()
		ms.calls[r.Method+" "+r.URL.Path]++
		ms.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ms.Close)
	return ms
}

// Calls returns how many requests hit method and path.
func (ms *MockServer) Calls(method, path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.calls[method+" "+path]
}

// TotalCalls returns the number of requests received.
func (ms *MockServer) TotalCalls() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, c := range ms.calls {
		n += c
	}
	return n
}

// WithJSONResponse creates an HTTP handler that returns a JSON response.
func WithJSONResponse(statusCode int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

// WithGate blocks the handler until gate is closed or the request ends.
// entered receives one value per request that reached the gate.
func WithGate(gate <-chan struct{}, entered chan<- struct{}, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if entered != nil {
			entered <- struct{}{}
		}
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
		handler(w, r)
	}
}

// Hijacked aborts the connection without a response, which clients see as a
// network failure.
func Hijacked() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
	}
}
