package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_UsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/api/files/{id}/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodDelete)

	counter := httpRequestsTotal.WithLabelValues(http.MethodDelete, "/api/files/{id}/", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/files/"+id+"/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestObserve(t *testing.T) {
	ok := Operations.WithLabelValues("share", "ok")
	failed := Operations.WithLabelValues("share", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	Observe("share", nil)
	Observe("share", errors.New("x"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}
