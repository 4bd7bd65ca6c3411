package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uipbdi/authgw/internal/observability"
)

// TestRequestID_GeneratesWhenAbsent tests that a missing request ID is
// generated and propagated to context and response.
func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	t.Parallel()

	// Arrange
	var ctxID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = observability.RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	// Act
	handler.ServeHTTP(rec, req)

	// Assert
	assert.NotEmpty(t, ctxID)
	assert.Equal(t, ctxID, rec.Header().Get(RequestIDHeader))
}

// TestRequestID_PreservesExisting tests that an inbound request ID is kept.
func TestRequestID_PreservesExisting(t *testing.T) {
	t.Parallel()

	var ctxID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = observability.RequestIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "existing-id")

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "existing-id", ctxID)
	assert.Equal(t, "existing-id", rec.Header().Get(RequestIDHeader))
}

// TestRequestIDWithGenerator tests the custom generator hook.
func TestRequestIDWithGenerator(t *testing.T) {
	t.Parallel()

	handler := RequestIDWithGenerator(func() string { return "fixed-id" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))
}
