package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/serve/auth"
)

func newTestJWTManager(t *testing.T) *auth.JWTManager {
	t.Helper()
	manager, err := auth.NewJWTManager("test-signing-key", time.Hour)
	require.NoError(t, err)
	return manager
}

func TestAuthenticationMiddleware(t *testing.T) {
	jwtManager := newTestJWTManager(t)

	handler := AuthenticationMiddleware(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	}))

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("user-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", rec.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/transactions/abc", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOptionalAuthenticationMiddleware(t *testing.T) {
	jwtManager := newTestJWTManager(t)

	handler := OptionalAuthenticationMiddleware(jwtManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	}))

	t.Run("anonymous allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("token resolved when present", func(t *testing.T) {
		token, err := jwtManager.GenerateToken("seller-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "seller-1", rec.Body.String())
	})

	t.Run("invalid token still rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/listings", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRecoverHandler(t *testing.T) {
	mockAppTracker := &apptracker.MockAppTracker{}
	mockAppTracker.On("CaptureException", errors.New("boom")).Return().Once()

	handler := RecoverHandler(mockAppTracker)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(errors.New("boom"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	mockAppTracker.AssertExpectations(t)
}

func TestMetricsMiddlewareCapturesStatus(t *testing.T) {
	mockMetricsService := metrics.NewMockMetricsService()
	mockMetricsService.On("ObserveRequestDuration", "/listings", http.MethodGet, mock.Anything).Return().Once()
	mockMetricsService.On("IncNumRequests", "/listings", http.MethodGet, http.StatusTeapot).Return().Once()

	handler := MetricsMiddleware(mockMetricsService)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	mockMetricsService.AssertExpectations(t)
}
