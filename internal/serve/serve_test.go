package serve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/metrics"
	"github.com/playvault/marketplace-backend/internal/serve/auth"
	"github.com/playvault/marketplace-backend/internal/services"
)

func newTestDeps(t *testing.T) handlerDeps {
	t.Helper()

	jwtManager, err := auth.NewJWTManager("test-signing-key", time.Hour)
	require.NoError(t, err)

	return handlerDeps{
		MetricsService:     metrics.NewMetricsService(nil),
		AppTracker:         &apptracker.MockAppTracker{},
		JWTManager:         jwtManager,
		AdminUserIDs:       []string{"admin-1"},
		AccountService:     &services.MockAccountService{},
		TransactionService: &services.MockTransactionService{},
		ListingService:     &services.MockListingService{},
	}
}

func bearerFor(t *testing.T, deps handlerDeps, userID string) string {
	t.Helper()
	token, err := deps.JWTManager.GenerateToken(userID)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHandlerUnknownRouteRendersJSON(t *testing.T) {
	deps := newTestDeps(t)
	handler := NewHandler(deps)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "not found")
}

func TestHandlerWriteRoutesRequireAuth(t *testing.T) {
	deps := newTestDeps(t)
	handler := NewHandler(deps)

	req := httptest.NewRequest(http.MethodPost, "/listings/acc-1/purchase", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerListingsAllowAnonymous(t *testing.T) {
	deps := newTestDeps(t)
	mockListingService := deps.ListingService.(*services.MockListingService)
	mockListingService.On("List", mock.Anything, mock.Anything).
		Return(&services.ListingPage{}, nil).Once()

	handler := NewHandler(deps)

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	mockListingService.AssertExpectations(t)
}

func TestHandlerAdminRoutes(t *testing.T) {
	deps := newTestDeps(t)
	mockAccountService := deps.AccountService.(*services.MockAccountService)
	handler := NewHandler(deps)

	t.Run("non-admin forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin/accounts/acc-1/approve", nil)
		req.Header.Set("Authorization", bearerFor(t, deps, "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin allowed", func(t *testing.T) {
		mockAccountService.On("Approve", mock.Anything, "acc-1").
			Return(&entities.Account{ID: "acc-1", ApprovalStatus: entities.ApprovalStatusApproved}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/admin/accounts/acc-1/approve", nil)
		req.Header.Set("Authorization", bearerFor(t, deps, "admin-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	mockAccountService.AssertExpectations(t)
}
