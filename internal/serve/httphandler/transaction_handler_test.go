package httphandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/serve/middleware"
	"github.com/playvault/marketplace-backend/internal/services"
)

// asUser simulates the authentication middleware resolving a bearer
// token into a user id.
func asUser(userID string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTransactionRouter(handler TransactionHandler, userID string) *chi.Mux {
	router := chi.NewRouter()
	router.Use(asUser(userID))
	router.Post("/listings/{accountID}/purchase", handler.Purchase)
	router.Post("/transactions/{id}/payment", handler.ConfirmPayment)
	router.Post("/transactions/{id}/complete", handler.Complete)
	router.Post("/transactions/{id}/cancel", handler.Cancel)
	router.Get("/transactions/{id}", handler.Get)
	return router
}

func TestTransactionHandlerPurchase(t *testing.T) {
	mockTxService := &services.MockTransactionService{}
	handler := TransactionHandler{TransactionService: mockTxService, AppTracker: &apptracker.MockAppTracker{}}
	router := newTransactionRouter(handler, "buyer-1")

	t.Run("success", func(t *testing.T) {
		transaction := &entities.Transaction{ID: "tx-1", AccountID: "acc-1", BuyerID: "buyer-1", Status: entities.TransactionStatusPending}
		mockTxService.On("Create", mock.Anything, "acc-1", "buyer-1").
			Return(&services.TransitionResult{Transaction: transaction}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/listings/acc-1/purchase", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp TransitionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "tx-1", resp.Transaction.ID)
		assert.False(t, resp.AlreadyApplied)
	})

	t.Run("account held by another purchase", func(t *testing.T) {
		mockTxService.On("Create", mock.Anything, "acc-2", "buyer-1").
			Return(nil, fmt.Errorf("creating purchase: %w", entities.ErrActiveTransactionExists)).Once()

		req := httptest.NewRequest(http.MethodPost, "/listings/acc-2/purchase", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("self purchase", func(t *testing.T) {
		mockTxService.On("Create", mock.Anything, "acc-3", "buyer-1").
			Return(nil, entities.ErrSelfPurchase).Once()

		req := httptest.NewRequest(http.MethodPost, "/listings/acc-3/purchase", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("account not found", func(t *testing.T) {
		mockTxService.On("Create", mock.Anything, "missing", "buyer-1").
			Return(nil, entities.ErrAccountNotFound).Once()

		req := httptest.NewRequest(http.MethodPost, "/listings/missing/purchase", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	mockTxService.AssertExpectations(t)
}

func TestTransactionHandlerLifecycle(t *testing.T) {
	mockTxService := &services.MockTransactionService{}
	handler := TransactionHandler{TransactionService: mockTxService, AppTracker: &apptracker.MockAppTracker{}}
	router := newTransactionRouter(handler, "buyer-1")

	t.Run("confirm payment", func(t *testing.T) {
		transaction := &entities.Transaction{ID: "tx-1", Status: entities.TransactionStatusPending}
		mockTxService.On("MarkPaymentReceived", mock.Anything, "tx-1", "buyer-1").
			Return(&services.TransitionResult{Transaction: transaction}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions/tx-1/payment", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("complete already applied", func(t *testing.T) {
		transaction := &entities.Transaction{ID: "tx-1", Status: entities.TransactionStatusCompleted}
		mockTxService.On("Complete", mock.Anything, "tx-1", "buyer-1").
			Return(&services.TransitionResult{Transaction: transaction, AlreadyApplied: true}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions/tx-1/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp TransitionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.AlreadyApplied)
	})

	t.Run("complete from terminal state", func(t *testing.T) {
		mockTxService.On("Complete", mock.Anything, "tx-2", "buyer-1").
			Return(nil, fmt.Errorf("%w: transaction is CANCELLED", entities.ErrInvalidTransition)).Once()

		req := httptest.NewRequest(http.MethodPost, "/transactions/tx-2/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("cancel with reason", func(t *testing.T) {
		transaction := &entities.Transaction{ID: "tx-1", Status: entities.TransactionStatusCancelled}
		mockTxService.On("Cancel", mock.Anything, "tx-1", "buyer-1", "changed my mind").
			Return(&services.TransitionResult{Transaction: transaction}, nil).Once()

		body, err := json.Marshal(CancelTransactionRequest{Reason: "changed my mind"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/transactions/tx-1/cancel", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("cancel without reason", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transactions/tx-1/cancel", bytes.NewReader([]byte(`{}`)))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get as non participant", func(t *testing.T) {
		mockTxService.On("GetForParticipant", mock.Anything, "tx-9", "buyer-1").
			Return(nil, entities.ErrNotParticipant).Once()

		req := httptest.NewRequest(http.MethodGet, "/transactions/tx-9", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	mockTxService.AssertExpectations(t)
}
