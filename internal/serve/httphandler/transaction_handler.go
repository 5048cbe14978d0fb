package httphandler

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/serve/httperror"
	"github.com/playvault/marketplace-backend/internal/serve/middleware"
	"github.com/playvault/marketplace-backend/internal/services"
)

type TransactionHandler struct {
	TransactionService services.TransactionService
	AppTracker         apptracker.AppTracker
}

// TransitionResponse is the payload returned by every lifecycle
// endpoint. AlreadyApplied tells the client a repeated request was
// absorbed without re-running side effects.
type TransitionResponse struct {
	Transaction    *entities.Transaction `json:"transaction"`
	AlreadyApplied bool                  `json:"alreadyApplied"`
}

func (h TransactionHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "accountID")
	buyerID := middleware.UserIDFromContext(ctx)

	result, err := h.TransactionService.Create(ctx, accountID, buyerID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusCreated, TransitionResponse{Transaction: result.Transaction})
}

func (h TransactionHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "id")
	actorID := middleware.UserIDFromContext(ctx)

	result, err := h.TransactionService.MarkPaymentReceived(ctx, transactionID, actorID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, TransitionResponse{Transaction: result.Transaction, AlreadyApplied: result.AlreadyApplied})
}

func (h TransactionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "id")
	actorID := middleware.UserIDFromContext(ctx)

	result, err := h.TransactionService.Complete(ctx, transactionID, actorID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, TransitionResponse{Transaction: result.Transaction, AlreadyApplied: result.AlreadyApplied})
}

type CancelTransactionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "id")
	actorID := middleware.UserIDFromContext(ctx)

	var reqBody CancelTransactionRequest
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody); httpErr != nil {
		httpErr.Render(w)
		return
	}

	result, err := h.TransactionService.Cancel(ctx, transactionID, actorID, reqBody.Reason)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, TransitionResponse{Transaction: result.Transaction, AlreadyApplied: result.AlreadyApplied})
}

func (h TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	transactionID := chi.URLParam(r, "id")
	actorID := middleware.UserIDFromContext(ctx)

	transaction, err := h.TransactionService.GetForParticipant(ctx, transactionID, actorID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, transaction)
}
