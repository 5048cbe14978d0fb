package httphandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/lib/pq"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/entities"
	"github.com/playvault/marketplace-backend/internal/serve/httperror"
	"github.com/playvault/marketplace-backend/internal/serve/middleware"
	"github.com/playvault/marketplace-backend/internal/services"
)

type AccountHandler struct {
	AccountService services.AccountService
	AppTracker     apptracker.AppTracker
}

type CreateAccountRequest struct {
	Game        string   `json:"game" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description"`
	LevelRank   string   `json:"levelRank"`
	AmountCents int64    `json:"amountCents" validate:"gt=0"`
	ImageURLs   []string `json:"imageUrls" validate:"max=10,dive,url"`
	Credentials string   `json:"credentials" validate:"required"`
}

func (h AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sellerID := middleware.UserIDFromContext(ctx)

	var reqBody CreateAccountRequest
	if httpErr := DecodeJSONAndValidate(ctx, r, &reqBody); httpErr != nil {
		httpErr.Render(w)
		return
	}

	account, err := h.AccountService.CreateListing(ctx, &entities.Account{
		SellerID:    sellerID,
		Game:        reqBody.Game,
		Title:       reqBody.Title,
		Description: reqBody.Description,
		LevelRank:   reqBody.LevelRank,
		AmountCents: reqBody.AmountCents,
		ImageURLs:   pq.StringArray(reqBody.ImageURLs),
		Credentials: reqBody.Credentials,
	})
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusCreated, account)
}

func (h AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "id")
	callerID := middleware.UserIDFromContext(ctx)

	account, err := h.AccountService.GetByID(ctx, accountID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	if !credentialsVisible(account, callerID) {
		account.Credentials = ""
	}
	renderJSON(w, http.StatusOK, account)
}

// credentialsVisible: the seller always sees the credentials; the buyer
// only after the sale completed.
func credentialsVisible(account *entities.Account, callerID string) bool {
	if callerID == "" {
		return false
	}
	if account.SellerID == callerID {
		return true
	}
	return account.BuyerID.Valid && account.BuyerID.String == callerID
}

func (h AccountHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.AccountService.Approve)
}

func (h AccountHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.AccountService.Reject)
}

func (h AccountHandler) moderate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id string) (*entities.Account, error)) {
	ctx := r.Context()
	accountID := chi.URLParam(r, "id")

	account, err := apply(ctx, accountID)
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	account.Credentials = ""
	renderJSON(w, http.StatusOK, account)
}
