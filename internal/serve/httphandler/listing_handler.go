package httphandler

import (
	"net/http"
	"strconv"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/serve/httperror"
	"github.com/playvault/marketplace-backend/internal/serve/middleware"
	"github.com/playvault/marketplace-backend/internal/services"
)

type ListingHandler struct {
	ListingService services.ListingService
	AppTracker     apptracker.AppTracker
}

func (h ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	var first int64
	if rawFirst := params.Get("first"); rawFirst != "" {
		var err error
		first, err = strconv.ParseInt(rawFirst, 10, 32)
		if err != nil || first < 0 {
			httperror.BadRequest("Invalid page size.", map[string]interface{}{
				"first": "Should be a non-negative integer",
			}).Render(w)
			return
		}
	}

	page, err := h.ListingService.List(ctx, services.ListingRequest{
		Query:       params.Get("query"),
		First:       int32(first),
		After:       params.Get("after"),
		IncludeHeld: params.Get("includeHeld") == "true",
		CallerID:    middleware.UserIDFromContext(ctx),
	})
	if err != nil {
		httperror.FromDomainError(ctx, err, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, page)
}
