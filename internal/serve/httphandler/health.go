package httphandler

import (
	"net/http"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/db"
	"github.com/playvault/marketplace-backend/internal/serve/httperror"
)

type HealthHandler struct {
	DBConnectionPool db.ConnectionPool
	AppTracker       apptracker.AppTracker
}

func (h HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.DBConnectionPool.Ping(ctx); err != nil {
		httperror.InternalServerError(ctx, "", err, nil, h.AppTracker).Render(w)
		return
	}

	renderJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
