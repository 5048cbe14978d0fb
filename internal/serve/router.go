package serve

import (
	"net/http"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playvault/marketplace-backend/internal/serve/httperror"
	"github.com/playvault/marketplace-backend/internal/serve/httphandler"
	"github.com/playvault/marketplace-backend/internal/serve/middleware"
)

// NewHandler creates the main HTTP handler with all routes configured.
func NewHandler(deps handlerDeps) http.Handler {
	mux := chi.NewRouter()
	mux.NotFound(httperror.ErrorHandler{Error: httperror.NotFound}.ServeHTTP)
	mux.MethodNotAllowed(httperror.ErrorHandler{Error: httperror.MethodNotAllowed}.ServeHTTP)

	mux.Use(middleware.MetricsMiddleware(deps.MetricsService))
	mux.Use(middleware.RecoverHandler(deps.AppTracker))

	setupPublicRoutes(mux, deps)
	setupReadRoutes(mux, deps)
	setupWriteRoutes(mux, deps)
	setupAdminRoutes(mux, deps)

	return mux
}

func setupPublicRoutes(mux *chi.Mux, deps handlerDeps) {
	mux.Get("/health", httphandler.HealthHandler{
		DBConnectionPool: deps.DBConnectionPool,
		AppTracker:       deps.AppTracker,
	}.GetHealth)

	mux.Get("/metrics", promhttp.HandlerFor(
		deps.MetricsService.GetRegistry(),
		promhttp.HandlerOpts{},
	).ServeHTTP)
}

// Read routes allow anonymous access; a bearer token, when present,
// resolves the caller so sellers can view their own held listings.
func setupReadRoutes(mux *chi.Mux, deps handlerDeps) {
	mux.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuthenticationMiddleware(deps.JWTManager))

		listingHandler := httphandler.ListingHandler{
			ListingService: deps.ListingService,
			AppTracker:     deps.AppTracker,
		}
		r.Get("/listings", listingHandler.List)

		accountHandler := httphandler.AccountHandler{
			AccountService: deps.AccountService,
			AppTracker:     deps.AppTracker,
		}
		r.Get("/accounts/{id}", accountHandler.Get)
	})
}

func setupWriteRoutes(mux *chi.Mux, deps handlerDeps) {
	mux.Group(func(r chi.Router) {
		r.Use(middleware.AuthenticationMiddleware(deps.JWTManager))

		accountHandler := httphandler.AccountHandler{
			AccountService: deps.AccountService,
			AppTracker:     deps.AppTracker,
		}
		r.Post("/accounts", accountHandler.Create)

		transactionHandler := httphandler.TransactionHandler{
			TransactionService: deps.TransactionService,
			AppTracker:         deps.AppTracker,
		}
		r.Post("/listings/{accountID}/purchase", transactionHandler.Purchase)
		r.Route("/transactions/{id}", func(r chi.Router) {
			r.Get("/", transactionHandler.Get)
			r.Post("/payment", transactionHandler.ConfirmPayment)
			r.Post("/complete", transactionHandler.Complete)
			r.Post("/cancel", transactionHandler.Cancel)
		})
	})
}

func setupAdminRoutes(mux *chi.Mux, deps handlerDeps) {
	adminIDs := mapset.NewSet(deps.AdminUserIDs...)

	mux.Group(func(r chi.Router) {
		r.Use(middleware.AuthenticationMiddleware(deps.JWTManager))
		r.Use(requireAdmin(adminIDs))

		accountHandler := httphandler.AccountHandler{
			AccountService: deps.AccountService,
			AppTracker:     deps.AppTracker,
		}
		r.Post("/admin/accounts/{id}/approve", accountHandler.Approve)
		r.Post("/admin/accounts/{id}/reject", accountHandler.Reject)
	})
}

func requireAdmin(adminIDs mapset.Set[string]) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			if !adminIDs.Contains(middleware.UserIDFromContext(req.Context())) {
				httperror.Forbidden("", nil).Render(rw)
				return
			}
			next.ServeHTTP(rw, req)
		})
	}
}
