package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/playvault/marketplace-backend/internal/apptracker"
	"github.com/playvault/marketplace-backend/internal/serve/auth"
	"github.com/playvault/marketplace-backend/internal/serve/httperror"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// UserIDFromContext returns the authenticated user id set by the
// authentication middleware, or empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDContextKey).(string)
	return userID
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// RecoverHandler converts handler panics into 500 responses and reports
// them to the app tracker instead of killing the connection.
func RecoverHandler(appTracker apptracker.AppTracker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}

				ctx := req.Context()
				logrus.WithContext(ctx).WithError(err).Error("panic while serving request")
				httperror.InternalServerError(ctx, "", err, nil, appTracker).Render(rw)
			}()

			next.ServeHTTP(rw, req)
		})
	}
}

// AuthenticationMiddleware requires a valid bearer token and stores the
// resolved user id on the request context.
func AuthenticationMiddleware(jwtManager *auth.JWTManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			userID, err := userIDFromRequest(req, jwtManager)
			if err != nil {
				httperror.Unauthorized("", nil).Render(rw)
				return
			}
			if userID == "" {
				httperror.Unauthorized("", nil).Render(rw)
				return
			}

			ctx := ContextWithUserID(req.Context(), userID)
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

// OptionalAuthenticationMiddleware resolves the user id when a bearer
// token is present but lets anonymous requests through. A present but
// invalid token is still rejected.
func OptionalAuthenticationMiddleware(jwtManager *auth.JWTManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			userID, err := userIDFromRequest(req, jwtManager)
			if err != nil {
				httperror.Unauthorized("", nil).Render(rw)
				return
			}

			ctx := req.Context()
			if userID != "" {
				ctx = ContextWithUserID(ctx, userID)
			}
			next.ServeHTTP(rw, req.WithContext(ctx))
		})
	}
}

func userIDFromRequest(req *http.Request, jwtManager *auth.JWTManager) (string, error) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", nil
	}

	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", fmt.Errorf("malformed authorization header")
	}

	userID, err := jwtManager.ParseToken(tokenString)
	if err != nil {
		return "", fmt.Errorf("parsing bearer token: %w", err)
	}
	return userID, nil
}
