package middlewares

import (
	"context"
	"net/http"
	"strings"

	"consent-service/internal/pkg/constvars"
	"consent-service/internal/pkg/exceptions"
	"consent-service/internal/pkg/utils"

	"go.uber.org/zap"
)

// Authenticate requires an HS256 bearer token signed with JWT_SECRET and stores its
// subject in the request context.
func (m *Middlewares) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get(constvars.HeaderAuthorization)
		if !strings.HasPrefix(authHeader, constvars.HeaderBearerPrefix) {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrAuthTokenMissing())
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, constvars.HeaderBearerPrefix))
		if token == "" {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrAuthTokenMissing())
			return
		}

		subject, err := utils.ParseJWT(token, m.InternalConfig.JWT.Secret)
		if err != nil {
			m.Log.Info("Middlewares.Authenticate rejected token",
				zap.String(constvars.LoggingRequestIDKey, utils.GetRequestID(r.Context())),
			)
			utils.BuildErrorResponse(m.Log, w, err)
			return
		}

		ctx := context.WithValue(r.Context(), constvars.CONTEXT_SUBJECT_KEY, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
