package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"agentmemory/internal/identity"
	"agentmemory/pkg/domain"
	"agentmemory/pkg/requestcontext"
)

// CallerValidator validates a bearer token and resolves the caller address.
type CallerValidator interface {
	ValidateToken(tokenString string) (domain.Address, error)
}

// RequireCaller authenticates the caller and places the verified address
// into the request context. The identity check behind the token is the
// placeholder verifier: any non-zero address passes.
func RequireCaller(validator CallerValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				unauthorized(w)
				return
			}

			caller, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}
			if !identity.Verify(caller) {
				logger.WarnContext(ctx, "unauthorized - zero caller address",
					"request_id", requestcontext.RequestID(ctx),
				)
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
