package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "schoolevents/internal/delivery/http/helpers"
	"schoolevents/internal/domain"
)

type ctxKey int

const userIDKey ctxKey = iota

var (
	errNoCredentials   = errors.New("missing authorization header")
	errNotBearer       = errors.New("authorization scheme must be Bearer")
	errEmptyBearer     = errors.New("missing token")
	challengeHeaderVal = `Bearer realm="schoolevents"`
)

// SetUserID returns a context carrying the authenticated user ID.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// bearerToken extracts the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errNotBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errEmptyBearer
	}
	return token, nil
}

// RequireAuth rejects requests without a valid bearer token with 401 and stores
// the token subject as the caller's user ID.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, err.Error())
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil || userID == "" {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				unauthorized(w, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetUserID(r.Context(), userID)))
		}
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", challengeHeaderVal)
	h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
}
