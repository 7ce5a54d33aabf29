package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenantdesk/tenantdesk/internal/platform/httpx"
	"github.com/tenantdesk/tenantdesk/internal/shared"
)

// Middleware authenticates bearer tokens.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid bearer token and stores the
// resolved user as the request actor.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httpx.Unauthorized(w, r)
			return
		}
		user, err := m.Service.UserFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrInvalidToken) {
				httpx.Unauthorized(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("auth load user", slog.Any("error", err))
			}
			httpx.RespondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
