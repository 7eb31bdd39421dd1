package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sandeepkv93/secure-credential-service/internal/http/response"
)

type contextKey string

const (
	ActorContextKey contextKey = "actor"

	ActorIDHeader = "X-Actor-ID"
)

// Actor resolves the calling principal from X-Actor-ID. A missing header
// means the anonymous actor 0; a malformed one is rejected.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(ActorIDHeader))
		var actor uint
		if raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid actor id", nil)
				return
			}
			actor = uint(id)
		}
		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ActorFromContext(ctx context.Context) uint {
	actor, _ := ctx.Value(ActorContextKey).(uint)
	return actor
}
