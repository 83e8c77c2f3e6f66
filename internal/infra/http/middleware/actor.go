package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/liguemed/membership-core/internal/usecase"
)

type actorKey struct{}

// Actor extracts the authenticated caller set by the upstream session
// layer. The core trusts these headers; tenant scoping is still
// re-checked on every query.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := usecase.Actor{
			ID:       r.Header.Get("X-Actor-ID"),
			Role:     r.Header.Get("X-Actor-Role"),
			TenantID: r.Header.Get("X-Tenant-ID"),
		}
		if actor.ID == "" || actor.TenantID == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing actor identity"})
			return
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ActorFromContext(ctx context.Context) (usecase.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(usecase.Actor)
	return actor, ok
}
