package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	// ParentIDHeader carries the authenticated parent id, set by the portal
	// gateway upstream of this service. Parent authentication itself is an
	// external collaborator.
	ParentIDHeader = "X-Parent-ID"

	ParentIDContextKey contextKey = "parentID"
)

// GetParentID returns the parent id attached by RequireParent, or "".
func GetParentID(ctx context.Context) string {
	if id, ok := ctx.Value(ParentIDContextKey).(string); ok {
		return id
	}
	return ""
}

// RequireParent rejects parent-API requests that arrive without the
// upstream-authenticated parent id.
func RequireParent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parentID := strings.TrimSpace(r.Header.Get(ParentIDHeader))
		if parentID == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Not authenticated",
			})
			return
		}

		ctx := context.WithValue(r.Context(), ParentIDContextKey, parentID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
