package handler

import (
	"net/http"
	"time"

	"github.com/fablehouse/reader-server/internal/httputil"
	"github.com/fablehouse/reader-server/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func formatPendingCode(pc model.PairingCode) map[string]any {
	return map[string]any{
		"code":           pc.Code,
		"childProfileId": pc.ChildProfileID,
		"status":         pc.Status,
		"expiresAt":      pc.ExpiresAt.Format(time.RFC3339),
		"createdAt":      pc.CreatedAt.Format(time.RFC3339),
	}
}
