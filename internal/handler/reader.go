package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/fablehouse/reader-server/internal/errors"
	"github.com/fablehouse/reader-server/internal/middleware"
	"github.com/fablehouse/reader-server/internal/service"
)

// ReaderHandler exposes the device-facing pairing and quota endpoints.
type ReaderHandler struct {
	pairingService *service.PairingService
	readerService  *service.ReaderService
}

func NewReaderHandler(
	pairingService *service.PairingService,
	readerService *service.ReaderService,
) *ReaderHandler {
	return &ReaderHandler{
		pairingService: pairingService,
		readerService:  readerService,
	}
}

func (h *ReaderHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/pairing/claim", h.ClaimPairingCode)
	r.Get("/context", h.ReaderContext)
	r.Post("/usage", h.ConsumeUsage)

	return r
}

func (h *ReaderHandler) ClaimPairingCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code       string `json:"code"`
		DeviceID   string `json:"deviceId"`
		DeviceName string `json:"deviceName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	result, err := h.pairingService.Claim(r.Context(), req.Code, req.DeviceID, req.DeviceName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ReaderContext reports the pairing/quota snapshot for the requesting
// device. An unpaired device is a normal outcome, not an error.
func (h *ReaderHandler) ReaderContext(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceIDFromRequest(r)

	rc, err := h.readerService.Resolve(r.Context(), deviceID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rc == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"paired":   false,
			"deviceId": deviceID,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"paired":            true,
		"deviceId":          rc.DeviceID,
		"childProfileId":    rc.ChildProfileID,
		"childName":         rc.ChildName,
		"childAge":          rc.ChildAge,
		"dailyLimitMinutes": rc.DailyLimitMinutes,
		"usedMinutes":       rc.UsedMinutes,
		"remainingMinutes":  rc.RemainingMinutes,
		"isLocked":          rc.IsLocked,
	})
}

func (h *ReaderHandler) ConsumeUsage(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.DeviceIDFromRequest(r)
	if deviceID == "" {
		writeError(w, apperrors.MissingRequired("deviceId"))
		return
	}

	var req struct {
		Minutes float64 `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	result, err := h.readerService.Consume(r.Context(), deviceID, req.Minutes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
