package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fablehouse/reader-server/internal/middleware"
	"github.com/fablehouse/reader-server/internal/model"
	"github.com/fablehouse/reader-server/internal/service"
)

// ParentHandler exposes the pairing-code and device-registry operations the
// parent portal consumes. Authentication happens upstream; requests arrive
// with the parent id already attached by middleware.RequireParent.
type ParentHandler struct {
	pairingService *service.PairingService
	deviceService  *service.DeviceService
}

func NewParentHandler(
	pairingService *service.PairingService,
	deviceService *service.DeviceService,
) *ParentHandler {
	return &ParentHandler{
		pairingService: pairingService,
		deviceService:  deviceService,
	}
}

func (h *ParentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/pairing-codes", h.IssuePairingCode)
	r.Get("/pairing-codes", h.ListPendingCodes)
	r.Delete("/pairing-codes/{code}", h.RevokePairingCode)

	r.Get("/devices", h.ListDevices)
	r.Post("/devices/{deviceID}/assign-child", h.AssignDeviceToChild)
	r.Patch("/devices/{deviceID}", h.RenameDevice)
	r.Post("/devices/{deviceID}/unpair", h.UnpairDevice)

	return r
}

func (h *ParentHandler) IssuePairingCode(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())

	var req struct {
		ChildProfileID   string `json:"childProfileId"`
		ExpiresInMinutes int    `json:"expiresInMinutes"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	summary, err := h.pairingService.Issue(r.Context(), parentID, req.ChildProfileID, req.ExpiresInMinutes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (h *ParentHandler) ListPendingCodes(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())

	codes, err := h.pairingService.ListPending(r.Context(), parentID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(codes))
	for _, pc := range codes {
		out = append(out, formatPendingCode(pc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"pairingCodes": out})
}

func (h *ParentHandler) RevokePairingCode(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())
	code := chi.URLParam(r, "code")

	if err := h.pairingService.Revoke(r.Context(), parentID, code); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

func (h *ParentHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())

	devices, err := h.deviceService.ListForParent(r.Context(), parentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.DeviceSummary{"devices": devices})
}

func (h *ParentHandler) AssignDeviceToChild(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())
	deviceID := chi.URLParam(r, "deviceID")

	var req struct {
		ChildProfileID string `json:"childProfileId"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	summary, err := h.deviceService.AssignToChild(r.Context(), parentID, deviceID, req.ChildProfileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *ParentHandler) RenameDevice(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())
	deviceID := chi.URLParam(r, "deviceID")

	var req struct {
		DeviceName string `json:"deviceName"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	summary, err := h.deviceService.Rename(r.Context(), parentID, deviceID, req.DeviceName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *ParentHandler) UnpairDevice(w http.ResponseWriter, r *http.Request) {
	parentID := middleware.GetParentID(r.Context())
	deviceID := chi.URLParam(r, "deviceID")

	if err := h.deviceService.Unpair(r.Context(), parentID, deviceID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"unpaired": true})
}
