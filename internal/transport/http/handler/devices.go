package handler

import (
	"net/http"
	"strings"

	"github.com/farm-telemetry/internal/application/devicestate"
	"github.com/go-chi/chi/v5"
)

// DeviceHandler serves device state reads.
type DeviceHandler struct {
	svc devicestate.Service
}

func NewDeviceHandler(svc devicestate.Service) *DeviceHandler { return &DeviceHandler{svc: svc} }

// Get serves GET /devices/{deviceId}. The group comes from ?farmId= when
// given, otherwise from the device registry.
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(chi.URLParam(r, "deviceId"))
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "Device ID is required")
		return
	}
	h.get(w, r, deviceID, strings.TrimSpace(r.URL.Query().Get("farmId")))
}

// GetInGroup serves GET /farms/{groupId}/devices/{deviceId}.
func (h *DeviceHandler) GetInGroup(w http.ResponseWriter, r *http.Request) {
	deviceID := strings.TrimSpace(chi.URLParam(r, "deviceId"))
	groupID := strings.TrimSpace(chi.URLParam(r, "groupId"))
	if deviceID == "" || groupID == "" {
		writeError(w, http.StatusBadRequest, "Device ID and farm ID are required")
		return
	}
	h.get(w, r, deviceID, groupID)
}

func (h *DeviceHandler) get(w http.ResponseWriter, r *http.Request, deviceID, groupID string) {
	state, err := h.svc.Get(r.Context(), deviceID, groupID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ListByGroup serves GET /farms/{groupId}/devices.
func (h *DeviceHandler) ListByGroup(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(chi.URLParam(r, "groupId"))
	if groupID == "" {
		writeError(w, http.StatusBadRequest, "Missing farm_id")
		return
	}
	states, err := h.svc.List(r.Context(), groupID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}
