package handler

import (
	"net/http"

	"github.com/farm-telemetry/internal/application/negotiate"
)

// userIDHeader is the header SignalR clients use to bind a connection to a user.
const userIDHeader = "X-Ms-Signalr-Userid"

type NegotiateHandler struct {
	svc negotiate.Service
}

func NewNegotiateHandler(svc negotiate.Service) *NegotiateHandler {
	return &NegotiateHandler{svc: svc}
}

func (h *NegotiateHandler) Negotiate(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = r.Header.Get(userIDHeader)
	}
	body, err := h.svc.Negotiate(userID)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
