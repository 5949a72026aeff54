package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/farm-telemetry/internal/application/membership"
	"github.com/farm-telemetry/internal/domain"
	"github.com/farm-telemetry/internal/infrastructure/signalr"
	"github.com/farm-telemetry/internal/transport/http/middleware"
)

const maxJoinBody = 16 << 10

// MembershipHandler serves the join-group endpoint.
type MembershipHandler struct {
	svc membership.Service
}

func NewMembershipHandler(svc membership.Service) *MembershipHandler {
	return &MembershipHandler{svc: svc}
}

// JoinGroup reads userId, connectionId and farmId from the query string,
// filling any missing field from the JSON body. A body that is not JSON is
// ignored.
func (h *MembershipHandler) JoinGroup(w http.ResponseWriter, r *http.Request) {
	req := membershipFromRequest(r)
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		slog.Info("join group requested", "caller", claims.NameID, "group_id", req.GroupID)
	}

	res, err := h.svc.AddToGroup(r.Context(), req)
	if err != nil {
		var rej *signalr.RejectedError
		switch {
		case errors.Is(err, membership.ErrGroupRequired):
			writeError(w, http.StatusBadRequest, "Please pass farmId in the query string or in the request body")
		case errors.Is(err, membership.ErrIdentityRequired):
			writeError(w, http.StatusBadRequest, "Please pass userId or connectionId")
		case errors.As(err, &rej):
			writeError(w, rej.StatusCode, fmt.Sprintf("Error adding to group: %d - %s", rej.StatusCode, rej.Body))
		case errors.Is(err, domain.ErrMisconfigured):
			slog.Error("join group: server misconfigured", "error", err)
			writeError(w, http.StatusInternalServerError, "Server configuration error.")
		default:
			httpError(w, err)
		}
		return
	}
	writeJSON(w, res.StatusCode, MessageEnvelope{
		Message: fmt.Sprintf("Added %s to group %s.", res.Identity, res.GroupName),
	})
}

func membershipFromRequest(r *http.Request) domain.GroupMembershipRequest {
	q := r.URL.Query()
	req := domain.GroupMembershipRequest{
		UserID:       strings.TrimSpace(q.Get("userId")),
		ConnectionID: strings.TrimSpace(q.Get("connectionId")),
		GroupID:      strings.TrimSpace(q.Get("farmId")),
	}
	if req.GroupID == "" {
		req.GroupID = strings.TrimSpace(q.Get("groupId"))
	}
	if req.GroupID != "" && (req.UserID != "" || req.ConnectionID != "") {
		return req
	}
	if r.Body == nil {
		return req
	}

	var body struct {
		UserID       string `json:"userId"`
		ConnectionID string `json:"connectionId"`
		FarmID       string `json:"farmId"`
		GroupID      string `json:"groupId"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJoinBody)).Decode(&body); err != nil {
		return req
	}
	if req.UserID == "" {
		req.UserID = strings.TrimSpace(body.UserID)
	}
	if req.ConnectionID == "" {
		req.ConnectionID = strings.TrimSpace(body.ConnectionID)
	}
	if req.GroupID == "" {
		req.GroupID = strings.TrimSpace(body.FarmID)
	}
	if req.GroupID == "" {
		req.GroupID = strings.TrimSpace(body.GroupID)
	}
	return req
}
