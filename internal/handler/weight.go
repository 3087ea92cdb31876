package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bodycontrol/internal/store"
	"github.com/dukerupert/bodycontrol/internal/websocket"
)

const weightDeleted = "Deleted Success!"

type WeightHandler struct {
	store  *store.WeightStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewWeightHandler(s *store.WeightStore, hub *websocket.Hub, logger *slog.Logger) *WeightHandler {
	return &WeightHandler{store: s, hub: hub, logger: logger}
}

func (h *WeightHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type weightRequest struct {
	MemberID *string  `json:"member_id"`
	Value    *float64 `json:"value"`
}

func (h *WeightHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if err := decodeObject(r.Body, &req); err != nil {
		writeRequestShapeError(w, "invalid JSON: "+err.Error())
		return
	}

	if req.MemberID == nil || strings.TrimSpace(*req.MemberID) == "" {
		writeRequestShapeError(w, "member_id is required")
		return
	}
	if req.Value == nil {
		writeRequestShapeError(w, "value is required")
		return
	}

	weight, err := h.store.Create(r.Context(), strings.TrimSpace(*req.MemberID), *req.Value)
	if err != nil {
		writeStorageError(w, h.logger, "failed to create weight", err)
		return
	}

	h.broadcast(websocket.WeightChanged(websocket.ActionCreated, weight.ID, weight.MemberID))

	writeJSON(w, http.StatusCreated, weight)
}

func (h *WeightHandler) List(w http.ResponseWriter, r *http.Request) {
	memberID := strings.TrimSpace(r.URL.Query().Get("member_id"))
	if memberID == "" {
		writeRequestShapeError(w, "member_id query parameter is required")
		return
	}

	weights, err := h.store.ListByMember(r.Context(), memberID)
	if err != nil {
		writeStorageError(w, h.logger, "failed to list weights", err)
		return
	}
	writeJSON(w, http.StatusOK, weights)
}

// Delete answers the same way whether or not the id existed.
func (h *WeightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeStorageError(w, h.logger, "failed to delete weight", err)
		return
	}

	h.broadcast(websocket.WeightChanged(websocket.ActionDeleted, id, ""))

	writeText(w, http.StatusOK, weightDeleted)
}
