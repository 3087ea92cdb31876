package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/bodycontrol/internal/model"
	"github.com/dukerupert/bodycontrol/internal/store"
	"github.com/dukerupert/bodycontrol/internal/websocket"
)

const memberDeleted = "success"

type MemberHandler struct {
	store  *store.MemberStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, hub *websocket.Hub, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, hub: hub, logger: logger}
}

func (h *MemberHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

// memberRequest has no id field: ids are always assigned by the server.
type memberRequest struct {
	Name         *string `json:"name"`
	Nickname     *string `json:"nickname"`
	Sex          *int64  `json:"sex"`
	Relationship *int64  `json:"relationship"`
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeObject(r.Body, &req); err != nil {
		writeRequestShapeError(w, "invalid JSON: "+err.Error())
		return
	}

	member, err := h.store.Create(r.Context(), model.Member{
		Name:         req.Name,
		Nickname:     req.Nickname,
		Sex:          req.Sex,
		Relationship: req.Relationship,
	})
	if err != nil {
		writeStorageError(w, h.logger, "failed to create member", err)
		return
	}

	h.logger.Debug("member created", "id", member.ID)
	h.broadcast(websocket.MemberChanged(websocket.ActionCreated, member.ID))

	writeJSON(w, http.StatusCreated, member)
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List(r.Context())
	if err != nil {
		writeStorageError(w, h.logger, "failed to list members", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// Delete answers the same way whether or not the id existed.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeStorageError(w, h.logger, "failed to delete member", err)
		return
	}

	h.broadcast(websocket.MemberChanged(websocket.ActionDeleted, id))

	writeText(w, http.StatusOK, memberDeleted)
}
