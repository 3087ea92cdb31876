package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/bodycontrol/internal/backup"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, logger: logger}
}

func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.manager.List(r.Context(), backupListLimit)
	if err != nil {
		writeStorageError(w, h.logger, "failed to list backups", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.manager.Status(),
		"backups": backups,
	})
}

func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	record, err := h.manager.RunNow(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeStorageError(w, h.logger, "backup failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}
