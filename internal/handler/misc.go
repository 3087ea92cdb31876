package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/bodycontrol/internal/database"
)

const greeting = "Hello, world!"

func Greeting(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, greeting)
}

// Delay waits for the number of seconds in the path before answering. It
// gives up silently if the client disconnects first.
func Delay(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.ParseUint(r.PathValue("seconds"), 10, 32)
	if err != nil {
		Diagnostic(w, r, http.StatusUnprocessableEntity)
		return
	}

	timer := time.NewTimer(time.Duration(seconds) * time.Second)
	defer timer.Stop()

	select {
	case <-timer.C:
		writeText(w, http.StatusOK, fmt.Sprintf("Waited for %d seconds", seconds))
	case <-r.Context().Done():
	}
}

// Health reports the schema version from the migration ledger.
func Health(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		version, err := db.Version()
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "schema_version": version})
	}
}
