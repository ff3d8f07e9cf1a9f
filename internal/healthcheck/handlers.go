package healthcheck

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler serves /healthz: 200 while runs keep arriving within 2x pollInterval.
func HealthHandler(tracker *Tracker, pollInterval time.Duration) http.HandlerFunc {
	return snapshotHandler(tracker, func() bool {
		return tracker.Healthy(time.Now().UTC(), pollInterval)
	})
}

// ReadyHandler serves /readyz: 200 once the first run has completed.
func ReadyHandler(tracker *Tracker) http.HandlerFunc {
	return snapshotHandler(tracker, tracker.Ready)
}

func snapshotHandler(tracker *Tracker, ok func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := http.StatusServiceUnavailable
		snapshot := tracker.Snapshot()
		snapshot.Status = "unavailable"
		if ok() {
			code = http.StatusOK
			snapshot.Status = "ok"
		}
		writeJSON(w, code, snapshot)
	}
}

func writeJSON(w http.ResponseWriter, code int, payload Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
