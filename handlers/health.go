package handlers

import "net/http"

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck returns a simple liveness handler. It carries no
// dependency checks; the gateway is healthy as long as it serves.
func HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","version":"` + Version + `"}`))
	}
}
