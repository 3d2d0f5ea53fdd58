package httpd

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MeDjb10/recruitment-platform-backend/internal/models"
)

// DependencyCheck probes one external dependency for the health report.
type DependencyCheck struct {
	Name  string
	Check func(ctx context.Context) bool
}

// HealthHandler reports healthy when every dependency answers, error
// when none do, and degraded in between.
func HealthHandler(service string, checks []DependencyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		deps := make(map[string]string, len(checks))
		up := 0
		for _, check := range checks {
			if check.Check(ctx) {
				deps[check.Name] = "up"
				up++
			} else {
				deps[check.Name] = "down"
			}
		}

		status := models.HealthHealthy
		code := http.StatusOK
		switch {
		case len(checks) > 0 && up == 0:
			status = models.HealthError
			code = http.StatusServiceUnavailable
		case up < len(checks):
			status = models.HealthDegraded
		}

		writeJSON(w, code, models.HealthStatus{
			Status:       status,
			Service:      service,
			Dependencies: deps,
			Timestamp:    time.Now().UTC(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
