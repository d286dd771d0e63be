package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

type HealthHandler struct {
	db *sql.DB
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// pingHandler is the liveness probe: the process is up and serving.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}

// healthCheckHandler is the readiness probe: verifies the database is
// reachable before reporting healthy.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	elapsed := time.Since(start)

	status := "healthy"
	statusCode := http.StatusOK
	dbCheck := map[string]any{
		"status":      "healthy",
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		dbCheck["status"] = "unhealthy"
		dbCheck["message"] = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"checked_at": time.Now(),
		"components": map[string]any{"postgres": dbCheck},
	})
}
