package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/irfndi/cpi-insights/internal/ingest"
)

var startTime = time.Now()

// HealthChecker is implemented by dependencies that can report their own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db     HealthChecker
	source ingest.RecordSource
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
}

// NewHealthHandler creates a health handler. db may be nil when records do
// not come from PostgreSQL.
func NewHealthHandler(db HealthChecker, source ingest.RecordSource) *HealthHandler {
	return &HealthHandler{
		db:     db,
		source: source,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string)

	if h.db != nil {
		if err := h.db.HealthCheck(ctx); err != nil {
			services["database"] = "unhealthy: " + err.Error()
		} else {
			services["database"] = "healthy"
		}
	}

	if h.source == nil {
		services["records"] = "unhealthy: not configured"
	} else if records, err := h.source.Records(ctx); err != nil {
		services["records"] = "unhealthy: " + err.Error()
	} else if len(records) == 0 {
		services["records"] = "unhealthy: no price records loaded"
	} else {
		services["records"] = "healthy"
	}

	overallStatus := "healthy"
	for _, status := range services {
		if status != "healthy" {
			overallStatus = "unhealthy"
			break
		}
	}

	response := HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Services:  services,
		Version:   os.Getenv("APP_VERSION"),
		Uptime:    time.Since(startTime).String(),
	}

	if overallStatus == "healthy" {
		c.JSON(http.StatusOK, response)
		return
	}
	c.JSON(http.StatusServiceUnavailable, response)
}
