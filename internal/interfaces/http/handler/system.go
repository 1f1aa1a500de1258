package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/khata/backend/internal/interfaces/http/dto"
)

// persistenceChecker reports whether the ledger snapshot store is
// currently able to save
type persistenceChecker interface {
	PersistenceHealth() error
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	db          *gorm.DB
	persistence persistenceChecker
	startTime   time.Time
}

// NewSystemHandler creates a new SystemHandler. Both dependencies may
// be nil; the corresponding health checks are then skipped.
func NewSystemHandler(db *gorm.DB, persistence persistenceChecker) *SystemHandler {
	return &SystemHandler{
		db:          db,
		persistence: persistence,
		startTime:   time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo returns basic build and uptime information
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Khata Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping is a liveness check
func (h *SystemHandler) Ping(c *gin.Context) {
	response := PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(response))
}

// HealthCheck represents one component check in the health response
type HealthCheck struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse represents the health endpoint response
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]HealthCheck `json:"checks"`
}

// Health reports readiness. The database being unreachable makes the
// service unhealthy (503). A failing snapshot store only degrades the
// status: the ledger keeps serving from memory while saves fail.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status: "ok",
		Checks: make(map[string]HealthCheck),
	}
	httpStatus := http.StatusOK

	if h.db != nil {
		check := HealthCheck{Status: "ok"}
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			check = HealthCheck{Status: "down", Error: err.Error()}
			resp.Status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}
		resp.Checks["database"] = check
	}

	if h.persistence != nil {
		check := HealthCheck{Status: "ok"}
		if err := h.persistence.PersistenceHealth(); err != nil {
			check = HealthCheck{Status: "failing", Error: err.Error()}
			if resp.Status == "ok" {
				resp.Status = "degraded"
			}
		}
		resp.Checks["ledger_snapshot"] = check
	}

	c.JSON(httpStatus, dto.NewSuccessResponse(resp))
}
