package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Pinger checks connectivity to a backing store
type Pinger interface {
	Ping() error
}

// SessionCounter reports the number of live cart sessions
type SessionCounter interface {
	Len() int
}

// SystemHandler handles health and system information endpoints
type SystemHandler struct {
	BaseHandler
	db        Pinger
	sessions  SessionCounter
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, sessions SessionCounter, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		sessions:  sessions,
		version:   version,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Storefront Cart API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports database connectivity and the number of live cart sessions
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.HealthResponse
// @Failure      503 {object} dto.HealthResponse
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC(),
		Database: "connected",
		Sessions: h.sessions.Len(),
	}

	status := http.StatusOK
	if err := h.db.Ping(); err != nil {
		logger.L(c.Request.Context()).Warn("Health check database ping failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "Storefront Cart API",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info, middleware.GetRequestID(c)))
}
