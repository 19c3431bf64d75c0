package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/melody-api/internal/generator"
)

// HealthHandler reports database reachability and the registered generators
type HealthHandler struct {
	db       *gorm.DB
	registry *generator.Registry
}

func NewHealthHandler(db *gorm.DB, registry *generator.Registry) *HealthHandler {
	return &HealthHandler{db: db, registry: registry}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "ok"
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbStatus = "unreachable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"database":   dbStatus,
		"generators": h.registry.IDs(),
	})
}
