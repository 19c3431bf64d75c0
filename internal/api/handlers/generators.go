package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/generator"
)

type GeneratorsHandler struct {
	cfg      *config.Config
	registry *generator.Registry
}

func NewGeneratorsHandler(cfg *config.Config, registry *generator.Registry) *GeneratorsHandler {
	return &GeneratorsHandler{cfg: cfg, registry: registry}
}

// List returns the details of every registered generator
func (h *GeneratorsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"generators": h.registry.Details(c.Request.Context()),
		"default":    h.cfg.DefaultGenerator,
	})
}
