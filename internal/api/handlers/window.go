package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/melody-api/internal/config"
	"github.com/Conceptual-Machines/melody-api/internal/window"
)

type WindowHandler struct {
	cfg *config.Config
}

func NewWindowHandler(cfg *config.Config) *WindowHandler {
	return &WindowHandler{cfg: cfg}
}

type WindowRequest struct {
	PrimerTotalTime  float64 `json:"primer_total_time"`
	StepsPerQuarter  int     `json:"steps_per_quarter"`
	QPM              float64 `json:"qpm"`
	TotalLengthSteps int     `json:"total_length_steps" binding:"required"`
	// Nil means the boundary epsilon is applied
	BoundaryEpsilon *bool `json:"boundary_epsilon"`
}

// Compute returns the primer and generation windows for the request
func (h *WindowHandler) Compute(c *gin.Context) {
	var req WindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.StepsPerQuarter == 0 {
		req.StepsPerQuarter = h.cfg.StepsPerQuarter
	}
	if req.QPM == 0 {
		req.QPM = h.cfg.DefaultQPM
	}
	epsilon := window.BoundaryEpsilon
	if req.BoundaryEpsilon != nil && !*req.BoundaryEpsilon {
		epsilon = 0
	}

	w, err := window.ComputeWithEpsilon(req.PrimerTotalTime, req.StepsPerQuarter, req.QPM, req.TotalLengthSteps, epsilon)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window":     w,
		"primer":     w.Primer(),
		"generation": w.Generation(),
	})
}
