package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ArtifactsHandler serves generated MIDI files and plots
type ArtifactsHandler struct {
	outputDir string
}

func NewArtifactsHandler(outputDir string) *ArtifactsHandler {
	return &ArtifactsHandler{outputDir: outputDir}
}

// Get serves a file from the output directory. Only plain file names are
// accepted.
func (h *ArtifactsHandler) Get(c *gin.Context) {
	name := c.Param("name")
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid artifact name"})
		return
	}

	path := filepath.Join(h.outputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artifact not found"})
		return
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".mid", ".midi":
		c.Header("Content-Type", "audio/midi")
		c.FileAttachment(path, name)
	default:
		c.File(path)
	}
}
