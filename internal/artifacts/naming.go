// Package artifacts writes generated sequences to MIDI files and HTML plots.
package artifacts

import (
	"fmt"
	"path/filepath"
	"time"
)

const timestampLayout = "2006-01-02_150405"

// Artifact extensions
const (
	ExtMIDI = "mid"
	ExtHTML = "html"
)

// Naming builds artifact file names of the form
// <generator-name>_<generator-id>_<YYYY-MM-DD_HHMMSS>.<ext>
type Naming struct {
	GeneratorName string
	GeneratorID   string
	OutputDir     string
	// Now defaults to time.Now
	Now func() time.Time

	stamp string
}

// Stamp fixes the timestamp so every artifact of one run shares it
func (n *Naming) Stamp() *Naming {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	n.stamp = now().Format(timestampLayout)
	return n
}

// Filename returns the artifact file name for ext
func (n *Naming) Filename(ext string) string {
	if n.stamp == "" {
		n.Stamp()
	}
	return fmt.Sprintf("%s_%s_%s.%s", n.GeneratorName, n.GeneratorID, n.stamp, ext)
}

// Path returns the artifact path inside OutputDir
func (n *Naming) Path(ext string) string {
	return filepath.Join(n.OutputDir, n.Filename(ext))
}
