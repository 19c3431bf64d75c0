package artifacts

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"

	"github.com/a-h/templ"

	"github.com/Conceptual-Machines/melody-api/internal/models"
)

const (
	pixelsPerSecond = 120.0
	rowHeight       = 8.0
	plotPadding     = 2
)

// PlotRenderer renders sequences as a standalone HTML piano roll
type PlotRenderer struct {
	// Open shows the written file in the system viewer
	Open bool

	opener func(path string) error
}

// NewPlotRenderer creates a renderer. With open set the plot is opened after
// it is written; otherwise it is only saved.
func NewPlotRenderer(open bool) *PlotRenderer {
	return &PlotRenderer{Open: open, opener: openInViewer}
}

// Render writes the plot of seq to path
func (r *PlotRenderer) Render(ctx context.Context, seq *models.NoteSequence, path, title string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close plot file: %w", cerr)
		}
	}()

	if err := PianoRoll(title, seq).Render(ctx, f); err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	if r.Open && r.opener != nil {
		if err := r.opener(path); err != nil {
			return fmt.Errorf("open plot: %w", err)
		}
	}
	return nil
}

type rollNote struct {
	X, Y, W float64
	Label   string
}

type rollView struct {
	Width, Height float64
	Notes         []rollNote
	LowPitch      int
	HighPitch     int
	TotalTime     float64
}

func newRollView(seq *models.NoteSequence) rollView {
	v := rollView{LowPitch: 60, HighPitch: 72}
	if seq == nil {
		seq = &models.NoteSequence{}
	}
	if len(seq.Notes) > 0 {
		v.LowPitch, v.HighPitch = 127, 0
		for _, n := range seq.Notes {
			v.LowPitch = min(v.LowPitch, n.Pitch)
			v.HighPitch = max(v.HighPitch, n.Pitch)
		}
	}
	v.LowPitch = max(v.LowPitch-plotPadding, 0)
	v.HighPitch = min(v.HighPitch+plotPadding, 127)
	v.TotalTime = seq.TotalTime
	v.Width = max(seq.TotalTime*pixelsPerSecond, 1)
	v.Height = float64(v.HighPitch-v.LowPitch+1) * rowHeight

	for _, n := range seq.Notes {
		v.Notes = append(v.Notes, rollNote{
			X:     n.StartTime * pixelsPerSecond,
			Y:     float64(v.HighPitch-n.Pitch) * rowHeight,
			W:     max((n.EndTime-n.StartTime)*pixelsPerSecond, 1),
			Label: fmt.Sprintf("pitch %d, velocity %d, %.3fs-%.3fs", n.Pitch, n.Velocity, n.StartTime, n.EndTime),
		})
	}
	return v
}

// PianoRoll is the HTML document for one sequence
func PianoRoll(title string, seq *models.NoteSequence) templ.Component {
	v := newRollView(seq)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%[1]s</title>
<style>
body { font-family: sans-serif; margin: 24px; background: #fafafa; }
svg { background: #fff; border: 1px solid #ddd; }
rect.note { fill: #3b6fd8; stroke: #1d3f86; }
</style>
</head>
<body>
<h1>%[1]s</h1>
<p>%[2]d notes, %.2[3]f seconds, pitch %[4]d-%[5]d</p>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0[6]f" height="%.0[7]f">
`, templ.EscapeString(title), len(v.Notes), v.TotalTime, v.LowPitch, v.HighPitch, v.Width, v.Height); err != nil {
			return err
		}

		for _, n := range v.Notes {
			if _, err := fmt.Fprintf(w,
				`<rect class="note" x="%.2f" y="%.2f" width="%.2f" height="%.2f"><title>%s</title></rect>`+"\n",
				n.X, n.Y, n.W, rowHeight, templ.EscapeString(n.Label)); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</svg>\n</body>\n</html>\n")
		return err
	})
}

func openInViewer(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	log.Printf("🖼️  Opened %s", path)
	return nil
}
