// Package render exports board frames as PNG images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/transform"

	"github.com/pthm-cable/evolve/world"
)

var (
	background = color.NRGBA{255, 255, 255, 255}
	zoneTint   = color.NRGBA{255, 228, 228, 255}
	wallColor  = color.NRGBA{128, 128, 128, 255}
)

// Renderer draws the grid one pixel per cell, then upscales.
type Renderer struct {
	dir   string
	scale int
	zone  world.Rect

	frames int
}

// New creates a renderer writing under dir. zone is tinted to mark the
// breeding area.
func New(dir string, scale int, zone world.Rect) *Renderer {
	if scale < 1 {
		scale = 1
	}
	return &Renderer{dir: dir, scale: scale, zone: zone}
}

// Frames returns the number of frames written.
func (r *Renderer) Frames() int { return r.frames }

// Frame rasterizes the current board state.
func (r *Renderer) Frame(w *world.World) image.Image {
	dim := w.Dimension()
	img := image.NewNRGBA(image.Rect(0, 0, dim, dim))

	for y := 0; y < dim; y++ {
		// image rows grow downward, the board's Y grows north
		py := dim - 1 - y
		for x := 0; x < dim; x++ {
			c := background
			switch {
			case w.IsWall(x, y):
				c = wallColor
			case r.zone.Contains(x, y):
				c = zoneTint
			}
			if a := w.AgentAt(x, y); a != nil {
				c = FingerprintColor(a.Fingerprint())
			}
			img.SetNRGBA(x, py, c)
		}
	}

	if r.scale == 1 {
		return img
	}
	return transform.Resize(img, dim*r.scale, dim*r.scale, transform.NearestNeighbor)
}

// Export writes gen-<generation>/frame-<step>.png.
func (r *Renderer) Export(w *world.World, generation, step int) (string, error) {
	dir := filepath.Join(r.dir, fmt.Sprintf("gen-%d", generation))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating frame directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%d.png", step))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating frame: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, r.Frame(w)); err != nil {
		return "", fmt.Errorf("encoding frame: %w", err)
	}
	r.frames++
	return path, nil
}

// FingerprintColor maps a genome fingerprint to a stable, dark-ish color so
// agents sharing a phenotype share a color.
func FingerprintColor(fp uint32) color.NRGBA {
	h := fp * 2654435761
	h ^= h >> 15
	return color.NRGBA{
		R: uint8(h) % 200,
		G: uint8(h>>8) % 200,
		B: uint8(h>>16) % 200,
		A: 255,
	}
}
