package render

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/evolve/rng"
	"github.com/pthm-cable/evolve/world"
)

func TestFrame(t *testing.T) {
	w, err := world.New(4, rng.NewStream(1))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.AddWall(world.Rect{X: 3, Y: 3, W: 1, H: 1}); err != nil {
		t.Fatal(err)
	}
	a := world.NewAgent(nil, rng.NewStream(2), 0)
	if err := w.AddAgentAt(a, 2, 0); err != nil {
		t.Fatal(err)
	}

	r := New(t.TempDir(), 3, world.Rect{X: 0, Y: 0, W: 1, H: 4})
	img := r.Frame(w)
	if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 12 {
		t.Fatalf("bounds = %v, want 12x12", b)
	}

	// (x, y) on the board maps to the block at (x*3, (3-y)*3)
	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"empty", 1, 1, background},
		{"zone", 0, 2, zoneTint},
		{"wall", 3, 3, wallColor},
		{"agent", 2, 0, FingerprintColor(a.Fingerprint())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, d := range [][2]int{{0, 0}, {2, 2}} {
				px, py := tt.x*3+d[0], (3-tt.y)*3+d[1]
				got := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
				if got != tt.want {
					t.Errorf("pixel (%d,%d) = %v, want %v", px, py, got, tt.want)
				}
			}
		})
	}
}

func TestExport(t *testing.T) {
	w, err := world.New(5, rng.NewStream(1))
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	r := New(dir, 2, world.Rect{})

	path, err := r.Export(w, 7, 42)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if want := filepath.Join(dir, "gen-7", "frame-42.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("size = %dx%d, want 10x10", cfg.Width, cfg.Height)
	}
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want 1", r.Frames())
	}
}

func TestFingerprintColorStable(t *testing.T) {
	if FingerprintColor(0x301) != FingerprintColor(0x301) {
		t.Error("color not stable")
	}
	if FingerprintColor(0x301) == FingerprintColor(0x302) {
		t.Error("neighboring fingerprints share a color")
	}
}
