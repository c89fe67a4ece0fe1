package images

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var wideSVG = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50"/></svg>`)

func TestRasterizeSVG(t *testing.T) {
	tests := []struct {
		name        string
		w, h        int
		opaque      [2]int
		transparent [2]int
	}{
		{"square tile", 16, 16, [2]int{8, 8}, [2]int{8, 1}},
		{"tall tile", 10, 40, [2]int{5, 20}, [2]int{5, 2}},
		{"exact fit", 20, 10, [2]int{1, 1}, [2]int{-1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := RasterizeSVG(wideSVG, tt.w, tt.h)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Bounds().Dx() != tt.w || img.Bounds().Dy() != tt.h {
				t.Fatalf("unexpected bounds: %v", img.Bounds())
			}
			if _, _, _, a := img.At(tt.opaque[0], tt.opaque[1]).RGBA(); a == 0 {
				t.Errorf("pixel %v should be painted", tt.opaque)
			}
			if tt.transparent[0] >= 0 {
				if _, _, _, a := img.At(tt.transparent[0], tt.transparent[1]).RGBA(); a != 0 {
					t.Errorf("pixel %v should be transparent, alpha %d", tt.transparent, a)
				}
			}
		})
	}
}

func TestRasterizeSVG_Errors(t *testing.T) {
	if _, err := RasterizeSVG(wideSVG, 0, 16); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := RasterizeSVG(wideSVG, maxRasterDim+1, 16); err == nil {
		t.Error("expected error for huge tile")
	}
	if _, err := RasterizeSVG([]byte("definitely not svg"), 16, 16); err == nil {
		t.Error("expected error for broken svg")
	}
}

func TestRasterizeSVGFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wide.svg")
	dst := filepath.Join(dir, "wide.png")
	if err := os.WriteFile(src, wideSVG, 0644); err != nil {
		t.Fatal(err)
	}

	if err := RasterizeSVGFile(src, dst, 24, 24); err != nil {
		t.Fatalf("RasterizeSVGFile() error = %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("result is not png: %v", err)
	}
	if cfg.Width != 24 || cfg.Height != 24 {
		t.Errorf("tile size = %dx%d, want 24x24", cfg.Width, cfg.Height)
	}
}
