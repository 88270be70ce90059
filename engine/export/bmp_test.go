package export

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func TestWriteBMPRoundTrip(t *testing.T) {
	const width, height = 4, 3
	bgra := make([]byte, width*height*4)
	// Red in the top-left corner, blue in the bottom-right.
	bgra[2] = 0xFF
	bgra[3] = 0xFF
	last := (height*width - 1) * 4
	bgra[last] = 0xFF
	bgra[last+3] = 0xFF

	path := filepath.Join(t.TempDir(), "frame_0000.bmp")
	if err := WriteBMP(path, width, height, bgra); err != nil {
		t.Fatalf("WriteBMP: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		t.Fatalf("decoded %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}

	tests := []struct {
		name string
		x, y int
		want color.RGBA
	}{
		{"top-left red", 0, 0, color.RGBA{0xFF, 0, 0, 0xFF}},
		{"bottom-right blue", width - 1, height - 1, color.RGBA{0, 0, 0xFF, 0xFF}},
		{"interior black", 1, 1, color.RGBA{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, _ := img.At(tt.x, tt.y).RGBA()
			wr, wg, wb, _ := tt.want.RGBA()
			if r != wr || g != wg || b != wb {
				t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, img.At(tt.x, tt.y), tt.want)
			}
		})
	}
}

func TestWriteBMPShortBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bmp")
	if err := WriteBMP(path, 8, 8, make([]byte, 16)); err == nil {
		t.Fatal("WriteBMP accepted a short pixel buffer")
	}
	if _, err := os.Stat(path); err == nil {
		t.Error("short write still created a file")
	}
}
