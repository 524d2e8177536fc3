package solver

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestRenderOverlay(t *testing.T) {
	src := testImage(t, 600, 400)

	out, err := RenderOverlay(src, "x = 3. Substitute back to verify: 3 + 2 = 5.")
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}

	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Overlay is not a decodable image: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 600 {
		t.Errorf("Expected width preserved, got %d", bounds.Dx())
	}
	if bounds.Dy() <= 400 {
		t.Errorf("Expected answer panel below image, height %d", bounds.Dy())
	}
}

func TestRenderOverlayWidensNarrowImages(t *testing.T) {
	src := testImage(t, 100, 100)

	out, err := RenderOverlay(src, "short answer")
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Overlay is not a decodable image: %v", err)
	}
	if decoded.Bounds().Dx() < 400 {
		t.Errorf("Expected minimum panel width, got %d", decoded.Bounds().Dx())
	}
}

func TestRenderOverlayRejectsGarbage(t *testing.T) {
	if _, err := RenderOverlay([]byte("not an image"), "answer"); err == nil {
		t.Error("Expected error for undecodable input")
	}
}

func TestOverlayFaceLoaded(t *testing.T) {
	if overlayFace == nil {
		t.Fatal("Expected the overlay font face to load")
	}
	if h := overlayFace.Metrics().Height.Ceil(); h < 20 {
		t.Errorf("Expected a face sized for the panel, got line height %d", h)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven eight nine ten", 200, 22)
	if len(lines) < 2 {
		t.Errorf("Expected wrapping into multiple lines, got %v", lines)
	}
	for _, line := range lines {
		if line == "" {
			t.Error("Expected no empty lines")
		}
	}

	lines = wrapText("first paragraph\nsecond paragraph", 10000, 22)
	if len(lines) != 2 {
		t.Errorf("Expected paragraphs preserved, got %v", lines)
	}
}
