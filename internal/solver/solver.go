// Package solver answers doubt photos: OCR the image, ask the AI for a
// solution, and render the solution onto a copy of the image.
package solver

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goitalic"

	"studybot/internal/ocr"
)

// AI is the subset of the AI client the solver needs
type AI interface {
	SolveDoubt(ctx context.Context, ocrText string) (string, error)
	DescribeImage(ctx context.Context, imageData []byte) (string, error)
}

// Solution is the result of solving a doubt image
type Solution struct {
	Question string // OCR text, or empty when vision fallback was used
	Answer   string
	Overlay  []byte // annotated PNG, nil when rendering failed
}

// Solver turns a photographed question into an explained answer
type Solver struct {
	ocr    *ocr.Engine
	ai     AI
	logger *zap.Logger
}

// NewSolver creates a doubt solver
func NewSolver(ocrEngine *ocr.Engine, ai AI, logger *zap.Logger) *Solver {
	return &Solver{ocr: ocrEngine, ai: ai, logger: logger}
}

// Solve extracts the question from the image and produces an answer. When
// OCR finds nothing readable, the image goes to the vision model instead.
func (s *Solver) Solve(ctx context.Context, imageData []byte) (*Solution, error) {
	text, err := s.ocr.ExtractText(imageData)
	if err != nil {
		s.logger.Warn("OCR failed, falling back to vision", zap.Error(err))
		text = ""
	}

	var answer string
	if ocr.HasReadableText(text) {
		answer, err = s.ai.SolveDoubt(ctx, text)
	} else {
		text = ""
		answer, err = s.ai.DescribeImage(ctx, imageData)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to solve doubt: %w", err)
	}

	solution := &Solution{Question: text, Answer: answer}
	overlay, err := RenderOverlay(imageData, answer)
	if err != nil {
		s.logger.Warn("Failed to render solution overlay", zap.Error(err))
	} else {
		solution.Overlay = overlay
	}
	return solution, nil
}

// overlay layout constants
const (
	overlayPadding  = 20
	overlayFontSize = 22
	overlayMaxLines = 12
)

// overlayFace is the italic face the answer panel is drawn with, sized to
// the layout constants. Italic is the closest bundled approximation of the
// handwritten answers students expect.
var overlayFace font.Face

func init() {
	f, err := truetype.Parse(goitalic.TTF)
	if err != nil {
		// gg falls back to its built-in bitmap face
		return
	}
	overlayFace = truetype.NewFace(f, &truetype.Options{Size: overlayFontSize})
}

// RenderOverlay draws the answer in a panel below the original image and
// returns the combined image as PNG
func RenderOverlay(imageData []byte, answer string) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode doubt image: %w", err)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	if width < 400 {
		width = 400
	}

	lines := wrapText(answer, width-2*overlayPadding, overlayFontSize)
	if len(lines) > overlayMaxLines {
		lines = append(lines[:overlayMaxLines-1], "...")
	}
	panelHeight := 2*overlayPadding + len(lines)*int(overlayFontSize*1.5)

	dc := gg.NewContext(width, bounds.Dy()+panelHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.DrawImage(src, (width-bounds.Dx())/2, 0)

	dc.SetRGB(0.1, 0.3, 0.1)
	if overlayFace != nil {
		dc.SetFontFace(overlayFace)
	}
	y := float64(bounds.Dy() + overlayPadding)
	for _, line := range lines {
		y += overlayFontSize * 1.5
		dc.DrawString(line, overlayPadding, y)
	}

	var out bytes.Buffer
	if err := dc.EncodePNG(&out); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}
	return out.Bytes(), nil
}

// wrapText breaks text into lines that fit the panel width, estimating
// glyph width from the font size
func wrapText(text string, maxWidth int, fontSize float64) []string {
	maxChars := int(float64(maxWidth) / (fontSize * 0.55))
	if maxChars < 10 {
		maxChars = 10
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}
		line := words[0]
		for _, word := range words[1:] {
			if len(line)+1+len(word) > maxChars {
				lines = append(lines, line)
				line = word
				continue
			}
			line += " " + word
		}
		lines = append(lines, line)
	}
	return lines
}
