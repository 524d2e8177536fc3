// Package ocr extracts text from images using Tesseract.
package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine wraps Tesseract for question photo recognition
type Engine struct {
	langs []string
}

// NewEngine creates an OCR engine for the given "+"-separated languages,
// e.g. "eng+hin"
func NewEngine(langs string) *Engine {
	return &Engine{langs: strings.Split(langs, "+")}
}

// ExtractText runs OCR on raw image bytes
func (e *Engine) ExtractText(imageData []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.langs...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return CleanText(text), nil
}

// CleanText strips OCR noise: empty lines and stray single characters
func CleanText(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 2 {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// HasReadableText reports whether the OCR result is worth sending to the AI
func HasReadableText(text string) bool {
	letters := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r >= 0x0900 && r <= 0x097F {
			letters++
		}
	}
	return letters >= 10
}
