package quiz

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// chunkSize is the target chunk length in characters for AI prompts
const chunkSize = 3000

var (
	pageNumberRe = regexp.MustCompile(`(?m)^\s*\d+\s*$`)
	multiSpaceRe = regexp.MustCompile(`[ \t]+`)
	multiBlankRe = regexp.MustCompile(`\n{3,}`)
)

// ligatures that PDF extractors commonly emit as single glyphs
var ligatureReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
)

// ExtractText pulls the plain text out of a PDF file
func ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages rather than failing the whole document
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	cleaned := CleanText(sb.String())
	if cleaned == "" {
		return "", fmt.Errorf("pdf %s contains no extractable text", path)
	}
	return cleaned, nil
}

// CleanText normalizes extracted PDF text: ligatures, stray page numbers,
// and runs of whitespace
func CleanText(text string) string {
	text = ligatureReplacer.Replace(text)
	text = pageNumberRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = multiBlankRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ChunkText splits text into pieces of roughly chunkSize characters,
// breaking on sentence boundaries where possible
func ChunkText(text string) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(sentence) > chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
		current.WriteString(" ")
	}
	if strings.TrimSpace(current.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

func splitSentences(text string) []string {
	marked := sentenceEndRe.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, strings.TrimSpace(p))
		}
	}
	return sentences
}
