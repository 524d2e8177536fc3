package ocr

import (
	"testing"
)

func TestCleanText(t *testing.T) {
	raw := "The question is:\n\n|\nx + 2 = 5\n.\nFind x.\n"
	cleaned := CleanText(raw)

	want := "The question is:\nx + 2 = 5\nFind x."
	if cleaned != want {
		t.Errorf("CleanText = %q, want %q", cleaned, want)
	}
}

func TestHasReadableText(t *testing.T) {
	if HasReadableText("") {
		t.Error("Empty text should not be readable")
	}
	if HasReadableText("|. -- ~~") {
		t.Error("Pure noise should not be readable")
	}
	if !HasReadableText("Solve for x: 2x + 4 = 10") {
		t.Error("A real question should be readable")
	}
	if !HasReadableText("प्रश्न: दो संख्याओं का योग") {
		t.Error("Devanagari text should be readable")
	}
}

func TestNewEngineLanguages(t *testing.T) {
	e := NewEngine("eng+hin")
	if len(e.langs) != 2 || e.langs[0] != "eng" || e.langs[1] != "hin" {
		t.Errorf("Unexpected languages: %v", e.langs)
	}

	e = NewEngine("eng")
	if len(e.langs) != 1 {
		t.Errorf("Expected single language, got %v", e.langs)
	}
}
