package intent

import (
	"math"
	"strings"
	"testing"

	"studybot/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDetectIntent(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		message string
		want    Intent
	}{
		{"send me physics notes", FileRequest},
		{"math notes chahiye", FileRequest},
		{"chemistry file do", FileRequest},
		{"quiz me on biology", QuizRequest},
		{"mcq on thermodynamics", QuizRequest},
		{"doubt in this question", DoubtSolving},
		{"solve this problem", DoubtSolving},
		{"explain photosynthesis", DoubtSolving},
		{"hi there", Greeting},
		{"namaste bhai", Greeting},
		{"good morning", Greeting},
		{"thanks a lot", Thanks},
		{"dhanyawad", Thanks},
		{"best wishes for exams", BestWishes},
		{"what is the capital of France", General},
		{"", General},
	}

	for _, tt := range tests {
		if got := c.DetectIntent(tt.message); got != tt.want {
			t.Errorf("DetectIntent(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestExtractSubject(t *testing.T) {
	c := NewClassifier()

	if got := c.ExtractSubject("I need help with algebra", nil); got != "math" {
		t.Errorf("Expected subject 'math', got %q", got)
	}
	if got := c.ExtractSubject("optics is confusing", nil); got != "physics" {
		t.Errorf("Expected subject 'physics', got %q", got)
	}
	if got := c.ExtractSubject("physical chemistry ka paper hai", nil); got != "chemistry" {
		t.Errorf("Expected subject 'chemistry', got %q", got)
	}
	if got := c.ExtractSubject("reading comprehension practice", nil); got != "english" {
		t.Errorf("Expected subject 'english', got %q", got)
	}
	if got := c.ExtractSubject("random text", nil); got != "general" {
		t.Errorf("Expected subject 'general', got %q", got)
	}
}

func TestExtractSubjectFromHistory(t *testing.T) {
	c := NewClassifier()

	history := []models.Conversation{
		{Message: "tell me about genetics"},
		{Message: "ok"},
	}
	if got := c.ExtractSubject("more please", history); got != "biology" {
		t.Errorf("Expected subject 'biology' from history, got %q", got)
	}

	// Only the last three turns should count
	history = []models.Conversation{
		{Message: "tell me about genetics"},
		{Message: "ok"},
		{Message: "hm"},
		{Message: "sure"},
	}
	if got := c.ExtractSubject("more please", history); got != "general" {
		t.Errorf("Expected subject 'general' for stale history, got %q", got)
	}
}

func TestAnalyzeConfidence(t *testing.T) {
	c := NewClassifier()

	// Base confidence only
	a := c.Analyze("xyz", nil)
	if !almostEqual(a.Confidence, 0.5) {
		t.Errorf("Expected confidence 0.5, got %v", a.Confidence)
	}

	// Intent + subject + length bonuses
	a = c.Analyze("send me physics notes please bhai", nil)
	if a.Intent != FileRequest {
		t.Errorf("Expected file_request, got %v", a.Intent)
	}
	if a.Subject != "physics" {
		t.Errorf("Expected subject physics, got %q", a.Subject)
	}
	if !almostEqual(a.Confidence, 1.0) {
		t.Errorf("Expected confidence 1.0, got %v", a.Confidence)
	}

	// Intent without subject, short message
	a = c.Analyze("notes chahiye", nil)
	if !almostEqual(a.Confidence, 0.7) {
		t.Errorf("Expected confidence 0.7, got %v", a.Confidence)
	}
}

func TestTemplateReply(t *testing.T) {
	reply := TemplateReply(Analysis{Intent: FileRequest, Subject: "physics"}, "Ravi")
	if !strings.Contains(reply, "Physics") {
		t.Errorf("Expected subject in reply, got %q", reply)
	}

	reply = TemplateReply(Analysis{Intent: Thanks, Subject: "general"}, "Ravi")
	if !strings.Contains(reply, "Ravi") {
		t.Errorf("Expected user name in thanks reply, got %q", reply)
	}
	if !strings.Contains(reply, "https://youtu.be/") {
		t.Errorf("Expected surprise link in thanks reply, got %q", reply)
	}

	reply = TemplateReply(Analysis{Intent: General, Subject: "general"}, "Ravi")
	if reply == "" {
		t.Error("Expected non-empty general reply")
	}
}

func TestBestWishesReply(t *testing.T) {
	reply := BestWishesReply()
	found := false
	for _, candidate := range bestWishesReplies {
		if reply == candidate {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Unexpected best wishes reply %q", reply)
	}
}
