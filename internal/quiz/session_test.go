package quiz

import (
	"testing"

	"studybot/internal/models"
)

func newTestSession() *Session {
	questions := []models.Question{
		{Text: "Q1", Options: []string{"a", "b", "c", "d"}, Answer: "A"},
		{Text: "Q2", Options: []string{"a", "b", "c", "d"}, Answer: "B"},
	}
	quiz := &models.Quiz{ID: "quiz-1", Title: "Test Quiz", TotalQuestions: len(questions)}
	return NewSession(-100, quiz, questions)
}

func TestSessionLobby(t *testing.T) {
	s := newTestSession()

	if s.State() != StateLobby {
		t.Errorf("Expected lobby state, got %q", s.State())
	}
	if err := s.Start(); err == nil {
		t.Error("Expected error starting with no players")
	}

	if err := s.Join(1, "Amit"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	// Joining twice is a no-op
	if err := s.Join(1, "Amit"); err != nil {
		t.Fatalf("Second join failed: %v", err)
	}
	if s.PlayerCount() != 1 {
		t.Errorf("Expected 1 player, got %d", s.PlayerCount())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if s.State() != StateRunning {
		t.Errorf("Expected running state, got %q", s.State())
	}

	// No late joins
	if err := s.Join(2, "Priya"); err == nil {
		t.Error("Expected error joining after start")
	}
}

func TestSessionAnswerFlow(t *testing.T) {
	s := newTestSession()
	s.Join(1, "Amit")
	s.Join(2, "Priya")
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	q, idx, ok := s.Current()
	if !ok || idx != 0 || q.Text != "Q1" {
		t.Fatalf("Expected first question, got %v %d %v", q.Text, idx, ok)
	}

	correct, err := s.Answer(1, 0, "A")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if !correct {
		t.Error("Expected A to be correct for Q1")
	}

	// Double answer rejected
	if _, err := s.Answer(1, 0, "B"); err == nil {
		t.Error("Expected error for second answer to same question")
	}

	// Lowercase letters accepted
	correct, err = s.Answer(2, 0, "b")
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if correct {
		t.Error("Expected b to be wrong for Q1")
	}

	// Non-participant rejected
	if _, err := s.Answer(99, 0, "A"); err == nil {
		t.Error("Expected error for non-participant")
	}

	if !s.Advance() {
		t.Fatal("Expected a second question")
	}

	// Stale question index rejected
	if _, err := s.Answer(1, 0, "A"); err == nil {
		t.Error("Expected error answering finished question")
	}

	if _, err := s.Answer(1, 1, "B"); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if s.Advance() {
		t.Error("Expected quiz to be over")
	}
	if s.State() != StateFinished {
		t.Errorf("Expected finished state, got %q", s.State())
	}
}

func TestSessionResultsOrdering(t *testing.T) {
	s := newTestSession()
	s.Join(1, "Amit")
	s.Join(2, "Priya")
	s.Join(3, "Rahul")
	s.Start()

	// Q1: Priya and Rahul correct, Amit wrong
	s.Answer(1, 0, "D")
	s.Answer(2, 0, "A")
	s.Answer(3, 0, "A")
	s.Advance()

	// Q2: only Priya correct
	s.Answer(1, 1, "A")
	s.Answer(2, 1, "B")
	s.Answer(3, 1, "C")
	s.Advance()

	results := s.Results()
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].FirstName != "Priya" || results[0].Score != 2 {
		t.Errorf("Expected Priya first with 2 points, got %+v", results[0])
	}
	if results[1].FirstName != "Rahul" || results[1].Score != 1 {
		t.Errorf("Expected Rahul second with 1 point, got %+v", results[1])
	}
	if results[2].FirstName != "Amit" || results[2].Score != 0 {
		t.Errorf("Expected Amit last with 0 points, got %+v", results[2])
	}
	if results[0].Percentage != 100 {
		t.Errorf("Expected 100%%, got %v", results[0].Percentage)
	}
	if results[0].GroupID != -100 || results[0].QuizTitle != "Test Quiz" {
		t.Errorf("Unexpected result metadata: %+v", results[0])
	}
}

func TestMedal(t *testing.T) {
	if Medal(0) != "🥇" || Medal(1) != "🥈" || Medal(2) != "🥉" {
		t.Error("Unexpected medals for top three")
	}
	if Medal(3) != "4." {
		t.Errorf("Expected '4.' for rank 3, got %q", Medal(3))
	}
}
