package quiz

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"studybot/internal/models"
)

// Session states
const (
	StateLobby    = "lobby"
	StateRunning  = "running"
	StateFinished = "finished"
)

// Participant tracks one player's progress in a group session
type Participant struct {
	UserID    int64
	FirstName string
	Score     int
	Answered  map[int]bool // question index -> answered
}

// Session is a synchronized group quiz. All methods are safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	GroupID   int64
	Quiz      *models.Quiz
	Questions []models.Question

	state        string
	current      int
	participants map[int64]*Participant
	startedAt    time.Time
}

// NewSession creates a session in the lobby state, waiting for players
func NewSession(groupID int64, quiz *models.Quiz, questions []models.Question) *Session {
	return &Session{
		GroupID:      groupID,
		Quiz:         quiz,
		Questions:    questions,
		state:        StateLobby,
		current:      -1,
		participants: make(map[int64]*Participant),
	}
}

// Join adds a player during the lobby phase. Joining twice is a no-op.
func (s *Session) Join(userID int64, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return fmt.Errorf("quiz has already started")
	}
	if _, ok := s.participants[userID]; ok {
		return nil
	}
	s.participants[userID] = &Participant{
		UserID:    userID,
		FirstName: firstName,
		Answered:  make(map[int]bool),
	}
	return nil
}

// Start moves the session out of the lobby. It fails with no players.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLobby {
		return fmt.Errorf("quiz is not in the lobby")
	}
	if len(s.participants) == 0 {
		return fmt.Errorf("nobody joined the quiz")
	}
	s.state = StateRunning
	s.current = 0
	s.startedAt = time.Now()
	return nil
}

// Current returns the question being asked, or false when none is active
func (s *Session) Current() (models.Question, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || s.current < 0 || s.current >= len(s.Questions) {
		return models.Question{}, 0, false
	}
	return s.Questions[s.current], s.current, true
}

// Answer records a player's answer to the given question. A second answer
// to the same question is rejected, as is an answer to a stale question.
func (s *Session) Answer(userID int64, questionIdx int, letter string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return false, fmt.Errorf("quiz is not running")
	}
	if questionIdx != s.current {
		return false, fmt.Errorf("that question is over")
	}
	p, ok := s.participants[userID]
	if !ok {
		return false, fmt.Errorf("you did not join this quiz")
	}
	if p.Answered[questionIdx] {
		return false, fmt.Errorf("you already answered this question")
	}
	p.Answered[questionIdx] = true

	correct := strings.EqualFold(strings.TrimSpace(letter), s.Questions[questionIdx].Answer)
	if correct {
		p.Score++
	}
	return correct, nil
}

// Advance moves to the next question. It returns false when the quiz is
// over, flipping the session into the finished state.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return false
	}
	s.current++
	if s.current >= len(s.Questions) {
		s.state = StateFinished
		return false
	}
	return true
}

// State returns the session state
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PlayerCount returns the number of joined players
func (s *Session) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

// Results returns the final standings, best first: percentage, then raw
// score, then name for a stable order
func (s *Session) Results() []models.GroupQuizResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.Questions)
	results := make([]models.GroupQuizResult, 0, len(s.participants))
	for _, p := range s.participants {
		pct := 0.0
		if total > 0 {
			pct = float64(p.Score) / float64(total) * 100
		}
		results = append(results, models.GroupQuizResult{
			GroupID:        s.GroupID,
			QuizTitle:      s.Quiz.Title,
			UserID:         p.UserID,
			FirstName:      p.FirstName,
			Score:          p.Score,
			TotalQuestions: total,
			Percentage:     pct,
			CreatedAt:      time.Now(),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Percentage != results[j].Percentage {
			return results[i].Percentage > results[j].Percentage
		}
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].FirstName < results[j].FirstName
	})
	return results
}

// Medal returns the emoji for a leaderboard rank (0-based)
func Medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank+1)
	}
}
