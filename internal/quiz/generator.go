// Package quiz turns study material into multiple choice quizzes and keeps
// score for quiz sessions.
package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studybot/internal/models"
)

// QuestionSource produces MCQ JSON for a chunk of study text
type QuestionSource interface {
	GenerateQuestions(ctx context.Context, text string, count int, subject string) (string, error)
}

// Generator builds quizzes from PDFs and free-text topics
type Generator struct {
	ai           QuestionSource
	maxQuestions int
	logger       *zap.Logger
}

// NewGenerator creates a quiz generator capped at maxQuestions per quiz
func NewGenerator(ai QuestionSource, maxQuestions int, logger *zap.Logger) *Generator {
	return &Generator{
		ai:           ai,
		maxQuestions: maxQuestions,
		logger:       logger,
	}
}

// FromPDF extracts text from a PDF and generates a quiz over it
func (g *Generator) FromPDF(ctx context.Context, userID int64, pdfPath, title, subject string) (*models.Quiz, []models.Question, error) {
	text, err := ExtractText(pdfPath)
	if err != nil {
		return nil, nil, err
	}
	return g.FromText(ctx, userID, text, title, subject, pdfPath)
}

// FromText generates a quiz over study text, chunking it and spreading the
// question budget across chunks
func (g *Generator) FromText(ctx context.Context, userID int64, text, title, subject, sourceFile string) (*models.Quiz, []models.Question, error) {
	chunks := ChunkText(text)

	perChunk := g.maxQuestions / len(chunks)
	if perChunk < 1 {
		perChunk = 1
	}

	var questions []models.Question
	for _, chunk := range chunks {
		if len(questions) >= g.maxQuestions {
			break
		}
		want := perChunk
		if remaining := g.maxQuestions - len(questions); want > remaining {
			want = remaining
		}

		raw, err := g.ai.GenerateQuestions(ctx, chunk, want, subject)
		if err != nil {
			g.logger.Warn("Question generation failed for chunk", zap.Error(err))
			continue
		}
		parsed, err := ParseQuestions(raw)
		if err != nil {
			g.logger.Warn("Failed to parse generated questions", zap.Error(err))
			continue
		}
		questions = append(questions, parsed...)
	}

	if len(questions) == 0 {
		return nil, nil, fmt.Errorf("no valid questions could be generated")
	}
	if len(questions) > g.maxQuestions {
		questions = questions[:g.maxQuestions]
	}
	ShuffleOptions(questions)

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode questions: %w", err)
	}

	q := &models.Quiz{
		ID:             uuid.New().String(),
		UserID:         userID,
		Title:          title,
		Questions:      string(questionsJSON),
		TotalQuestions: len(questions),
		SourceFile:     sourceFile,
		Subject:        subject,
		Difficulty:     dominantDifficulty(questions),
		CreatedAt:      time.Now(),
	}
	return q, questions, nil
}

// ParseQuestions decodes the model output into validated questions. Models
// often wrap JSON in prose or code fences, so the array is located first.
func ParseQuestions(raw string) ([]models.Question, error) {
	jsonText := extractJSONArray(raw)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON array found in model output")
	}

	var questions []models.Question
	if err := json.Unmarshal([]byte(jsonText), &questions); err != nil {
		return nil, fmt.Errorf("failed to decode questions: %w", err)
	}

	valid := questions[:0]
	for _, q := range questions {
		if err := Validate(q); err != nil {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("model output contained no valid questions")
	}
	return valid, nil
}

// Validate checks a question has text, exactly four options, and an answer
// letter that points at one of them
func Validate(q models.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Options) != 4 {
		return fmt.Errorf("question has %d options, want 4", len(q.Options))
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("question has an empty option")
		}
	}
	answer := strings.ToUpper(strings.TrimSpace(q.Answer))
	if len(answer) != 1 || answer < "A" || answer > "D" {
		return fmt.Errorf("invalid answer %q, want A-D", q.Answer)
	}
	return nil
}

// ShuffleOptions shuffles each question's options in place and rewrites the
// answer letter to follow the correct option
func ShuffleOptions(questions []models.Question) {
	for i := range questions {
		q := &questions[i]
		correct := int(strings.ToUpper(strings.TrimSpace(q.Answer))[0] - 'A')
		if correct < 0 || correct >= len(q.Options) {
			continue
		}
		correctText := q.Options[correct]

		for j := len(q.Options) - 1; j > 0; j-- {
			k := rand.Intn(j + 1)
			q.Options[j], q.Options[k] = q.Options[k], q.Options[j]
		}

		for j, opt := range q.Options {
			if opt == correctText {
				q.Answer = string(rune('A' + j))
				break
			}
		}
	}
}

// DecodeQuestions unpacks the stored question JSON of a quiz
func DecodeQuestions(quiz *models.Quiz) ([]models.Question, error) {
	var questions []models.Question
	if err := json.Unmarshal([]byte(quiz.Questions), &questions); err != nil {
		return nil, fmt.Errorf("failed to decode quiz %s: %w", quiz.ID, err)
	}
	return questions, nil
}

// extractJSONArray finds the outermost JSON array in model output,
// tolerating markdown fences and surrounding prose
func extractJSONArray(raw string) string {
	text := strings.TrimSpace(raw)

	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func dominantDifficulty(questions []models.Question) string {
	counts := make(map[string]int)
	for _, q := range questions {
		if q.Difficulty != "" {
			counts[strings.ToLower(q.Difficulty)]++
		}
	}
	best, bestCount := "medium", 0
	for difficulty, count := range counts {
		if count > bestCount {
			best, bestCount = difficulty, count
		}
	}
	return best
}
