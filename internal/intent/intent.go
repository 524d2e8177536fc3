// Package intent classifies free-text user messages so the bot can route
// them to the file manager, the quiz generator, the doubt solver, or the
// general AI chat flow.
package intent

import (
	"regexp"
	"strings"

	"studybot/internal/models"
)

// Intent is the detected purpose of a user message
type Intent string

const (
	FileRequest  Intent = "file_request"
	QuizRequest  Intent = "quiz_request"
	DoubtSolving Intent = "doubt_solving"
	Greeting     Intent = "greeting"
	Thanks       Intent = "thanks"
	BestWishes   Intent = "best_wishes"
	General      Intent = "general"
)

// Analysis is the result of classifying a message
type Analysis struct {
	Intent     Intent
	Subject    string
	Confidence float64
}

var intentPatterns = map[Intent][]*regexp.Regexp{
	FileRequest: compileAll(
		`send me (.*)`,
		`(.*) notes chahiye`,
		`(.*) file do`,
		`share (.*)`,
		`(.*) notes bhejo`,
	),
	QuizRequest: compileAll(
		`quiz (.*)`,
		`test (.*)`,
		`questions (.*)`,
		`mcq (.*)`,
	),
	DoubtSolving: compileAll(
		`doubt (.*)`,
		`problem (.*)`,
		`help (.*)`,
		`solve (.*)`,
		`explain (.*)`,
	),
	Greeting: compileAll(
		`^(hi|hello|hey|namaste|namaskar)\b`,
		`good (morning|afternoon|evening)`,
		`kaise ho|how are you`,
	),
	Thanks: compileAll(
		`thanks|thank you|dhanyawad|shukriya`,
		`great|awesome|perfect|excellent`,
	),
	BestWishes: compileAll(
		`best wishes|good luck|all the best`,
		`wish you|wishing you`,
	),
}

// checked in a fixed order so specific intents win over chatty ones
var intentOrder = []Intent{FileRequest, QuizRequest, DoubtSolving, Greeting, Thanks, BestWishes}

var subjectKeywords = map[string][]string{
	"math":      {"math", "mathematics", "algebra", "geometry", "calculus", "trigonometry", "statistics"},
	"physics":   {"physics", "mechanics", "thermodynamics", "optics", "electricity", "magnetism"},
	"chemistry": {"chemistry", "organic", "inorganic", "physical chemistry", "biochemistry"},
	"biology":   {"biology", "botany", "zoology", "genetics", "ecology", "anatomy"},
	"computer":  {"computer", "programming", "coding", "software", "algorithm", "data structure"},
	"english":   {"english", "grammar", "literature", "essay", "writing", "reading"},
	"hindi":     {"hindi", "sahitya", "vyakaran", "kavita", "kahani"},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

// Classifier analyzes messages against recent conversation history
type Classifier struct{}

// NewClassifier creates a classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Analyze detects intent and subject for a message, falling back to the
// recent history for the subject when the message itself has none.
func (c *Classifier) Analyze(message string, history []models.Conversation) Analysis {
	intent := c.DetectIntent(message)
	subject := c.ExtractSubject(message, history)
	return Analysis{
		Intent:     intent,
		Subject:    subject,
		Confidence: confidence(intent, subject, message),
	}
}

// DetectIntent matches the message against the intent pattern table
func (c *Classifier) DetectIntent(message string) Intent {
	lower := strings.ToLower(message)

	for _, intent := range intentOrder {
		for _, pattern := range intentPatterns[intent] {
			if pattern.MatchString(lower) {
				return intent
			}
		}
	}

	// Keyword fallback when no pattern matched
	switch {
	case containsAny(lower, "file", "notes", "send", "share"):
		return FileRequest
	case containsAny(lower, "quiz", "test", "questions"):
		return QuizRequest
	case containsAny(lower, "doubt", "problem", "help", "solve"):
		return DoubtSolving
	case containsAny(lower, "thanks", "thank"):
		return Thanks
	case containsAny(lower, "best wishes", "good luck"):
		return BestWishes
	}
	return General
}

// ExtractSubject looks for subject keywords in the message, then in the
// last three turns of history
func (c *Classifier) ExtractSubject(message string, history []models.Conversation) string {
	if subject := subjectOf(strings.ToLower(message)); subject != "" {
		return subject
	}

	start := len(history) - 3
	if start < 0 {
		start = 0
	}
	for _, turn := range history[start:] {
		if subject := subjectOf(strings.ToLower(turn.Message)); subject != "" {
			return subject
		}
	}
	return "general"
}

func subjectOf(lower string) string {
	for subject, keywords := range subjectKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return subject
			}
		}
	}
	return ""
}

// confidence starts at 0.5 and grows with a clear intent, a detected
// subject, and a message long enough to mean something, capped at 1.0
func confidence(intent Intent, subject, message string) float64 {
	score := 0.5
	if intent != General {
		score += 0.2
	}
	if subject != "general" {
		score += 0.2
	}
	if len(strings.Fields(message)) > 3 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
