package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/config"
	"studybot/internal/files"
	"studybot/internal/intent"
	"studybot/internal/models"
	"studybot/internal/quiz"
	"studybot/internal/solver"
	"studybot/internal/storage"
)

// AIClient is the OpenAI surface the bot depends on
type AIClient interface {
	Reply(ctx context.Context, message string, history []models.Conversation) (string, error)
	GenerateQuestions(ctx context.Context, text string, count int, subject string) (string, error)
	SolveDoubt(ctx context.Context, ocrText string) (string, error)
	DescribeImage(ctx context.Context, imageData []byte) (string, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api        *tgbotapi.BotAPI
	db         storage.Storage
	cfg        *config.Config
	ai         AIClient
	classifier *intent.Classifier
	files      *files.Manager
	quizzes    *quiz.Generator
	solver     *solver.Solver
	logger     *zap.Logger

	states   map[int64]*ConversationState
	statesMu sync.RWMutex

	sessions   map[int64]*groupRun // group chat ID -> active quiz run
	sessionsMu sync.RWMutex
}

// ConversationState tracks the state of multi-step commands. Handlers run
// one goroutine per update, so Step and Data are read and written under mu.
type ConversationState struct {
	mu      sync.Mutex
	Command string
	Step    int
	Data    map[string]interface{}
}
