package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/config"
	"studybot/internal/files"
	"studybot/internal/intent"
	"studybot/internal/ocr"
	"studybot/internal/quiz"
	"studybot/internal/solver"
	"studybot/internal/storage"
)

// NewBot creates a new Telegram bot with all its components wired up
func NewBot(cfg *config.Config, db storage.Storage, aiClient AIClient, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	fileManager, err := files.NewManager(cfg.FilesDir, cfg.MaxFileSize, db, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file manager: %w", err)
	}

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))

	return &Bot{
		api:        api,
		db:         db,
		cfg:        cfg,
		ai:         aiClient,
		classifier: intent.NewClassifier(),
		files:      fileManager,
		quizzes:    quiz.NewGenerator(aiClient, cfg.MaxQuizQuestions, logger),
		solver:     solver.NewSolver(ocr.NewEngine(cfg.TesseractLangs), aiClient, logger),
		logger:     logger,
		states:     make(map[int64]*ConversationState),
		sessions:   make(map[int64]*groupRun),
	}, nil
}

// GetAPI returns the bot API for testing
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.api
}
