package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/models"
)

// handleMessage processes a single message
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	// Recover from panics to prevent bot crashes
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleMessage", zap.Any("panic", r))
			b.sendText(message.Chat.ID, "Kuch galat ho gaya 😅 Please try again.")
		}
	}()

	userID := message.From.ID
	ctx := context.Background()

	b.registerUser(ctx, message.From)

	// Group chats only react to commands and group quiz flows
	if message.Chat.IsGroup() || message.Chat.IsSuperGroup() {
		b.registerGroup(ctx, message)
		if message.IsCommand() {
			b.handleGroupCommand(ctx, message)
		}
		return
	}

	// Check if user is in a conversation
	if state, ok := b.getState(userID); ok {
		state.mu.Lock()
		finished := state.Step == -1
		state.mu.Unlock()
		if finished {
			b.clearState(userID)
		} else if message.IsCommand() {
			// Any command interrupts an ongoing conversation
			b.clearState(userID)
		} else {
			b.handleConversation(ctx, message, state)
			return
		}
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(message)
		case "help":
			b.handleHelp(message)
		case "quiz":
			b.handleQuizStart(ctx, message)
		case "notes":
			b.handleNotes(ctx, message)
		case "memory":
			b.handleMemory(ctx, message)
		case "stats":
			b.handleStats(ctx, message)
		case "prune":
			b.handlePrune(ctx, message)
		default:
			b.sendText(message.Chat.ID, "Unknown command. Use /help to see what I can do.")
		}
		return
	}

	// Uploads
	if message.Document != nil {
		b.handleDocument(ctx, message)
		return
	}
	if len(message.Photo) > 0 {
		b.handlePhoto(ctx, message)
		return
	}

	if strings.TrimSpace(message.Text) != "" {
		b.handleText(ctx, message)
	}
}

// handleCallbackQuery processes inline keyboard button clicks
func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in handleCallbackQuery", zap.Any("panic", r))
		}
	}()

	ctx := context.Background()
	data := query.Data

	switch {
	case strings.HasPrefix(data, "gq:"):
		b.handleGroupQuizCallback(ctx, query)
		return
	case strings.HasPrefix(data, "ans:"):
		b.answerCallback(query.ID, "")
		b.handleAnswerCallback(ctx, query)
		return
	case strings.HasPrefix(data, "qpdf:"):
		b.answerCallback(query.ID, "")
		b.handleQuizPDFCallback(ctx, query)
		return
	case strings.HasPrefix(data, "file:"):
		b.answerCallback(query.ID, "")
		b.handleFileCallback(ctx, query)
		return
	case strings.HasPrefix(data, "mem:"):
		b.answerCallback(query.ID, "")
		b.handleMemoryCallback(ctx, query)
		return
	}
	b.answerCallback(query.ID, "")
}

// registerUser upserts the sender and bumps their activity counters
func (b *Bot) registerUser(ctx context.Context, from *tgbotapi.User) {
	if from == nil {
		return
	}
	user := models.User{
		ID:           from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		CreatedAt:    time.Now(),
		LastActive:   time.Now(),
	}
	if err := b.db.UpsertUser(ctx, user); err != nil {
		b.logger.Error("Failed to upsert user", zap.Int64("user_id", from.ID), zap.Error(err))
		return
	}
	if err := b.db.TouchUser(ctx, from.ID); err != nil {
		b.logger.Warn("Failed to touch user", zap.Int64("user_id", from.ID), zap.Error(err))
	}
}

// registerGroup records the group chat and the sender's membership
func (b *Bot) registerGroup(ctx context.Context, message *tgbotapi.Message) {
	group := models.Group{
		ID:        message.Chat.ID,
		Title:     message.Chat.Title,
		Type:      message.Chat.Type,
		Active:    true,
		CreatedAt: time.Now(),
	}
	if err := b.db.UpsertGroup(ctx, group); err != nil {
		b.logger.Warn("Failed to upsert group", zap.Int64("group_id", message.Chat.ID), zap.Error(err))
		return
	}
	if err := b.db.AddGroupMember(ctx, message.Chat.ID, message.From.ID, "member"); err != nil {
		b.logger.Warn("Failed to add group member", zap.Int64("group_id", message.Chat.ID), zap.Error(err))
	}
}

// handleGroupCommand routes commands issued inside a group chat
func (b *Bot) handleGroupCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "groupquiz":
		b.handleGroupQuizStart(ctx, message)
	case "leaderboard":
		b.handleLeaderboard(ctx, message)
	case "start", "help":
		b.sendText(message.Chat.ID, "📚 Group me main quizzes chala sakta hun!\n\n/groupquiz - start a group quiz\n/leaderboard - group rankings")
	}
}
