package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/intent"
	"studybot/internal/models"
)

// handleConversation routes a non-command message to the active multi-step
// command
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Command {
	case "quiz":
		b.handleQuizConversation(ctx, message, state)
	default:
		b.clearState(message.From.ID)
		b.handleText(ctx, message)
	}
}

// handleQuizConversation consumes the topic text for a /quiz in progress
func (b *Bot) handleQuizConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	topic := strings.TrimSpace(message.Text)
	if topic == "" {
		b.sendText(message.Chat.ID, "Topic likh do ya upar se PDF chuno 🙂")
		return
	}
	state.mu.Lock()
	state.Step = -1
	state.mu.Unlock()

	b.sendText(message.Chat.ID, fmt.Sprintf("🧠 \"%s\" pe quiz bana raha hun, thoda wait karo...", topic))

	material := fmt.Sprintf("Topic: %s\n\nGenerate questions testing understanding of this topic at school level.", topic)
	generated, questions, err := b.quizzes.FromText(ctx, message.From.ID, material, topic, b.subjectFor(ctx, message.From.ID, topic), "")
	if err != nil {
		b.logger.Error("Quiz generation failed", zap.String("topic", topic), zap.Error(err))
		b.sendText(message.Chat.ID, "Quiz nahi ban payi 😔 Dusra topic try karo ya PDF bhejo.")
		return
	}
	b.startSoloQuiz(ctx, message.Chat.ID, message.From.ID, generated, questions)
}

// handleText answers a free-text message: classify it, then route to files,
// canned replies, or the AI chat
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	text := message.Text

	if err := b.db.AddMessage(ctx, userID, text, models.SenderUser, "text"); err != nil {
		b.logger.Warn("Failed to store message", zap.Int64("user_id", userID), zap.Error(err))
	}

	history, err := b.db.GetHistory(ctx, userID, b.cfg.ContextWindowSize)
	if err != nil {
		b.logger.Warn("Failed to load history", zap.Int64("user_id", userID), zap.Error(err))
	}

	analysis := b.classifier.Analyze(text, history)
	if err := b.db.UpdateUserContext(ctx, userID, analysis.Subject, "{}", text); err != nil {
		b.logger.Warn("Failed to update context", zap.Int64("user_id", userID), zap.Error(err))
	}
	b.logger.Debug("Message classified",
		zap.Int64("user_id", userID),
		zap.String("intent", string(analysis.Intent)),
		zap.String("subject", analysis.Subject),
		zap.Float64("confidence", analysis.Confidence),
	)

	var reply string
	switch analysis.Intent {
	case intent.FileRequest:
		reply = b.fileRequestReply(ctx, userID, text, analysis)
	case intent.Thanks:
		reply = intent.ThanksReply(message.From.FirstName)
	case intent.BestWishes:
		reply = intent.BestWishesReply()
	case intent.QuizRequest, intent.DoubtSolving:
		reply = intent.TemplateReply(analysis, message.From.FirstName)
	default:
		reply, err = b.ai.Reply(ctx, text, history)
		if err != nil {
			b.logger.Error("AI reply failed", zap.Int64("user_id", userID), zap.Error(err))
			reply = "Sorry yaar, abhi sochne me dikkat ho rahi hai 😅 Thodi der baad try karo."
		}
	}

	if err := b.db.AddMessage(ctx, userID, reply, models.SenderBot, "text"); err != nil {
		b.logger.Warn("Failed to store reply", zap.Int64("user_id", userID), zap.Error(err))
	}
	b.sendText(message.Chat.ID, reply)
}

// fileRequestReply searches stored files for a file request message
func (b *Bot) fileRequestReply(ctx context.Context, userID int64, text string, analysis intent.Analysis) string {
	matches, err := b.files.Suggest(ctx, userID, text)
	if err != nil {
		b.logger.Error("File suggestion failed", zap.Int64("user_id", userID), zap.Error(err))
		return "Files dhundne me problem ho gayi, /notes try karo."
	}
	if len(matches) == 0 {
		return "📭 Matching file nahi mili. /notes se apni saari files dekho, ya nayi file bhejo!"
	}

	var sb strings.Builder
	sb.WriteString(intent.TemplateReply(analysis, ""))
	sb.WriteString("\n\n")
	for i, f := range matches {
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n", i+1, fileTypeEmoji(f.FileType), f.Filename, formatSize(f.FileSize)))
	}
	return sb.String()
}

// handleDocument stores an uploaded document
func (b *Bot) handleDocument(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	doc := message.Document

	if int64(doc.FileSize) > b.cfg.MaxFileSize {
		b.sendText(message.Chat.ID, fmt.Sprintf("File bahut badi hai 😅 Max size %s hai.", formatSize(b.cfg.MaxFileSize)))
		return
	}

	data, err := b.downloadTelegramFile(doc.FileID)
	if err != nil {
		b.logger.Error("Failed to download document", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "File download nahi ho payi, dobara bhejo.")
		return
	}

	stored, err := b.files.Store(ctx, userID, doc.FileName, bytes.NewReader(data), message.Caption, nil)
	if err != nil {
		b.logger.Error("Failed to store document", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "File store nahi ho payi, dobara try karo.")
		return
	}

	reply := fmt.Sprintf("✅ %s store kar li! (%s)", stored.Filename, formatSize(stored.FileSize))
	if stored.FileType == models.FileTypePDF {
		reply += "\n\n🧠 /quiz se is PDF ki quiz bana sakte ho!"
	}
	b.sendText(message.Chat.ID, reply)
}

// handlePhoto treats an incoming photo as a doubt to solve
func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	// Largest size is last
	photo := message.Photo[len(message.Photo)-1]
	data, err := b.downloadTelegramFile(photo.FileID)
	if err != nil {
		b.logger.Error("Failed to download photo", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "Photo download nahi ho payi, dobara bhejo.")
		return
	}

	b.sendText(message.Chat.ID, "🤔 Doubt dekh raha hun, ek minute...")

	solution, err := b.solver.Solve(ctx, data)
	if err != nil {
		b.logger.Error("Doubt solving failed", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "Is doubt ko solve nahi kar paya 😔 Text me likh ke pucho?")
		return
	}

	if err := b.db.AddMessage(ctx, userID, "[doubt image]", models.SenderUser, "image"); err != nil {
		b.logger.Warn("Failed to store message", zap.Int64("user_id", userID), zap.Error(err))
	}
	if err := b.db.AddMessage(ctx, userID, solution.Answer, models.SenderBot, "text"); err != nil {
		b.logger.Warn("Failed to store reply", zap.Int64("user_id", userID), zap.Error(err))
	}

	b.sendText(message.Chat.ID, "💡 "+solution.Answer)
	if solution.Overlay != nil {
		b.sendPhoto(message.Chat.ID, "solution.png", solution.Overlay, "📝 Solution likha hua")
	}
}

// subjectFor picks a subject label for quiz generation from the topic or
// the user's current context
func (b *Bot) subjectFor(ctx context.Context, userID int64, topic string) string {
	if subject := b.classifier.ExtractSubject(topic, nil); subject != "general" {
		return subject
	}
	if uc, err := b.db.GetUserContext(ctx, userID); err == nil && uc != nil && uc.CurrentTopic != "" {
		return uc.CurrentTopic
	}
	return "general"
}
