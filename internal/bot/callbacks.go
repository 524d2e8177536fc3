package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"studybot/internal/models"
	"studybot/internal/quiz"
)

// startSoloQuiz persists a generated quiz and asks its first question
func (b *Bot) startSoloQuiz(ctx context.Context, chatID, userID int64, generated *models.Quiz, questions []models.Question) {
	if err := b.db.AddQuiz(ctx, *generated); err != nil {
		b.logger.Error("Failed to store quiz", zap.Error(err))
		b.sendText(chatID, "Quiz save nahi ho payi, dobara try karo.")
		return
	}

	b.setState(userID, &ConversationState{
		Command: "quiz_run",
		Step:    0,
		Data: map[string]interface{}{
			"quiz_id": generated.ID,
			"score":   0,
			"started": time.Now(),
		},
	})

	b.sendText(chatID, fmt.Sprintf("🎯 Quiz ready: %s (%d questions)\n\nChalo shuru karte hai!", generated.Title, len(questions)))
	b.sendQuizQuestion(chatID, questions[0], 0)
}

// sendQuizQuestion posts one question with A-D answer buttons
func (b *Bot) sendQuizQuestion(chatID int64, q models.Question, index int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("❓ Q%d: %s\n\n", index+1, q.Text))
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("%c) %s\n", 'A'+i, opt))
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for i := range q.Options {
		letter := string(rune('A' + i))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(letter, fmt.Sprintf("ans:%d:%s", index, letter)))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	b.sendMessage(msg)
}

// handleAnswerCallback processes an A-D press during a solo quiz
func (b *Bot) handleAnswerCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID

	parts := strings.Split(query.Data, ":")
	if len(parts) != 3 {
		return
	}
	qIdx, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	letter := parts[2]

	state, ok := b.getState(userID)
	if !ok || state.Command != "quiz_run" {
		b.sendText(chatID, "Ye quiz khatam ho chuki hai. /quiz se nayi shuru karo!")
		return
	}

	// Hold the state lock across the whole press so two near-simultaneous
	// clicks cannot both score the same question
	state.mu.Lock()
	defer state.mu.Unlock()

	if qIdx != state.Step {
		// Stale button from an earlier question
		return
	}

	quizID, _ := state.Data["quiz_id"].(string)
	stored, err := b.db.GetQuiz(ctx, quizID)
	if err != nil || stored == nil {
		b.logger.Error("Failed to load quiz", zap.String("quiz_id", quizID), zap.Error(err))
		b.clearState(userID)
		return
	}
	questions, err := quiz.DecodeQuestions(stored)
	if err != nil || qIdx >= len(questions) {
		b.logger.Error("Failed to decode quiz", zap.String("quiz_id", quizID), zap.Error(err))
		b.clearState(userID)
		return
	}

	q := questions[qIdx]
	score, _ := state.Data["score"].(int)
	if strings.EqualFold(letter, q.Answer) {
		score++
		state.Data["score"] = score
		b.sendText(chatID, "✅ Sahi jawab!")
	} else {
		reply := fmt.Sprintf("❌ Galat. Sahi jawab: %s", q.Answer)
		if q.Explanation != "" {
			reply += "\n\n💡 " + q.Explanation
		}
		b.sendText(chatID, reply)
	}

	state.Step++
	if state.Step < len(questions) {
		b.sendQuizQuestion(chatID, questions[state.Step], state.Step)
		return
	}

	// Quiz finished
	started, _ := state.Data["started"].(time.Time)
	elapsed := 0
	if !started.IsZero() {
		elapsed = int(time.Since(started).Seconds())
	}
	attempt := models.QuizAttempt{
		QuizID:         quizID,
		UserID:         userID,
		Score:          score,
		TotalQuestions: len(questions),
		TimeTaken:      elapsed,
		CreatedAt:      time.Now(),
	}
	if err := b.db.AddAttempt(ctx, attempt); err != nil {
		b.logger.Error("Failed to store attempt", zap.String("quiz_id", quizID), zap.Error(err))
	}

	pct := float64(score) / float64(len(questions)) * 100
	b.sendText(chatID, fmt.Sprintf("🏁 Quiz complete!\n\nScore: %d/%d (%.0f%%)\n\n%s", score, len(questions), pct, scoreComment(pct)))
	state.Step = -1
	b.clearState(userID)
}

// handleQuizPDFCallback generates a quiz from a stored PDF picked off the
// /quiz keyboard
func (b *Bot) handleQuizPDFCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	userID := query.From.ID
	chatID := query.Message.Chat.ID
	fileID := strings.TrimPrefix(query.Data, "qpdf:")

	state, ok := b.getState(userID)
	if !ok {
		return
	}
	state.mu.Lock()
	if state.Command != "quiz" {
		state.mu.Unlock()
		return
	}
	state.Step = -1
	state.mu.Unlock()

	found, err := b.files.List(ctx, userID, models.FileTypePDF, 50)
	if err != nil {
		b.logger.Error("Failed to list files", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(chatID, "File nahi mili, dobara try karo.")
		return
	}
	var target *models.File
	for i := range found {
		if found[i].ID == fileID {
			target = &found[i]
			break
		}
	}
	if target == nil {
		b.sendText(chatID, "Ye file ab available nahi hai. /quiz dobara chalao.")
		return
	}

	b.sendText(chatID, fmt.Sprintf("🧠 %s se quiz bana raha hun, thoda time lagega...", target.Filename))

	subject := b.subjectFor(ctx, userID, target.Filename)
	generated, questions, err := b.quizzes.FromPDF(ctx, userID, target.Filepath, target.Filename, subject)
	if err != nil {
		b.logger.Error("PDF quiz generation failed", zap.String("file_id", fileID), zap.Error(err))
		b.sendText(chatID, "Is PDF se quiz nahi ban payi 😔 Text-based PDF try karo.")
		return
	}
	b.startSoloQuiz(ctx, chatID, userID, generated, questions)
}

// handleFileCallback handles file management buttons (file:del:<id>)
func (b *Bot) handleFileCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	parts := strings.SplitN(query.Data, ":", 3)
	if len(parts) != 3 || parts[1] != "del" {
		return
	}
	userID := query.From.ID

	if err := b.files.Delete(ctx, userID, parts[2]); err != nil {
		b.logger.Error("Failed to delete file", zap.String("file_id", parts[2]), zap.Error(err))
		b.sendText(query.Message.Chat.ID, "File delete nahi ho payi.")
		return
	}
	b.sendText(query.Message.Chat.ID, "🗑 File hata di. /notes se updated list dekho.")
}

// handleMemoryCallback clears the user's conversation memory
func (b *Bot) handleMemoryCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.Data != "mem:clear" {
		return
	}
	userID := query.From.ID

	removed, err := b.db.ClearHistory(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to clear history", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(query.Message.Chat.ID, "Memory clear nahi ho payi, try again.")
		return
	}
	b.sendText(query.Message.Chat.ID, fmt.Sprintf("🧹 Memory clear! %d messages bhool gaya. Fresh start 😊", removed))
}

func scoreComment(pct float64) string {
	switch {
	case pct >= 90:
		return "🌟 Outstanding! Topper material!"
	case pct >= 70:
		return "🎉 Bahut badhiya! Keep it up!"
	case pct >= 50:
		return "👍 Theek hai, thodi aur practice karo!"
	default:
		return "📖 Koi baat nahi, revision karke dobara try karo!"
	}
}
