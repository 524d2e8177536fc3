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

// groupRun ties an active quiz session to the group chat it runs in
type groupRun struct {
	session     *quiz.Session
	initiatorID int64
	chatID      int64
}

// handleGroupQuizStart opens a quiz lobby in a group chat, using the
// initiator's most recent quiz
func (b *Bot) handleGroupQuizStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	quizzes, err := b.db.ListQuizzes(ctx, userID, 1)
	if err != nil || len(quizzes) == 0 {
		b.sendText(chatID, "📭 Pehle mujhe private me /quiz se ek quiz banao, phir yahan /groupquiz chalao!")
		return
	}
	latest := quizzes[0]
	questions, err := quiz.DecodeQuestions(&latest)
	if err != nil {
		b.logger.Error("Failed to decode quiz for group", zap.String("quiz_id", latest.ID), zap.Error(err))
		b.sendText(chatID, "Quiz load nahi ho payi, nayi quiz banao.")
		return
	}

	run := &groupRun{
		session:     quiz.NewSession(chatID, &latest, questions),
		initiatorID: userID,
		chatID:      chatID,
	}

	// Check and insert under one lock so two /groupquiz messages cannot
	// both open a lobby
	b.sessionsMu.Lock()
	if existing, ok := b.sessions[chatID]; ok && existing.session.State() != quiz.StateFinished {
		b.sessionsMu.Unlock()
		b.sendText(chatID, "⏳ Is group me pehle se ek quiz chal rahi hai!")
		return
	}
	b.sessions[chatID] = run
	b.sessionsMu.Unlock()

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🎮 Group Quiz: %s\n%d questions, %d seconds each.\n\nJoin karo aur %s start karega!",
		latest.Title, len(questions), b.cfg.QuizTimeLimit, message.From.FirstName,
	))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🙋 Join", "gq:join"),
			tgbotapi.NewInlineKeyboardButtonData("▶️ Start", "gq:start"),
		),
	)
	b.sendMessage(msg)
}

// handleGroupQuizCallback routes gq:* button presses
func (b *Bot) handleGroupQuizCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID

	b.sessionsMu.RLock()
	run, ok := b.sessions[chatID]
	b.sessionsMu.RUnlock()
	if !ok {
		b.answerCallback(query.ID, "Koi active quiz nahi hai")
		return
	}

	data := query.Data
	switch {
	case data == "gq:join":
		b.handleGroupJoin(query, run)
	case data == "gq:start":
		b.handleGroupStart(query, run)
	case strings.HasPrefix(data, "gq:ans:"):
		b.handleGroupAnswer(query, run)
	default:
		b.answerCallback(query.ID, "")
	}
}

func (b *Bot) handleGroupJoin(query *tgbotapi.CallbackQuery, run *groupRun) {
	if err := run.session.Join(query.From.ID, query.From.FirstName); err != nil {
		b.answerCallback(query.ID, err.Error())
		return
	}
	b.answerCallback(query.ID, "Joined! 🎉")
	b.sendText(run.chatID, fmt.Sprintf("🙋 %s joined! (%d players)", query.From.FirstName, run.session.PlayerCount()))
}

func (b *Bot) handleGroupStart(query *tgbotapi.CallbackQuery, run *groupRun) {
	if query.From.ID != run.initiatorID {
		b.answerCallback(query.ID, "Sirf quiz host start kar sakta hai")
		return
	}
	if err := run.session.Start(); err != nil {
		b.answerCallback(query.ID, err.Error())
		return
	}
	b.answerCallback(query.ID, "Quiz shuru!")
	go b.runGroupQuiz(run)
}

func (b *Bot) handleGroupAnswer(query *tgbotapi.CallbackQuery, run *groupRun) {
	parts := strings.Split(query.Data, ":")
	if len(parts) != 4 {
		b.answerCallback(query.ID, "")
		return
	}
	qIdx, err := strconv.Atoi(parts[2])
	if err != nil {
		b.answerCallback(query.ID, "")
		return
	}

	correct, err := run.session.Answer(query.From.ID, qIdx, parts[3])
	if err != nil {
		b.answerCallback(query.ID, err.Error())
		return
	}
	if correct {
		b.answerCallback(query.ID, "✅ Sahi jawab!")
	} else {
		b.answerCallback(query.ID, "❌ Galat jawab")
	}
}

// runGroupQuiz drives the question loop: post, wait, advance, and finally
// publish and persist the results
func (b *Bot) runGroupQuiz(run *groupRun) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in group quiz", zap.Any("panic", r))
		}
	}()

	questionTime := time.Duration(b.cfg.QuizTimeLimit) * time.Second
	for {
		q, idx, ok := run.session.Current()
		if !ok {
			break
		}
		b.askGroupQuestion(run.chatID, q, idx)
		time.Sleep(questionTime)
		if !run.session.Advance() {
			break
		}
	}
	b.finishGroupQuiz(context.Background(), run)
}

// askGroupQuestion posts a question with gq:ans buttons
func (b *Bot) askGroupQuestion(chatID int64, q models.Question, index int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("❓ Q%d: %s\n\n", index+1, q.Text))
	for i, opt := range q.Options {
		sb.WriteString(fmt.Sprintf("%c) %s\n", 'A'+i, opt))
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for i := range q.Options {
		letter := string(rune('A' + i))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(letter, fmt.Sprintf("gq:ans:%d:%s", index, letter)))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	b.sendMessage(msg)
}

// finishGroupQuiz announces the standings and persists them
func (b *Bot) finishGroupQuiz(ctx context.Context, run *groupRun) {
	results := run.session.Results()

	var sb strings.Builder
	sb.WriteString("🏁 Quiz khatam! Final scores:\n\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%s %s — %d/%d (%.0f%%)\n",
			quiz.Medal(i), r.FirstName, r.Score, r.TotalQuestions, r.Percentage))
	}
	sb.WriteString("\n/leaderboard se all-time rankings dekho!")
	b.sendText(run.chatID, sb.String())

	if err := b.db.AddGroupResults(ctx, results); err != nil {
		b.logger.Error("Failed to store group results", zap.Int64("group_id", run.chatID), zap.Error(err))
	}

	b.sessionsMu.Lock()
	delete(b.sessions, run.chatID)
	b.sessionsMu.Unlock()
}
