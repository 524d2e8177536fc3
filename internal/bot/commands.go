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

func (b *Bot) handleStart(message *tgbotapi.Message) {
	name := message.From.FirstName
	if name == "" {
		name = "dost"
	}
	text := fmt.Sprintf(`👋 Namaste %s! Main Anuj hun, aapka study assistant.

Main ye sab kar sakta hun:
📄 PDF ya notes bhejo, main sambhal ke rakhunga
🧠 /quiz - PDF se MCQ quiz banata hun
🤔 Doubt ki photo bhejo, main solve karunga
💬 Koi bhi question pucho, main answer dunga

/help se full list dekho!`, name)
	b.sendText(message.Chat.ID, text)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	b.sendText(message.Chat.ID, `📖 Commands:

/quiz - generate an MCQ quiz from your PDFs or a topic
/notes - list and search your stored files
/memory - see or clear what I remember about our chats
/stats - your activity summary

In groups:
/groupquiz - run a synchronized quiz with friends
/leaderboard - group rankings

Ya phir bas message karo:
- "physics notes chahiye" - I will find your files
- photo of a problem - I will solve it
- anything else - we just chat 😊`)
}

// handleQuizStart begins the quiz conversation: pick a stored PDF or type
// a topic
func (b *Bot) handleQuizStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	pdfs, err := b.files.List(ctx, userID, models.FileTypePDF, 5)
	if err != nil {
		b.logger.Error("Failed to list PDFs", zap.Int64("user_id", userID), zap.Error(err))
		pdfs = nil
	}

	b.setState(userID, &ConversationState{
		Command: "quiz",
		Step:    1,
		Data:    make(map[string]interface{}),
	})

	msg := tgbotapi.NewMessage(message.Chat.ID, "🧠 Quiz banate hai!\n\nApni PDF chuno ya topic likh do (e.g. \"photosynthesis\"):")
	if len(pdfs) > 0 {
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, pdf := range pdfs {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📄 "+pdf.Filename, "qpdf:"+pdf.ID),
			))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	b.sendMessage(msg)
}

// handleNotes lists stored files; "/notes <query>" searches them
func (b *Bot) handleNotes(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	query := strings.TrimSpace(message.CommandArguments())

	var (
		found []models.File
		err   error
	)
	if query != "" {
		found, err = b.files.Search(ctx, userID, query)
	} else {
		found, err = b.files.List(ctx, userID, "", 10)
	}
	if err != nil {
		b.logger.Error("Failed to fetch files", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "Files fetch nahi ho payi, try again.")
		return
	}
	if len(found) == 0 {
		b.sendText(message.Chat.ID, "📭 Koi file nahi mili. PDF ya document bhejo, main store kar lunga!")
		return
	}

	var sb strings.Builder
	sb.WriteString("📚 Aapki files:\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, f := range found {
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n", i+1, fileTypeEmoji(f.FileType), f.Filename, formatSize(f.FileSize)))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 Delete %d", i+1), "file:del:"+f.ID),
		))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.sendMessage(msg)
}

// handleMemory shows the rolling conversation context with a clear button
func (b *Bot) handleMemory(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	uc, err := b.db.GetUserContext(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get user context", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "Memory fetch nahi ho payi, try again.")
		return
	}
	if uc == nil {
		uc = &models.UserContext{}
	}

	topic := uc.CurrentTopic
	if topic == "" {
		topic = "none yet"
	}
	text := fmt.Sprintf(`🧠 Meri memory:

Current topic: %s
Questions this session: %d
Last query: %s`, topic, uc.QueryCount, truncate(uc.LastQuery, 80))

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Clear memory", "mem:clear"),
		),
	)
	b.sendMessage(msg)
}

// handleStats shows the user's activity summary
func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	stats, err := b.db.UserStats(ctx, userID)
	if err != nil {
		b.logger.Error("Failed to get user stats", zap.Int64("user_id", userID), zap.Error(err))
		b.sendText(message.Chat.ID, "Stats fetch nahi ho payi, try again.")
		return
	}
	if stats == nil {
		b.sendText(message.Chat.ID, "Abhi tak koi activity nahi hai. Kuch pucho ya file bhejo!")
		return
	}
	fileStats, err := b.files.Stats(ctx, userID)
	if err != nil {
		b.logger.Warn("Failed to get file stats", zap.Int64("user_id", userID), zap.Error(err))
		fileStats = &models.FileStats{}
	}

	text := fmt.Sprintf(`📊 Aapke stats:

💬 Messages: %d
📁 Files: %d (%s)
🧠 Quizzes made: %d
🎯 Quiz attempts: %d (avg score %.1f)
📅 Member since: %s`,
		stats.TotalMessages,
		fileStats.TotalFiles, formatSize(fileStats.TotalSize),
		stats.QuizzesMade,
		stats.QuizAttempts, stats.AverageScore,
		stats.MemberSince.Format("2 Jan 2006"),
	)
	b.sendText(message.Chat.ID, text)
}

// handleLeaderboard shows the group's all-time quiz rankings
func (b *Bot) handleLeaderboard(ctx context.Context, message *tgbotapi.Message) {
	entries, err := b.db.GroupLeaderboard(ctx, message.Chat.ID, 10)
	if err != nil {
		b.logger.Error("Failed to get leaderboard", zap.Int64("group_id", message.Chat.ID), zap.Error(err))
		b.sendText(message.Chat.ID, "Leaderboard fetch nahi ho payi, try again.")
		return
	}
	if len(entries) == 0 {
		b.sendText(message.Chat.ID, "🏆 Abhi tak koi quiz nahi hui! /groupquiz se shuru karo.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 Group Leaderboard:\n\n")
	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("%s %s — %.1f%% (%d quizzes)\n",
			quiz.Medal(i), e.FirstName, e.AveragePct, e.QuizzesPlayed))
	}
	b.sendText(message.Chat.ID, sb.String())
}

// handlePrune is an admin maintenance command: "/prune [days]" removes
// conversation turns older than the cutoff (default 30 days)
func (b *Bot) handlePrune(ctx context.Context, message *tgbotapi.Message) {
	if !b.cfg.IsAdmin(message.From.ID) {
		b.sendText(message.Chat.ID, "Ye command sirf admins ke liye hai.")
		return
	}

	days := 30
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		if parsed, err := strconv.Atoi(arg); err == nil && parsed > 0 {
			days = parsed
		}
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := b.db.PruneConversations(ctx, cutoff)
	if err != nil {
		b.logger.Error("Failed to prune conversations", zap.Error(err))
		b.sendText(message.Chat.ID, "Pruning failed, check logs.")
		return
	}
	b.logger.Info("Pruned conversations", zap.Int64("removed", removed), zap.Int("days", days))
	b.sendText(message.Chat.ID, fmt.Sprintf("🧹 Removed %d turns older than %d days.", removed, days))
}

func truncate(s string, max int) string {
	if s == "" {
		return "-"
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
