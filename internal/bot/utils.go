package bot

import (
	"fmt"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// sendMessage sends a message, skipping when no API is attached (tests)
func (b *Bot) sendMessage(msg tgbotapi.MessageConfig) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Int64("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

// sendText sends plain text to a chat
func (b *Bot) sendText(chatID int64, text string) {
	b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// sendPhoto uploads image bytes to a chat
func (b *Bot) sendPhoto(chatID int64, name string, data []byte, caption string) {
	if b.api == nil {
		return
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("Failed to send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// answerCallback acknowledges a callback query so the client stops spinning
func (b *Bot) answerCallback(queryID, text string) {
	if b.api == nil {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}

// downloadTelegramFile fetches a file uploaded to Telegram by its file ID
func (b *Bot) downloadTelegramFile(fileID string) ([]byte, error) {
	if b.api == nil {
		return nil, fmt.Errorf("bot API is not available")
	}
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download file %s: status %d", fileID, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// getState returns the user's conversation state, if any
func (b *Bot) getState(userID int64) (*ConversationState, bool) {
	b.statesMu.RLock()
	defer b.statesMu.RUnlock()
	state, ok := b.states[userID]
	return state, ok
}

// setState replaces the user's conversation state
func (b *Bot) setState(userID int64, state *ConversationState) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	b.states[userID] = state
}

// clearState removes the user's conversation state
func (b *Bot) clearState(userID int64) {
	b.statesMu.Lock()
	defer b.statesMu.Unlock()
	delete(b.states, userID)
}

// formatSize renders a byte count for display
func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// fileTypeEmoji returns a display emoji for a file category
func fileTypeEmoji(fileType string) string {
	switch fileType {
	case "pdf":
		return "📄"
	case "image":
		return "🖼"
	case "audio":
		return "🎵"
	case "video":
		return "🎬"
	case "document":
		return "📝"
	default:
		return "📦"
	}
}
