package bot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HTTPServer exposes the webhook endpoints and health checks
type HTTPServer struct {
	bot         *Bot
	webhookMode bool
	webhookURL  string
}

// NewHTTPServer creates the HTTP handler set for the bot
func NewHTTPServer(bot *Bot, webhookMode bool, webhookURL string) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookMode: webhookMode,
		webhookURL:  webhookURL,
	}
}

// RegisterRoutes registers all endpoints on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", hs.handleRoot)
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/webhook", hs.handleWebhook)
	mux.HandleFunc("/set_webhook", hs.adminMiddleware(hs.handleSetWebhook))
	mux.HandleFunc("/get_webhook_info", hs.handleWebhookInfo)
	mux.HandleFunc("/delete_webhook", hs.adminMiddleware(hs.handleDeleteWebhook))
}

// adminSecret derives the shared secret for the webhook management
// endpoints from the bot token, so operators who know the token can
// compute it without extra configuration
func (hs *HTTPServer) adminSecret() string {
	mac := hmac.New(sha256.New, []byte("WebhookAdmin"))
	mac.Write([]byte(hs.bot.cfg.BotToken))
	return hex.EncodeToString(mac.Sum(nil))
}

// adminMiddleware rejects requests that do not carry the shared secret
// in the X-Admin-Secret header
func (hs *HTTPServer) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		secret := r.Header.Get("X-Admin-Secret")
		if secret == "" || !hmac.Equal([]byte(secret), []byte(hs.adminSecret())) {
			hs.bot.logger.Warn("Rejected admin request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleRoot reports that the bot is alive and in which mode
func (hs *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	mode := "polling"
	if hs.webhookMode {
		mode = "webhook"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "running",
		"mode":   mode,
	})
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// handleWebhook receives Telegram updates in webhook mode
func (hs *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Failed to decode webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Process in background to respond quickly to Telegram
	go hs.bot.HandleWebhookUpdate(update)

	w.WriteHeader(http.StatusOK)
}

// handleSetWebhook (re)registers the webhook with Telegram
func (hs *HTTPServer) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if hs.webhookURL == "" {
		http.Error(w, `{"error":"webhook URL is not configured"}`, http.StatusBadRequest)
		return
	}
	if err := hs.bot.StartWebhook(hs.webhookURL); err != nil {
		http.Error(w, `{"error":"failed to set webhook"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "webhook set"})
}

// handleWebhookInfo proxies Telegram's webhook status
func (hs *HTTPServer) handleWebhookInfo(w http.ResponseWriter, r *http.Request) {
	if hs.bot.api == nil {
		http.Error(w, `{"error":"bot API is not available"}`, http.StatusServiceUnavailable)
		return
	}
	info, err := hs.bot.api.GetWebhookInfo()
	if err != nil {
		hs.bot.logger.Error("Failed to get webhook info", zap.Error(err))
		http.Error(w, `{"error":"failed to get webhook info"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"url":             info.URL,
		"pending_updates": info.PendingUpdateCount,
		"last_error":      info.LastErrorMessage,
	})
}

// handleDeleteWebhook removes the webhook so polling can take over
func (hs *HTTPServer) handleDeleteWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if hs.bot.api == nil {
		http.Error(w, `{"error":"bot API is not available"}`, http.StatusServiceUnavailable)
		return
	}
	if _, err := hs.bot.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		hs.bot.logger.Error("Failed to delete webhook", zap.Error(err))
		http.Error(w, `{"error":"failed to delete webhook"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "webhook deleted"})
}
