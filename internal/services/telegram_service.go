package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const telegramAPI = "https://api.telegram.org"

// TelegramService mirrors notifications to an operator chat.
type TelegramService struct {
	botToken    string
	adminChatID string
	baseURL     string
	client      *http.Client
	logger      *zap.Logger
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string, logger *zap.Logger) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		baseURL:     telegramAPI,
		client:      http.DefaultClient,
		logger:      logger,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (s *TelegramService) Name() string { return "telegram" }

// Configured reports whether both the bot token and admin chat are set.
func (s *TelegramService) Configured() bool {
	return s.botToken != "" && s.adminChatID != ""
}

// Send mirrors msg to the admin chat. Sensitive bodies are redacted.
func (s *TelegramService) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		s.logger.Debug("telegram not configured, skipping mirror")
		return nil
	}

	text := msg.Text
	if msg.Sensitive {
		text = redacted
	}
	body := fmt.Sprintf("<b>📨 Notification</b>\n<b>To:</b> %s\n%s", html.EscapeString(msg.To), html.EscapeString(text))
	return s.SendMessage(ctx, s.adminChatID, strings.TrimSpace(body))
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)

	payload, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
