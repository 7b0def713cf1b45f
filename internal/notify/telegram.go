// internal/notify/telegram.go - Telegram notification transport
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/config"
)

const (
	DefaultAPIBaseURL = "https://api.telegram.org"
	UserAgent         = "HostSentry Monitor/1.0"
)

// telegramRequest is the sendMessage payload.
type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// telegramResponse is the subset of the Bot API response we care about.
type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

// TelegramClient sends messages through the Telegram Bot API.
type TelegramClient struct {
	config     *config.TelegramConfig
	httpClient *http.Client
	baseURL    string
}

func NewTelegramClient(cfg *config.TelegramConfig) *TelegramClient {
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &TelegramClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

// Send delivers text as a Markdown-formatted Telegram message.
func (tc *TelegramClient) Send(ctx context.Context, text string) error {
	if tc.config.BotToken == "" || tc.config.ChatID == "" {
		return fmt.Errorf("telegram bot token and chat ID are required")
	}

	payload := telegramRequest{
		ChatID:    tc.config.ChatID,
		Text:      text,
		ParseMode: "Markdown",
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", tc.baseURL, tc.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var apiResp telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API error %d: %s", apiResp.ErrorCode, apiResp.Description)
	}

	logrus.WithFields(logrus.Fields{
		"chat_id": tc.config.ChatID,
		"length":  len(text),
	}).Debug("Telegram notification sent successfully")

	return nil
}

// TestConnection sends a test message to verify the token and chat ID.
func (tc *TelegramClient) TestConnection(ctx context.Context) error {
	return tc.Send(ctx, "🧪 Test notification from HostSentry")
}
