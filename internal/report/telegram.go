// Package report sends the digest of high-scoring analyzed postings to
// Telegram. Reporting is best effort: a send failure never blocks the
// pipeline.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/utils"
)

const (
	defaultAPIBaseURL = "https://api.telegram.org"

	telegramTimeout = 10 * time.Second
)

// Telegram posts Markdown messages through the bot API. With no token or
// chat id configured every send is a silent no-op, so the pipeline runs
// unchanged without credentials.
type Telegram struct {
	Token  string
	ChatID string
	// BaseURL overrides the API host in tests.
	BaseURL string

	client *http.Client
	logger *zap.Logger
}

func NewTelegram(token, chatID string, logger *zap.Logger) *Telegram {
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		BaseURL: defaultAPIBaseURL,
		client:  &http.Client{Timeout: telegramTimeout},
		logger:  logger,
	}
}

func (t *Telegram) Configured() bool {
	return t.Token != "" && t.ChatID != ""
}

func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if !t.Configured() {
		t.logger.Warn("telegram credentials missing, skipping notification")
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram send failed: %s: %s", resp.Status, utils.TruncateForLog(string(body), 200))
	}

	return nil
}
