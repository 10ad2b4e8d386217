// Package notify pushes trade notifications to an operator chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram sends notifications through the Telegram Bot API.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	title          string
	maxRetries     int
	retryDelayBase time.Duration
}

// TelegramConfig contains the bot settings.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// Title is the bold first line of every message.
	Title          string
	MaxRetries     int
	RetryDelayBase time.Duration
	// Endpoint overrides the Bot API URL format (token, method).
	Endpoint   string
	HTTPClient tgbotapi.HTTPClient
}

// NewTelegram creates a notifier. It calls getMe to validate the token.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	if cfg.Title == "" {
		cfg.Title = "Smart money bot"
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.Endpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return &Telegram{
		bot:            bot,
		chatID:         cfg.ChatID,
		title:          cfg.Title,
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}, nil
}

// Notify sends message as plain text under the bold title.
func (t *Telegram) Notify(ctx context.Context, message string) error {
	text := fmt.Sprintf("🤖 *%s*\n%s", escapeMarkdownV2(t.title), escapeMarkdownV2(message))
	return t.sendMarkdownV2(ctx, text)
}

// ListenForCommands answers /ping until ctx is cancelled.
func (t *Telegram) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message != nil && update.Message.IsCommand() && update.Message.Command() == "ping" {
					t.bot.Send(tgbotapi.NewMessage(update.Message.Chat.ID, "Pong")) //nolint:errcheck
				}
			}
		}
	}()
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (t *Telegram) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < t.maxRetries; i++ {
		if _, err := t.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == t.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", t.maxRetries, lastErr)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
