// Package notify holds best-effort secondary notification sinks. Sinks
// never affect the relay's response to the original caller; failures are
// logged and dropped.
package notify

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram mirrors forwarded notifications to a single Telegram chat.
type Telegram struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	parseMode string
	logger    *slog.Logger
}

// TelegramConfig configures the Telegram mirror.
type TelegramConfig struct {
	Token     string
	ChatID    string // numeric chat ID as a string
	ParseMode string // empty = plain text
	Logger    *slog.Logger
}

// NewTelegram connects the mirror bot. The chat ID is validated here so a
// misconfiguration fails at startup rather than on the first notification.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.ChatID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram mirror connected", "username", bot.Self.UserName, "chat_id", chatID)
	return &Telegram{
		bot:       bot,
		chatID:    chatID,
		parseMode: cfg.ParseMode,
		logger:    cfg.Logger,
	}, nil
}

// Send delivers text to the mirror chat. Errors are logged only.
func (t *Telegram) Send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = t.parseMode
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Warn("telegram mirror failed", "chat_id", t.chatID, "err", err)
	}
}
