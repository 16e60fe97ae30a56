package notification

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramSender delivers messages through the Telegram Bot API.
type TelegramSender struct {
	bot *bot.Bot
}

// NewTelegramSender creates a sender for token. The token is not verified
// against the API until the first message is sent.
func NewTelegramSender(token string, opts ...bot.Option) (*TelegramSender, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSender{bot: b}, nil
}

func (s *TelegramSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	return err
}
