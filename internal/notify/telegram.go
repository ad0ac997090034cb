// Package notify delivers digests to owners.
package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/hray3182/tincan/internal/format"
)

// Notifier sends a markdown message to a chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, markdown string) error
}

type Telegram struct {
	api *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint targets a custom Bot API server. endpoint has the
// form of tgbotapi.APIEndpoint.
func NewTelegramWithEndpoint(token, endpoint string) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	logx.Infow("telegram notifier authorized", logx.Field("account", api.Self.UserName))
	return &Telegram{api: api}, nil
}

func (t *Telegram) Send(ctx context.Context, chatID int64, markdown string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	parsed := format.ParseMarkdown(markdown)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities

	sent, err := t.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	logx.Infow("digest sent", logx.Field("chat_id", chatID), logx.Field("message_id", sent.MessageID))
	return nil
}
