package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram delivers messages through the Telegram Bot API. The bot client is
// not safe for unbounded concurrent use, which is one more reason delivery
// runs behind the single-goroutine dispatcher.
type Telegram struct {
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{bot: bot}, nil
}

// Updates opens the long-poll update feed for the command router.
func (t *Telegram) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	return t.bot.GetUpdatesChan(u)
}

func (t *Telegram) StopUpdates() {
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) SendText(_ context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send text: %w", err)
	}
	return nil
}

func (t *Telegram) SendPhoto(_ context.Context, userID int64, photo []byte, caption string) error {
	msg := tgbotapi.NewPhoto(userID, tgbotapi.FileBytes{Name: "receipt.png", Bytes: photo})
	msg.Caption = caption
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}
