// Package telegram provides the Telegram bot for budget alerts and stats commands.
package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram bot API.
type Bot struct {
	api         *tgbotapi.BotAPI
	adminChatID int64
	handler     *CommandHandler
}

// New creates a Bot. Returns nil if token is empty (Telegram disabled).
func New(token string, adminChatID int64, handler *CommandHandler) (*Bot, error) {
	if token == "" {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram.New: %w", err)
	}
	b := &Bot{api: api, adminChatID: adminChatID, handler: handler}
	if handler != nil {
		handler.reply = b.reply
	}
	return b, nil
}

// Send sends a plain text message to the admin chat.
// Budget alerts get inline buttons for the stats and budget views.
func (b *Bot) Send(msg string) error {
	if b == nil {
		return nil
	}
	m := tgbotapi.NewMessage(b.adminChatID, msg)
	m.ParseMode = "Markdown"
	m.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Stats", callbackStats),
			tgbotapi.NewInlineKeyboardButtonData("🎯 Budget", callbackBudget),
		),
	)
	if _, err := b.api.Send(m); err != nil {
		return fmt.Errorf("telegram.Send: %w", err)
	}
	return nil
}

// Start begins polling for updates and blocks until ctx is done.
// Only processes messages from adminChatID.
func (b *Bot) Start(ctx context.Context) {
	if b == nil {
		return
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message != nil && update.Message.Chat.ID != b.adminChatID {
				continue
			}
			if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message != nil && b.handler != nil && update.Message.IsCommand() {
				b.handler.Handle(ctx, update.Message.Chat.ID, update.Message.Command())
			}
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if b.handler != nil && query.Message != nil {
		b.handler.Handle(ctx, query.Message.Chat.ID, query.Data)
	}
	ack := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.api.Request(ack); err != nil {
		log.Printf("telegram: ack callback: %v", err)
	}
}

// reply sends a text reply to a chat.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("telegram.reply: %v", err)
	}
}
