package services

import (
	"context"
	"fmt"
	"html"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"teamhub/internal/models"
)

// TelegramSender is the part of *tgbotapi.BotAPI the channel needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramService struct {
	bot     TelegramSender
	baseURL string
}

// NewTelegramBot logs in with botToken; it fails when the token is rejected.
func NewTelegramBot(botToken string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	log.Printf("[tg][init] authorized as @%s", bot.Self.UserName)
	return bot, nil
}

func NewTelegramService(bot TelegramSender, baseURL string) *TelegramService {
	return &TelegramService{bot: bot, baseURL: baseURL}
}

func (t *TelegramService) Name() string { return "telegram" }

func (t *TelegramService) Deliver(_ context.Context, to *models.User, n *models.Notification) error {
	if t == nil || t.bot == nil || !to.NotifyTelegram || to.TelegramChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(to.TelegramChatID, t.text(n))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendMessage failed: %w", err)
	}
	log.Printf("[tg][send] chatID=%d notification=%d", to.TelegramChatID, n.ID)
	return nil
}

func (t *TelegramService) text(n *models.Notification) string {
	s := fmt.Sprintf("<b>%s</b>\n%s", html.EscapeString(n.Title), html.EscapeString(n.Message))
	if n.ActionURL != "" {
		s += fmt.Sprintf("\n<a href=\"%s%s\">Open</a>", t.baseURL, n.ActionURL)
	}
	return s
}
