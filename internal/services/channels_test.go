package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"teamhub/internal/models"
)

type fakeMailer struct {
	sent []*gomail.Message
	err  error
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.sent = append(m.sent, msgs...)
	return m.err
}

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, s.err
}

func sampleNotification() *models.Notification {
	return &models.Notification{
		ID: 7, Type: models.NotifTaskAssigned, Title: "New Task Assigned",
		Message: `You have been assigned to task "A<B>"`, ActionURL: "/tasks/3",
	}
}

func TestEmailChannel(t *testing.T) {
	m := &fakeMailer{}
	ch := &EmailService{dialer: m, from: "noreply@teamhub.dev", baseURL: "https://app.teamhub.dev"}
	to := &models.User{Name: "Ann Lee", Email: "ann@example.com", NotifyEmail: true}

	require.NoError(t, ch.Deliver(context.Background(), to, sampleNotification()))
	require.Len(t, m.sent, 1)
	msg := m.sent[0]
	assert.Equal(t, []string{"ann@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"New Task Assigned"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "https://app.teamhub.dev/tasks/3")

	to.NotifyEmail = false
	require.NoError(t, ch.Deliver(context.Background(), to, sampleNotification()))
	assert.Len(t, m.sent, 1)

	m.err = errors.New("smtp down")
	to.NotifyEmail = true
	assert.ErrorContains(t, ch.Deliver(context.Background(), to, sampleNotification()), "smtp down")
}

func TestTelegramChannel(t *testing.T) {
	s := &fakeSender{}
	ch := NewTelegramService(s, "https://app.teamhub.dev")
	to := &models.User{Name: "Ann Lee", TelegramChatID: 5150, NotifyTelegram: true}

	require.NoError(t, ch.Deliver(context.Background(), to, sampleNotification()))
	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	assert.EqualValues(t, 5150, msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.True(t, msg.DisableWebPagePreview)
	assert.Contains(t, msg.Text, "<b>New Task Assigned</b>")
	assert.Contains(t, msg.Text, "A&lt;B&gt;")
	assert.Contains(t, msg.Text, `href="https://app.teamhub.dev/tasks/3"`)

	to.TelegramChatID = 0
	require.NoError(t, ch.Deliver(context.Background(), to, sampleNotification()))
	assert.Len(t, s.sent, 1)

	var nilChannel *TelegramService
	assert.NoError(t, nilChannel.Deliver(context.Background(), to, sampleNotification()))
}
