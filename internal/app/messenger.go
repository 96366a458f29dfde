package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pettai/petbot/internal/flow"

	tele "gopkg.in/telebot.v4"
)

// botMessenger adapts telebot to the flow.Messenger port. The bot handle is
// bound at OnStart; calls before binding fail loudly rather than panic.
type botMessenger struct {
	bot atomic.Pointer[tele.Bot]
}

func (m *botMessenger) Bind(b *tele.Bot) {
	m.bot.Store(b)
}

func (m *botMessenger) loaded() (*tele.Bot, error) {
	b := m.bot.Load()
	if b == nil {
		return nil, errors.New("app: messenger not bound to a bot")
	}
	return b, nil
}

func (m *botMessenger) SendText(_ context.Context, chatID int64, text string, opts flow.SendOptions) (flow.MessageRef, error) {
	b, err := m.loaded()
	if err != nil {
		return flow.MessageRef{}, err
	}

	sendOpts := &tele.SendOptions{DisableWebPagePreview: true}
	if opts.Secret {
		// Code fences keep the credential as literal monospace text.
		sendOpts.ParseMode = tele.ModeMarkdown
	}

	msg, err := b.Send(tele.ChatID(chatID), text, sendOpts)
	if err != nil {
		return flow.MessageRef{}, fmt.Errorf("app: send to %d: %w", chatID, err)
	}
	return flow.MessageRef{ChatID: chatID, MessageID: msg.ID}, nil
}

func (m *botMessenger) EditText(_ context.Context, ref flow.MessageRef, text string) error {
	b, err := m.loaded()
	if err != nil {
		return err
	}
	_, err = b.Edit(storedMessage(ref), text)
	if isGone(err) {
		return nil
	}
	return err
}

func (m *botMessenger) DeleteMessage(_ context.Context, ref flow.MessageRef) error {
	b, err := m.loaded()
	if err != nil {
		return err
	}
	err = b.Delete(storedMessage(ref))
	if isGone(err) {
		return nil
	}
	return err
}

func storedMessage(ref flow.MessageRef) tele.Editable {
	return &tele.Message{ID: ref.MessageID, Chat: &tele.Chat{ID: ref.ChatID}}
}

// isGone reports whether the API rejected the call because the message no
// longer exists. Already-deleted messages are normal during cleanup.
func isGone(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		desc := strings.ToLower(apiErr.Description)
		return strings.Contains(desc, "not found") || strings.Contains(desc, "message is not modified")
	}
	return false
}
