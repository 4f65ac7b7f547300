// Package telegram adapts the front-end boundary: it receives inbound user
// messages over long polling and delivers outbound answers.
//
// Messages from one chat are processed strictly in arrival order via the
// per-key dispatcher; a message arriving mid-turn queues behind the
// in-flight turn rather than interrupting it.
package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/petasbytes/docsbot/internal/dispatch"
)

const welcomeMessage = "Welcome to the Docs Bot!\n\n" +
	"I can help you find information from the official documentation.\n\n" +
	"Just ask your question in natural language and I'll search the docs for you."

const pollTimeoutSeconds = 30

// Handler produces the answer for one user utterance. The returned text is
// always deliverable; err reports an aborted turn for logging only.
type Handler func(ctx context.Context, userID, text string) (string, error)

type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *dispatch.Dispatcher
	handle     Handler
	logger     zerolog.Logger
}

func New(token string, d *dispatch.Dispatcher, h Handler, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:        api,
		dispatcher: d,
		handle:     h,
		logger:     logger.With().Str("component", "telegram").Logger(),
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info().Str("bot", b.api.Self.UserName).Msg("starting long polling")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
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
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	chatID := msg.Chat.ID
	userKey := strconv.FormatInt(chatID, 10)

	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.send(chatID, welcomeMessage)
		}
		return
	}

	text := msg.Text
	queued := b.dispatcher.Submit(userKey, func() {
		b.typing(chatID)
		answer, err := b.handle(ctx, userKey, text)
		if err != nil {
			b.logger.Error().Str("user_id", userKey).Err(err).Msg("turn aborted")
		}
		b.send(chatID, answer)
	})
	if !queued {
		b.logger.Warn().Str("user_id", userKey).Msg("dispatcher closed, dropping message")
	}
}

func (b *Bot) typing(chatID int64) {
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	if _, err := b.api.Request(action); err != nil {
		b.logger.Debug().Err(err).Msg("typing action failed")
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Int64("chat_id", chatID).Err(err).Msg("send failed")
	}
}
