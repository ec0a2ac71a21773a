package survey

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ptoscano/intakebot/core/logger"
	coretelegram "github.com/ptoscano/intakebot/core/telegram"
	tghelpers "github.com/ptoscano/intakebot/core/telegram/helpers"
	"github.com/ptoscano/intakebot/core/telegram/keyboard"
	"github.com/ptoscano/intakebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// ErrMalformedUpdate marks an update that lacks the sender or chat needed
// to route it. Such updates are acknowledged and dropped.
var ErrMalformedUpdate = errors.New("survey: malformed update")

// BotGateway runs dialog output over the Telegram Bot API. Prompts are sent
// synchronously so their message ids can be tracked for cleanup; deletions
// ride the async dispatcher and never block the update path.
type BotGateway struct {
	dispatcher *sender.Dispatcher
	bot        atomic.Pointer[tele.Bot]
}

func NewBotGateway(dispatcher *sender.Dispatcher) *BotGateway {
	return &BotGateway{dispatcher: dispatcher}
}

// Bind attaches the live bot instance. Must happen before updates flow.
func (g *BotGateway) Bind(bot *tele.Bot) {
	g.bot.Store(bot)
}

func (g *BotGateway) Send(_ context.Context, chatID int64, text string, kb KeyboardHint) (int, error) {
	bot := g.bot.Load()
	if bot == nil {
		return 0, errors.New("survey: gateway not bound")
	}

	var markup *tele.ReplyMarkup
	switch kb {
	case KeyboardYesNo:
		markup = keyboard.ReplyButtons(YesNoLabels)
	case KeyboardRemove:
		markup = keyboard.RemoveKeyboard()
	}

	var (
		msg *tele.Message
		err error
	)
	if markup != nil {
		msg, err = bot.Send(tele.ChatID(chatID), text, markup)
	} else {
		msg, err = bot.Send(tele.ChatID(chatID), text)
	}
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// Delete schedules a best-effort message removal. Failures are expected
// (already deleted, too old) and surface only as sampled debug lines.
func (g *BotGateway) Delete(ctx context.Context, chatID int64, messageID int) error {
	bot := g.bot.Load()
	if bot == nil {
		return errors.New("survey: gateway not bound")
	}

	run := func() error {
		ref := tele.StoredMessage{
			MessageID: strconv.Itoa(messageID),
			ChatID:    chatID,
		}
		if err := bot.Delete(ref); err != nil && logger.ShouldSampleDebug() {
			logger.Debug(ctx, "survey", "delete.skip",
				slog.Int64("chat_id", chatID),
				slog.Int("message_id", messageID),
				slog.String("error", err.Error()))
		}
		return nil
	}

	if g.dispatcher != nil {
		if err := g.dispatcher.Enqueue(ctx, "delete", "deleteMessage", run); err == nil {
			return nil
		}
	}
	return run()
}

// Routes binds the intake dialog to bot endpoints. /start begins a run;
// any other text is fed to the machine as an answer.
func Routes(h *Handler) []coretelegram.Route {
	return []coretelegram.Route{
		{Endpoint: "/start", Handler: routeHandler(h, "start", true)},
		{Endpoint: tele.OnText, Handler: routeHandler(h, "answer", false)},
	}
}

func routeHandler(h *Handler, name string, isStart bool) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.WithHandler(c, name)
		start := time.Now()

		ev, err := DecodeEvent(c, isStart)
		if err != nil {
			logger.Debug(ctx, "survey", "update.dropped",
				slog.String("handler", name),
				slog.String("error", err.Error()))
			return nil
		}

		err = h.Handle(ctx, ev)
		logger.Info(ctx, "survey", "handler.done",
			slog.String("handler", name),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)))
		return err
	}
}

// DecodeEvent flattens a Telegram update into the transport-neutral event
// the dialog consumes. isStart comes from the matched route, not the text:
// only the real /start command resets a run, so answers that happen to look
// like commands stay verbatim.
func DecodeEvent(c tele.Context, isStart bool) (Inbound, error) {
	msg := c.Message()
	if msg == nil || msg.Sender == nil || msg.Chat == nil {
		return Inbound{}, ErrMalformedUpdate
	}

	return Inbound{
		UserID:      msg.Sender.ID,
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        msg.Text,
		DisplayName: displayName(msg.Sender),
		IsStart:     isStart,
	}, nil
}

func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
