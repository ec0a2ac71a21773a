package survey

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ptoscano/intakebot/core/logger"
)

// Result is one completed questionnaire handed to the archive.
type Result struct {
	UserID      int64
	DisplayName string
	Answers     []Answer
}

// Archiver persists completed questionnaires. Implementations must treat
// failures as non-fatal; the dialog never depends on the archive.
type Archiver interface {
	SaveResponse(ctx context.Context, res Result) error
}

// Handler drives the dialog for one inbound message: load session, advance
// the machine, sweep old messages, send, persist. It is safe for
// concurrent use as long as the underlying Store is.
type Handler struct {
	store   Store
	gw      Gateway
	cleaner *Cleaner
	archive Archiver
}

// HandlerOptions configures optional behavior.
type HandlerOptions struct {
	// DisableCleanup leaves all previous prompts and replies in the chat.
	DisableCleanup bool
	// Archive receives completed runs. Nil disables archiving.
	Archive Archiver
}

func NewHandler(store Store, gw Gateway, opts HandlerOptions) *Handler {
	return &Handler{
		store:   store,
		gw:      gw,
		cleaner: NewCleaner(gw, !opts.DisableCleanup),
		archive: opts.Archive,
	}
}

// Handle processes one decoded message end to end. A returned error means
// the turn could not complete (store or send failure); the caller logs it
// and moves on, it never crashes the bot.
func (h *Handler) Handle(ctx context.Context, ev Inbound) error {
	prev, found, err := h.store.Get(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	tr := Advance(prev, ev)

	switch tr.Action {
	case ActionNone:
		// Unsolicited text from a user with no run in flight.
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "survey", "message.ignored",
				slog.Int64("user_id", ev.UserID))
		}
		return nil

	case ActionAsk:
		if ev.IsStart && found {
			logger.Info(ctx, "survey", "survey.restarted",
				slog.Int64("user_id", ev.UserID),
				slog.Int("discarded_answers", len(prev.Answers)))
		}
		return h.ask(ctx, prev, tr, ev)

	case ActionFinish:
		return h.finish(ctx, prev, tr, ev)
	}
	return nil
}

func (h *Handler) ask(ctx context.Context, prev *Session, tr Transition, ev Inbound) error {
	if prev != nil {
		h.cleaner.Sweep(ctx, ev.ChatID, prev.PendingMessageIDs)
	}

	sess := tr.Session
	promptID, sendErr := h.gw.Send(ctx, ev.ChatID, tr.Ask.Prompt, KeyboardYesNo)
	if sendErr != nil {
		logger.Error(ctx, "survey", "question.send_failed",
			slog.Int64("user_id", ev.UserID),
			slog.Int("step", sess.Step),
			slog.String("error", sendErr.Error()))
		// The turn still advanced; keep the reply id so a later sweep
		// can remove it once the dialog recovers.
		sess.PendingMessageIDs = []int{ev.MessageID}
	} else {
		sess.PendingMessageIDs = []int{promptID, ev.MessageID}
	}

	if err := h.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	if sendErr == nil {
		logger.Info(ctx, "survey", "question.sent",
			slog.Int64("user_id", ev.UserID),
			slog.Int("step", sess.Step),
			slog.String("question", string(tr.Ask.Key)))
	}
	return sendErr
}

func (h *Handler) finish(ctx context.Context, prev *Session, tr Transition, ev Inbound) error {
	targets := append(append([]int(nil), prev.PendingMessageIDs...), ev.MessageID)
	h.cleaner.Sweep(ctx, ev.ChatID, targets)

	var sendErr error
	if _, err := h.gw.Send(ctx, ev.ChatID, ClosingText, KeyboardRemove); err != nil {
		sendErr = err
		logger.Error(ctx, "survey", "closing.send_failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("error", err.Error()))
	}
	summary := FormatSummary(ev.DisplayName, tr.Completed)
	if _, err := h.gw.Send(ctx, ev.ChatID, summary, KeyboardNone); err != nil {
		sendErr = err
		logger.Error(ctx, "survey", "summary.send_failed",
			slog.Int64("user_id", ev.UserID),
			slog.String("error", err.Error()))
	}

	if err := h.store.Clear(ctx, ev.UserID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	if h.archive != nil {
		res := Result{UserID: ev.UserID, DisplayName: ev.DisplayName, Answers: tr.Completed}
		if err := h.archive.SaveResponse(ctx, res); err != nil {
			logger.Error(ctx, "survey", "archive.failed",
				slog.Int64("user_id", ev.UserID),
				slog.String("error", err.Error()))
		}
	}

	logger.Info(ctx, "survey", "survey.done",
		slog.Int64("user_id", ev.UserID),
		slog.Int("answers", len(tr.Completed)))
	return sendErr
}
