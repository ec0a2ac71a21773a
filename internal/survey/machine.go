package survey

// Inbound is one decoded incoming message, already stripped of transport
// details. The dialog logic never sees the bot API directly.
type Inbound struct {
	UserID      int64
	ChatID      int64
	MessageID   int
	Text        string
	DisplayName string
	IsStart     bool
}

// ActionKind says what the caller must do after a transition.
type ActionKind int

const (
	// ActionNone means the message carried no dialog meaning and is dropped.
	ActionNone ActionKind = iota
	// ActionAsk means the next question must be sent and Session persisted.
	ActionAsk
	// ActionFinish means the run completed: send closing and summary,
	// then clear the stored session.
	ActionFinish
)

// Transition is the outcome of feeding one inbound message to the dialog.
type Transition struct {
	Action ActionKind

	// Session is the state to persist after ActionAsk. Nil otherwise.
	Session *Session

	// Ask is the question to send when Action is ActionAsk.
	Ask Question

	// Completed holds all four answers when Action is ActionFinish.
	Completed []Answer
}

// Advance applies one inbound message to the current session, which may be
// nil. It is pure: the input session is never mutated, and no I/O happens
// here. /start always begins a fresh run, silently discarding any progress.
func Advance(sess *Session, ev Inbound) Transition {
	if ev.IsStart {
		next := &Session{
			UserID:      ev.UserID,
			ChatID:      ev.ChatID,
			DisplayName: ev.DisplayName,
			Step:        0,
		}
		return Transition{Action: ActionAsk, Session: next, Ask: questions[0]}
	}

	if sess == nil {
		return Transition{Action: ActionNone}
	}

	answered := questions[sess.Step]
	answers := make([]Answer, 0, len(questions))
	answers = append(answers, sess.Answers...)
	answers = append(answers, Answer{Key: answered.Key, Text: ev.Text})

	if sess.Step+1 < len(questions) {
		next := &Session{
			UserID:      sess.UserID,
			ChatID:      sess.ChatID,
			DisplayName: sess.DisplayName,
			Step:        sess.Step + 1,
			Answers:     answers,
		}
		return Transition{Action: ActionAsk, Session: next, Ask: questions[next.Step]}
	}

	return Transition{Action: ActionFinish, Completed: answers}
}
