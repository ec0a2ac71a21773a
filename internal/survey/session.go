package survey

import "context"

// Answer is one recorded reply, kept verbatim as the user typed it.
type Answer struct {
	Key  QuestionKey `json:"key"`
	Text string      `json:"text"`
}

// Session tracks one user's progress through the questionnaire. It exists
// only while a run is in flight; completion or /start replaces it.
type Session struct {
	UserID      int64    `json:"user_id"`
	ChatID      int64    `json:"chat_id"`
	DisplayName string   `json:"display_name"`
	Step        int      `json:"step"`
	Answers     []Answer `json:"answers"`

	// PendingMessageIDs holds the ids of the last sent prompt and the
	// reply that triggered it, the pair swept before the next prompt.
	PendingMessageIDs []int `json:"pending_message_ids"`
}

// Store is the session persistence boundary. Get reports absence via the
// second return rather than an error.
type Store interface {
	Get(ctx context.Context, userID int64) (*Session, bool, error)
	Put(ctx context.Context, sess *Session) error
	Clear(ctx context.Context, userID int64) error
}
