package survey

import "context"

// KeyboardHint tells the gateway which reply markup to attach.
type KeyboardHint int

const (
	KeyboardNone KeyboardHint = iota
	// KeyboardYesNo shows the Si/No reply keyboard.
	KeyboardYesNo
	// KeyboardRemove clears any reply keyboard on the client.
	KeyboardRemove
)

// Gateway abstracts the outbound messaging operations the dialog needs.
// Send returns the id of the delivered message so it can be swept later.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, kb KeyboardHint) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}
