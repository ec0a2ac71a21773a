package survey

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type sentMessage struct {
	ChatID int64
	Text   string
	KB     KeyboardHint
	ID     int
}

type deletedMessage struct {
	ChatID    int64
	MessageID int
}

// fakeGateway records output and hands out sequential message ids.
type fakeGateway struct {
	mu        sync.Mutex
	nextID    int
	sent      []sentMessage
	deleted   []deletedMessage
	sendErr   error
	deleteErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100}
}

func (g *fakeGateway) Send(_ context.Context, chatID int64, text string, kb KeyboardHint) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return 0, g.sendErr
	}
	g.nextID++
	g.sent = append(g.sent, sentMessage{ChatID: chatID, Text: text, KB: kb, ID: g.nextID})
	return g.nextID, nil
}

func (g *fakeGateway) Delete(_ context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, deletedMessage{ChatID: chatID, MessageID: messageID})
	return g.deleteErr
}

func (g *fakeGateway) sentTexts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	texts := make([]string, len(g.sent))
	for i, m := range g.sent {
		texts[i] = m.Text
	}
	return texts
}

type fakeArchive struct {
	mu      sync.Mutex
	saved   []Result
	saveErr error
}

func (a *fakeArchive) SaveResponse(_ context.Context, res Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saveErr != nil {
		return a.saveErr
	}
	a.saved = append(a.saved, res)
	return nil
}

func newTestHandler(opts HandlerOptions) (*Handler, *fakeGateway, *MemoryStore) {
	gw := newFakeGateway()
	store := NewMemoryStore()
	return NewHandler(store, gw, opts), gw, store
}

// runSurvey feeds /start plus the given replies, numbering inbound messages
// from 1 upward.
func runSurvey(t *testing.T, h *Handler, userID int64, replies ...string) {
	t.Helper()
	ctx := context.Background()
	if err := h.Handle(ctx, startEvent(userID)); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, reply := range replies {
		if err := h.Handle(ctx, answerEvent(userID, 2+i, reply)); err != nil {
			t.Fatalf("reply %d (%q): %v", i, reply, err)
		}
	}
}

func TestHandlerFullRun(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	runSurvey(t, h, 7, "Si", "No", "Si", "No")

	texts := gw.sentTexts()
	if len(texts) != 6 {
		t.Fatalf("sent %d messages, want 6 (4 prompts + closing + summary): %q", len(texts), texts)
	}
	for i, q := range Questions() {
		if texts[i] != q.Prompt {
			t.Fatalf("message %d = %q, want %q", i, texts[i], q.Prompt)
		}
	}
	if texts[4] != ClosingText {
		t.Fatalf("closing = %q", texts[4])
	}
	for _, want := range []string{"Mario Rossi", "ZEN: Si", "Trade Republic: No", "Bitsa: Si", "BBVA: No"} {
		if !strings.Contains(texts[5], want) {
			t.Fatalf("summary %q missing %q", texts[5], want)
		}
	}

	if gw.sent[4].KB != KeyboardRemove {
		t.Fatalf("closing keyboard = %v, want KeyboardRemove", gw.sent[4].KB)
	}
	for i := 0; i < 4; i++ {
		if gw.sent[i].KB != KeyboardYesNo {
			t.Fatalf("prompt %d keyboard = %v, want KeyboardYesNo", i, gw.sent[i].KB)
		}
	}

	if _, ok, _ := store.Get(context.Background(), 7); ok {
		t.Fatal("session still present after completion")
	}
}

func TestHandlerCleanupTargets(t *testing.T) {
	h, gw, _ := newTestHandler(HandlerOptions{})
	ctx := context.Background()

	if err := h.Handle(ctx, startEvent(7)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(gw.deleted) != 0 {
		t.Fatalf("start deleted %d messages, want 0", len(gw.deleted))
	}

	// Each of the first three answers sweeps the previous prompt and the
	// message that triggered it.
	for i := 0; i < 3; i++ {
		before := len(gw.deleted)
		if err := h.Handle(ctx, answerEvent(7, 2+i, "Si")); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
		if got := len(gw.deleted) - before; got != 2 {
			t.Fatalf("answer %d targeted %d deletions, want 2", i, got)
		}
	}

	// The final answer sweeps the last pair plus the reply itself.
	before := len(gw.deleted)
	if err := h.Handle(ctx, answerEvent(7, 5, "No")); err != nil {
		t.Fatalf("final answer: %v", err)
	}
	if got := len(gw.deleted) - before; got != 3 {
		t.Fatalf("final answer targeted %d deletions, want 3", got)
	}
}

func TestHandlerCleanupDisabled(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{DisableCleanup: true})
	runSurvey(t, h, 7, "Si", "No", "Si", "No")

	if len(gw.deleted) != 0 {
		t.Fatalf("deleted %d messages with cleanup disabled", len(gw.deleted))
	}
	if len(gw.sent) != 6 {
		t.Fatalf("sent %d messages, want 6", len(gw.sent))
	}
	if _, ok, _ := store.Get(context.Background(), 7); ok {
		t.Fatal("session still present after completion")
	}
}

func TestHandlerDeleteFailuresAreHarmless(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	gw.deleteErr = errors.New("message to delete not found")

	runSurvey(t, h, 7, "Si", "No", "Si", "No")

	if len(gw.sent) != 6 {
		t.Fatalf("sent %d messages, want 6", len(gw.sent))
	}
	if _, ok, _ := store.Get(context.Background(), 7); ok {
		t.Fatal("session still present after completion")
	}
}

func TestHandlerIgnoresTextWithoutSession(t *testing.T) {
	h, gw, _ := newTestHandler(HandlerOptions{})
	if err := h.Handle(context.Background(), answerEvent(7, 1, "ciao")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(gw.sent) != 0 || len(gw.deleted) != 0 {
		t.Fatalf("unsolicited text caused side effects: sent=%d deleted=%d", len(gw.sent), len(gw.deleted))
	}
}

func TestHandlerRestartDiscardsProgress(t *testing.T) {
	h, gw, _ := newTestHandler(HandlerOptions{})
	ctx := context.Background()

	if err := h.Handle(ctx, startEvent(7)); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Handle(ctx, answerEvent(7, 2, "Si")); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if err := h.Handle(ctx, startEvent(7)); err != nil {
		t.Fatalf("restart: %v", err)
	}

	texts := gw.sentTexts()
	if last := texts[len(texts)-1]; last != Questions()[0].Prompt {
		t.Fatalf("restart asked %q, want first question", last)
	}

	// Complete the run with fresh answers; the summary must reflect only
	// the answers given after the restart.
	for i, reply := range []string{"No", "No", "No", "No"} {
		if err := h.Handle(ctx, answerEvent(7, 10+i, reply)); err != nil {
			t.Fatalf("post-restart reply %d: %v", i, err)
		}
	}
	texts = gw.sentTexts()
	summary := texts[len(texts)-1]
	if strings.Contains(summary, "ZEN: Si") {
		t.Fatalf("summary kept pre-restart answer: %q", summary)
	}
	if !strings.Contains(summary, "ZEN: No") {
		t.Fatalf("summary missing post-restart answer: %q", summary)
	}
}

func TestHandlerKeepsCommandLookingAnswers(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	ctx := context.Background()

	if err := h.Handle(ctx, startEvent(7)); err != nil {
		t.Fatalf("start: %v", err)
	}
	// "/startled" arrives on the text route, so it is an answer, not a
	// restart.
	if err := h.Handle(ctx, answerEvent(7, 2, "/startled")); err != nil {
		t.Fatalf("answer: %v", err)
	}

	sess, ok, _ := store.Get(ctx, 7)
	if !ok || sess.Step != 1 {
		t.Fatalf("session after command-looking answer: ok=%v %+v", ok, sess)
	}
	if sess.Answers[0].Text != "/startled" {
		t.Fatalf("recorded %q, want it verbatim", sess.Answers[0].Text)
	}
	texts := gw.sentTexts()
	if last := texts[len(texts)-1]; last != Questions()[1].Prompt {
		t.Fatalf("sent %q, want the second question", last)
	}
}

func TestHandlerIsolatesUsers(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	ctx := context.Background()

	if err := h.Handle(ctx, startEvent(1)); err != nil {
		t.Fatalf("user 1 start: %v", err)
	}
	if err := h.Handle(ctx, startEvent(2)); err != nil {
		t.Fatalf("user 2 start: %v", err)
	}
	if err := h.Handle(ctx, answerEvent(1, 2, "Si")); err != nil {
		t.Fatalf("user 1 answer: %v", err)
	}

	s1, ok, _ := store.Get(ctx, 1)
	if !ok || s1.Step != 1 {
		t.Fatalf("user 1 session: ok=%v %+v", ok, s1)
	}
	s2, ok, _ := store.Get(ctx, 2)
	if !ok || s2.Step != 0 || len(s2.Answers) != 0 {
		t.Fatalf("user 1's answer leaked into user 2: %+v", s2)
	}

	for _, m := range gw.sent {
		if m.ChatID != 1 && m.ChatID != 2 {
			t.Fatalf("message sent to unexpected chat %d", m.ChatID)
		}
	}
}

func TestHandlerSendFailureKeepsSession(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	ctx := context.Background()

	if err := h.Handle(ctx, startEvent(7)); err != nil {
		t.Fatalf("start: %v", err)
	}

	gw.sendErr = errors.New("bad gateway")
	if err := h.Handle(ctx, answerEvent(7, 2, "Si")); err == nil {
		t.Fatal("expected send failure to surface")
	}

	sess, ok, _ := store.Get(ctx, 7)
	if !ok {
		t.Fatal("session dropped on send failure")
	}
	if sess.Step != 1 || sess.Answers[0].Text != "Si" {
		t.Fatalf("session after failed send: %+v", sess)
	}
}

func TestHandlerArchivesCompletedRuns(t *testing.T) {
	archive := &fakeArchive{}
	gw := newFakeGateway()
	store := NewMemoryStore()
	h := NewHandler(store, gw, HandlerOptions{Archive: archive})

	runSurvey(t, h, 7, "Si", "No", "Si", "No")

	if len(archive.saved) != 1 {
		t.Fatalf("archived %d results, want 1", len(archive.saved))
	}
	res := archive.saved[0]
	if res.UserID != 7 || res.DisplayName != "Mario Rossi" || len(res.Answers) != 4 {
		t.Fatalf("archived result: %+v", res)
	}
}

func TestHandlerArchiveFailureDoesNotBreakRun(t *testing.T) {
	archive := &fakeArchive{saveErr: errors.New("db down")}
	gw := newFakeGateway()
	store := NewMemoryStore()
	h := NewHandler(store, gw, HandlerOptions{Archive: archive})

	runSurvey(t, h, 7, "Si", "No", "Si", "No")

	if len(gw.sent) != 6 {
		t.Fatalf("sent %d messages, want 6", len(gw.sent))
	}
	if _, ok, _ := store.Get(context.Background(), 7); ok {
		t.Fatal("session still present after completion")
	}
}
