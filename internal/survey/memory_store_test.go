package survey

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, ok, err := store.Get(ctx, 7); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	sess := &Session{
		UserID:            7,
		ChatID:            7,
		Step:              1,
		Answers:           []Answer{{Key: QuestionZEN, Text: "Si"}},
		PendingMessageIDs: []int{100, 101},
	}
	if err := store.Put(ctx, sess); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Step != 1 || len(got.Answers) != 1 || len(got.PendingMessageIDs) != 2 {
		t.Fatalf("got %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Answers[0].Text = "No"
	got.PendingMessageIDs[0] = 999
	again, _, _ := store.Get(ctx, 7)
	if again.Answers[0].Text != "Si" || again.PendingMessageIDs[0] != 100 {
		t.Fatalf("store shares memory with callers: %+v", again)
	}

	if err := store.Clear(ctx, 7); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Get(ctx, 7); ok {
		t.Fatal("session survived clear")
	}
}

func TestMemoryStoreClearMissingIsNoop(t *testing.T) {
	if err := NewMemoryStore().Clear(context.Background(), 42); err != nil {
		t.Fatalf("clear missing: %v", err)
	}
}

func TestMemoryStoreConcurrentUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			sess := &Session{
				UserID:  userID,
				ChatID:  userID,
				Answers: []Answer{{Key: QuestionZEN, Text: fmt.Sprintf("u%d", userID)}},
			}
			if err := store.Put(ctx, sess); err != nil {
				t.Errorf("put %d: %v", userID, err)
				return
			}
			got, ok, err := store.Get(ctx, userID)
			if err != nil || !ok {
				t.Errorf("get %d: ok=%v err=%v", userID, ok, err)
				return
			}
			if want := fmt.Sprintf("u%d", userID); got.Answers[0].Text != want {
				t.Errorf("user %d read %q, want %q", userID, got.Answers[0].Text, want)
			}
		}(int64(i))
	}
	wg.Wait()
}
