package survey

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("offline bot: %v", err)
	}
	return bot
}

func messageUpdate(userID, chatID int64, msgID int, text string) tele.Update {
	return tele.Update{Message: &tele.Message{
		ID:     msgID,
		Text:   text,
		Sender: &tele.User{ID: userID, FirstName: "Mario", LastName: "Rossi"},
		Chat:   &tele.Chat{ID: chatID},
	}}
}

func TestDecodeEvent(t *testing.T) {
	bot := offlineBot(t)

	ev, err := DecodeEvent(bot.NewContext(messageUpdate(7, 9, 42, "Si")), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Inbound{UserID: 7, ChatID: 9, MessageID: 42, Text: "Si", DisplayName: "Mario Rossi"}
	if ev != want {
		t.Fatalf("decoded %+v, want %+v", ev, want)
	}

	ev, err = DecodeEvent(bot.NewContext(messageUpdate(7, 9, 43, "/start")), true)
	if err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if !ev.IsStart {
		t.Fatal("start route did not mark the event as a start trigger")
	}
}

func TestDecodeEventStartComesFromRoute(t *testing.T) {
	// Text that merely resembles the start command arrives on the text
	// route and must decode as a plain answer.
	bot := offlineBot(t)
	for _, text := range []string{"/startled", "/starting over? no", "/start extra"} {
		ev, err := DecodeEvent(bot.NewContext(messageUpdate(7, 9, 42, text)), false)
		if err != nil {
			t.Fatalf("decode %q: %v", text, err)
		}
		if ev.IsStart {
			t.Fatalf("text %q decoded as a start trigger", text)
		}
		if ev.Text != text {
			t.Fatalf("text %q decoded as %q", text, ev.Text)
		}
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	bot := offlineBot(t)

	cases := []struct {
		name string
		upd  tele.Update
	}{
		{"no message", tele.Update{}},
		{"no sender", tele.Update{Message: &tele.Message{ID: 1, Text: "Si", Chat: &tele.Chat{ID: 9}}}},
		{"no chat", tele.Update{Message: &tele.Message{ID: 1, Text: "Si", Sender: &tele.User{ID: 7}}}},
	}
	for _, tc := range cases {
		if _, err := DecodeEvent(bot.NewContext(tc.upd), false); !errors.Is(err, ErrMalformedUpdate) {
			t.Fatalf("%s: err = %v, want ErrMalformedUpdate", tc.name, err)
		}
	}
}

func TestRouteHandlerDropsMalformedUpdate(t *testing.T) {
	h, gw, store := newTestHandler(HandlerOptions{})
	bot := offlineBot(t)

	// An undecodable delivery is acknowledged (nil error) with no side
	// effects on either endpoint.
	for _, route := range Routes(h) {
		if err := route.Handler(bot.NewContext(tele.Update{})); err != nil {
			t.Fatalf("endpoint %v returned %v", route.Endpoint, err)
		}
	}
	if len(gw.sent) != 0 || len(gw.deleted) != 0 {
		t.Fatalf("malformed update caused side effects: sent=%d deleted=%d", len(gw.sent), len(gw.deleted))
	}
	if _, ok, _ := store.Get(context.Background(), 0); ok {
		t.Fatal("malformed update created a session")
	}
}
