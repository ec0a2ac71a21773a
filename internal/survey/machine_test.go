package survey

import (
	"reflect"
	"testing"
)

func startEvent(userID int64) Inbound {
	return Inbound{
		UserID:      userID,
		ChatID:      userID,
		MessageID:   1,
		Text:        "/start",
		DisplayName: "Mario Rossi",
		IsStart:     true,
	}
}

func answerEvent(userID int64, msgID int, text string) Inbound {
	return Inbound{
		UserID:      userID,
		ChatID:      userID,
		MessageID:   msgID,
		Text:        text,
		DisplayName: "Mario Rossi",
	}
}

func TestAdvanceStartBeginsFreshRun(t *testing.T) {
	tr := Advance(nil, startEvent(7))
	if tr.Action != ActionAsk {
		t.Fatalf("action = %v, want ActionAsk", tr.Action)
	}
	if tr.Ask.Key != QuestionZEN {
		t.Fatalf("first question = %s, want %s", tr.Ask.Key, QuestionZEN)
	}
	if tr.Session == nil || tr.Session.Step != 0 || len(tr.Session.Answers) != 0 {
		t.Fatalf("unexpected fresh session: %+v", tr.Session)
	}
}

func TestAdvanceStartDiscardsProgress(t *testing.T) {
	sess := &Session{
		UserID: 7,
		ChatID: 7,
		Step:   2,
		Answers: []Answer{
			{Key: QuestionZEN, Text: "Si"},
			{Key: QuestionTradeRepublic, Text: "No"},
		},
	}

	tr := Advance(sess, startEvent(7))
	if tr.Action != ActionAsk {
		t.Fatalf("action = %v, want ActionAsk", tr.Action)
	}
	if tr.Ask.Key != QuestionZEN {
		t.Fatalf("restart question = %s, want %s", tr.Ask.Key, QuestionZEN)
	}
	if len(tr.Session.Answers) != 0 {
		t.Fatalf("restart kept %d answers, want 0", len(tr.Session.Answers))
	}
	if len(sess.Answers) != 2 {
		t.Fatalf("input session mutated: %+v", sess)
	}
}

func TestAdvanceWithoutSessionIgnoresText(t *testing.T) {
	tr := Advance(nil, answerEvent(7, 2, "ciao"))
	if tr.Action != ActionNone {
		t.Fatalf("action = %v, want ActionNone", tr.Action)
	}
}

func TestAdvanceRecordsAnswersVerbatim(t *testing.T) {
	cases := []string{"Si", "No", "", "forse 🤷", "  spaced  ", "/startled", "/help"}
	for _, text := range cases {
		sess := &Session{UserID: 7, ChatID: 7, Step: 0}
		tr := Advance(sess, answerEvent(7, 2, text))
		if tr.Action != ActionAsk {
			t.Fatalf("text %q: action = %v, want ActionAsk", text, tr.Action)
		}
		got := tr.Session.Answers[0]
		if got.Key != QuestionZEN || got.Text != text {
			t.Fatalf("text %q: recorded %+v", text, got)
		}
	}
}

func TestAdvanceFullRun(t *testing.T) {
	replies := []string{"Si", "No", "Si", "No"}

	var sess *Session
	tr := Advance(sess, startEvent(7))
	sess = tr.Session

	for i, reply := range replies {
		tr = Advance(sess, answerEvent(7, 10+i, reply))
		sess = tr.Session
	}

	if tr.Action != ActionFinish {
		t.Fatalf("final action = %v, want ActionFinish", tr.Action)
	}
	want := []Answer{
		{Key: QuestionZEN, Text: "Si"},
		{Key: QuestionTradeRepublic, Text: "No"},
		{Key: QuestionBitsa, Text: "Si"},
		{Key: QuestionBBVA, Text: "No"},
	}
	if !reflect.DeepEqual(tr.Completed, want) {
		t.Fatalf("completed = %+v, want %+v", tr.Completed, want)
	}
	if tr.Session != nil {
		t.Fatalf("finish carried a session: %+v", tr.Session)
	}
}

func TestAdvanceAsksQuestionsInOrder(t *testing.T) {
	wantOrder := []QuestionKey{QuestionZEN, QuestionTradeRepublic, QuestionBitsa, QuestionBBVA}

	tr := Advance(nil, startEvent(7))
	if tr.Ask.Key != wantOrder[0] {
		t.Fatalf("question 0 = %s, want %s", tr.Ask.Key, wantOrder[0])
	}
	sess := tr.Session
	for i := 1; i < len(wantOrder); i++ {
		tr = Advance(sess, answerEvent(7, 10+i, "Si"))
		if tr.Ask.Key != wantOrder[i] {
			t.Fatalf("question %d = %s, want %s", i, tr.Ask.Key, wantOrder[i])
		}
		sess = tr.Session
	}
}
