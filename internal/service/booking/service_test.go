package booking

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cerita/nobat/internal/model"
)

func TestResolveCursor(t *testing.T) {
	got, err := ResolveCursor("1402-01-01", "")
	if err != nil {
		t.Fatalf("ResolveCursor: %v", err)
	}
	if got != "1402-01-01" {
		t.Fatalf("got %q", got)
	}

	next, err := ResolveCursor("1402-01-01", "next")
	if err != nil {
		t.Fatalf("ResolveCursor next: %v", err)
	}
	if next != "1402-01-02" {
		t.Fatalf("next %q", next)
	}

	prev, err := ResolveCursor("1402-01-01", "prev")
	if err != nil {
		t.Fatalf("ResolveCursor prev: %v", err)
	}
	if prev != "1401-12-29" {
		t.Fatalf("prev %q", prev)
	}
}

func TestResolveCursorEmptyMeansToday(t *testing.T) {
	got, err := ResolveCursor("", "")
	if err != nil {
		t.Fatalf("ResolveCursor: %v", err)
	}
	if got != model.TodayCursor() {
		t.Fatalf("got %q, want today", got)
	}
}

func TestCommentSMSEvent(t *testing.T) {
	turn := model.Turn{
		ID:       "01H00000000000000000000001",
		RefName:  "رضا",
		RefPhone: "0912xxxxxxx",
		Slot:     model.Slot{Date: "1402-05-12", Time: "10:30"},
	}

	ev, err := commentSMSEvent(turn)
	if err != nil {
		t.Fatalf("commentSMSEvent: %v", err)
	}
	if ev.Aggregate != "turn" || ev.AggregateID != turn.ID {
		t.Fatalf("aggregate %q/%q", ev.Aggregate, ev.AggregateID)
	}
	if ev.Topic != CommentSMSTopic {
		t.Fatalf("topic %q", ev.Topic)
	}

	var env model.SurveyEnvelope
	if err := json.Unmarshal(ev.Payload, &env); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if env.TurnID != turn.ID || env.Phone != turn.RefPhone || env.RefName != turn.RefName {
		t.Fatalf("envelope %+v", env)
	}
	if env.Slot != "1402-05-12 10:30" {
		t.Fatalf("slot %q", env.Slot)
	}
}

func TestResolveCursorErrors(t *testing.T) {
	if _, err := ResolveCursor("1402-01-01", "sideways"); !errors.Is(err, ErrBadDirection) {
		t.Fatalf("direction error %v", err)
	}
	if _, err := ResolveCursor("not-a-day", ""); !errors.Is(err, ErrBadCursor) {
		t.Fatalf("cursor error %v", err)
	}
	if _, err := ResolveCursor("not-a-day", "next"); !errors.Is(err, ErrBadCursor) {
		t.Fatalf("cursor error %v", err)
	}
}
