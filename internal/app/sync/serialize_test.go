package sync_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/greencrew/internal/app/store"
	"github.com/dalemusser/greencrew/internal/app/sync"
	"github.com/dalemusser/greencrew/internal/domain/models"
)

var errTest = errors.New("boom")

func TestStringifyDatesRecursive(t *testing.T) {
	created := time.Date(2023, 9, 16, 8, 30, 0, 0, time.UTC)

	in := store.Document{
		"name":    "drop",
		"created": created,
		"count":   3,
		"nested": map[string]any{
			"when": created,
			"deep": map[string]any{"again": created},
		},
		"items": []any{created, "text", map[string]any{"at": created}},
	}

	out := sync.StringifyDates(in)

	want := created.Format(time.RFC3339Nano)
	if out["created"] != want {
		t.Errorf("created = %v, want %q", out["created"], want)
	}
	nested := out["nested"].(store.Document)
	if nested["when"] != want {
		t.Errorf("nested.when = %v, want %q", nested["when"], want)
	}
	deep := nested["deep"].(store.Document)
	if deep["again"] != want {
		t.Errorf("nested.deep.again = %v, want %q", deep["again"], want)
	}
	items := out["items"].([]any)
	if items[0] != want || items[1] != "text" {
		t.Errorf("items = %v", items)
	}
	if at := items[2].(store.Document)["at"]; at != want {
		t.Errorf("items[2].at = %v, want %q", at, want)
	}

	// Original untouched.
	if _, ok := in["created"].(time.Time); !ok {
		t.Error("StringifyDates mutated its input")
	}
	// Non-date scalars pass through.
	if out["count"] != 3 {
		t.Errorf("count = %v, want 3", out["count"])
	}
}

func TestStringifyDatesNil(t *testing.T) {
	if got := sync.StringifyDates(nil); got != nil {
		t.Errorf("StringifyDates(nil) = %v, want nil", got)
	}
}

func TestDeconstructMessageRoundTrip(t *testing.T) {
	created := time.Date(2023, 9, 16, 8, 30, 0, 0, time.UTC)
	msg := models.Message{
		ID:      "m1",
		Text:    "pickup at noon",
		Sender:  models.User{UID: "u1", DisplayName: "Ada"},
		TeamID:  "t1",
		Type:    models.MessageTypeTeamMessage,
		Active:  true,
		Created: &created,
	}

	doc, err := sync.Deconstruct(msg)
	if err != nil {
		t.Fatalf("Deconstruct: %v", err)
	}

	// Date became text, nested sender became a plain map.
	if _, ok := doc["created"].(string); !ok {
		t.Errorf("created = %T, want string", doc["created"])
	}
	sender, ok := doc["sender"].(map[string]any)
	if !ok {
		t.Fatalf("sender = %T, want map", doc["sender"])
	}
	if sender["uid"] != "u1" {
		t.Errorf("sender.uid = %v", sender["uid"])
	}

	// And the entity constructor recovers the same message.
	back := models.MessageFromDoc(doc)
	if back.ID != msg.ID || back.Text != msg.Text || back.TeamID != msg.TeamID {
		t.Errorf("round trip = %+v, want %+v", back, msg)
	}
	if back.Created == nil || !back.Created.Equal(created) {
		t.Errorf("round-trip created = %v, want %v", back.Created, created)
	}
}

func TestDeconstructRejectsUnserializable(t *testing.T) {
	if _, err := sync.Deconstruct(map[string]any{"fn": func() {}}); err == nil {
		t.Error("Deconstruct accepted a function value")
	}
}
