package chat

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEnvelopeNormalizesCoreFields(t *testing.T) {
	e := NewEnvelope("chat-message", map[string]any{
		"to":      "alice",
		"from":    "bob",
		"message": "hi there",
		"time":    float64(1700000000000),
	})
	if e.Type != "chat-message" {
		t.Errorf("Type = %q, want chat-message", e.Type)
	}
	if e.To != "alice" || e.From != "bob" || e.Message != "hi there" {
		t.Errorf("core fields not copied: %+v", e)
	}
	if e.Time != 1700000000000 {
		t.Errorf("Time = %d, want 1700000000000", e.Time)
	}
	if e.Data != nil {
		t.Errorf("Data = %v, want nil", e.Data)
	}
}

func TestNewEnvelopeShortTypeFallsBack(t *testing.T) {
	for _, raw := range []string{"", "ack", "abc"} {
		e := NewEnvelope(raw, nil)
		if e.Type != "message" {
			t.Errorf("NewEnvelope(%q).Type = %q, want message", raw, e.Type)
		}
	}
	if e := NewEnvelope("chat", nil); e.Type != "chat" {
		t.Errorf("four-char type dropped: got %q", e.Type)
	}
}

func TestNewEnvelopeSkipsMistypedFields(t *testing.T) {
	e := NewEnvelope("chat-message", map[string]any{
		"to":      42,
		"message": []any{"not", "a", "string"},
		"time":    "soon",
	})
	if e.To != "" || e.Message != "" || e.Time != 0 {
		t.Errorf("mistyped fields should stay zero, got %+v", e)
	}
}

func TestNewEnvelopeFoldsExtrasIntoData(t *testing.T) {
	e := NewEnvelope("info-request", map[string]any{
		"from":  "bob",
		"start": float64(20),
		"limit": float64(10),
	})
	fields, ok := e.Data.(map[string]any)
	if !ok {
		t.Fatalf("Data = %T, want map", e.Data)
	}
	if fields["start"] != float64(20) || fields["limit"] != float64(10) {
		t.Errorf("extras not folded: %v", fields)
	}
	if _, leaked := fields["from"]; leaked {
		t.Error("core field leaked into Data")
	}
}

func TestNewEnvelopeExtrasReplaceExplicitData(t *testing.T) {
	e := NewEnvelope("info-request", map[string]any{
		"data":  map[string]any{"kept": true},
		"start": float64(5),
	})
	fields, _ := e.Data.(map[string]any)
	if _, ok := fields["start"]; !ok {
		t.Errorf("extras should win over explicit data, got %v", e.Data)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	e, err := DecodeEnvelope([]byte(`{"type":"is-typing","to":"alice","from":"bob"}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %v", err)
	}
	if e.Type != string(KindIsTyping) || e.To != "alice" {
		t.Errorf("decoded %+v", e)
	}

	if _, err := DecodeEnvelope([]byte(`{"type":`)); err == nil {
		t.Error("malformed JSON should fail")
	}
	if _, err := DecodeEnvelope([]byte(`[1,2,3]`)); err == nil {
		t.Error("non-object frame should fail")
	}
}

func TestIsMessageKind(t *testing.T) {
	tests := []struct {
		kind string
		want bool
	}{
		{"chat", true},
		{"message", true},
		{"hi", true},
		{"", true},
		{"chat-message", false},
		{"is-typing", false},
		{"delivery-ack", false},
	}
	for _, tt := range tests {
		e := &Envelope{Type: tt.kind}
		if got := e.IsMessageKind(); got != tt.want {
			t.Errorf("IsMessageKind(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestEnvelopeMarshalOmitsEmpty(t *testing.T) {
	raw, err := json.Marshal(&Envelope{Type: "user-info", From: "bob", Time: -5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	if strings.Contains(s, `"to"`) || strings.Contains(s, `"message"`) || strings.Contains(s, `"data"`) {
		t.Errorf("empty fields not omitted: %s", s)
	}
	if strings.Contains(s, `"time"`) {
		t.Errorf("negative time should be omitted: %s", s)
	}
}

func TestDataInt(t *testing.T) {
	e := NewEnvelope("info-request", map[string]any{
		"start": float64(20),
		"limit": "25",
		"junk":  "nope",
	})
	if got := e.DataInt("start", 0); got != 20 {
		t.Errorf("start = %d, want 20", got)
	}
	if got := e.DataInt("limit", 0); got != 25 {
		t.Errorf("string limit = %d, want 25", got)
	}
	if got := e.DataInt("junk", 7); got != 7 {
		t.Errorf("non-numeric should default, got %d", got)
	}
	if got := e.DataInt("missing", 100); got != 100 {
		t.Errorf("missing key should default, got %d", got)
	}
	if got := (&Envelope{}).DataInt("start", 3); got != 3 {
		t.Errorf("nil Data should default, got %d", got)
	}
}
