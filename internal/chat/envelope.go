package chat

import "encoding/json"

// defaultKind is assumed when a payload carries no usable type. Legacy
// clients still send it explicitly.
const defaultKind = "message"

// Envelope is the canonical normalized notification exchanged between server
// and client. Optional fields are omitted on the wire when empty; receivers
// must treat absence as "not provided".
type Envelope struct {
	Type    string
	To      string
	From    string
	Message string
	Time    int64
	Data    any
}

// NewEnvelope normalizes an arbitrary payload shape into an Envelope. The
// five canonical fields (to, from, message, time, data) are copied only when
// they satisfy their expected type; every unrecognized top-level field is
// folded into Data so forward-compatible extras survive the trip.
func NewEnvelope(rawType string, payload any) *Envelope {
	e := &Envelope{Type: defaultKind}
	if len(rawType) > 3 {
		e.Type = rawType
	}
	fields, ok := payload.(map[string]any)
	if !ok {
		return e
	}
	extra := make(map[string]any)
	for key, value := range fields {
		switch key {
		case "to", "from", "message":
			s, isStr := value.(string)
			if !isStr {
				continue
			}
			switch key {
			case "to":
				e.To = s
			case "from":
				e.From = s
			case "message":
				e.Message = s
			}
		case "time":
			if n, isNum := asNumber(value); isNum {
				e.Time = int64(n)
			}
		case "data":
			if value != nil {
				e.Data = value
			}
		default:
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		e.Data = extra
	}
	return e
}

// DecodeEnvelope normalizes a raw inbound frame.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	rawType, _ := fields["type"].(string)
	delete(fields, "type")
	return NewEnvelope(rawType, fields), nil
}

// IsMessageKind reports whether the envelope carries a chat message: the
// chat-send kind, the legacy default, or a type too short to be anything else.
func (e *Envelope) IsMessageKind() bool {
	if e.Type == string(KindChat) || e.Type == defaultKind {
		return true
	}
	return len(e.Type) <= 3
}

// MarshalJSON drops empty optional fields to keep wire payloads compact.
// A non-positive Time means "not provided" and is omitted.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	out := struct {
		Type    string `json:"type"`
		To      string `json:"to,omitempty"`
		From    string `json:"from,omitempty"`
		Message string `json:"message,omitempty"`
		Time    int64  `json:"time,omitempty"`
		Data    any    `json:"data,omitempty"`
	}{e.Type, e.To, e.From, e.Message, e.Time, e.Data}
	if out.Time < 0 {
		out.Time = 0
	}
	return json.Marshal(out)
}

// DataInt extracts a numeric field that normalization folded into Data,
// tolerating clients that send numbers as strings.
func (e *Envelope) DataInt(key string, def int) int {
	fields, ok := e.Data.(map[string]any)
	if !ok {
		return def
	}
	v, ok := fields[key]
	if !ok {
		return def
	}
	if n, isNum := asNumber(v); isNum {
		return int(n)
	}
	if s, isStr := v.(string); isStr {
		return smartCastInt(s, def)
	}
	return def
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
