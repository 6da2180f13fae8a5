package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// uid builds a well-formed 24-hex user id from a single marker character.
func uid(marker string) string {
	return strings.Repeat(marker, 24)
}

type fakeProfiles struct {
	byID map[string]BasicInfo
}

func profilesFor(ids ...string) *fakeProfiles {
	f := &fakeProfiles{byID: make(map[string]BasicInfo)}
	for _, id := range ids {
		f.byID[id] = BasicInfo{ID: id, NickName: "user-" + id[:4], Valid: true}
	}
	return f
}

func (f *fakeProfiles) UserInfo(ctx context.Context, id string) (BasicInfo, error) {
	info, ok := f.byID[id]
	if !ok {
		return BasicInfo{ID: id}, nil
	}
	return info, nil
}

func (f *fakeProfiles) UsersInfo(ctx context.Context, ids []string) ([]BasicInfo, error) {
	var out []BasicInfo
	for _, id := range ids {
		if info, ok := f.byID[id]; ok {
			out = append(out, info)
		}
	}
	return out, nil
}

type pushCall struct {
	from, to, preview string
}

type fakePush struct {
	mu        sync.Mutex
	calls     []pushCall
	delivered bool
	err       error
}

func (f *fakePush) SendChatRequest(ctx context.Context, from, to, preview string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{from, to, preview})
	return f.delivered, f.err
}

func (f *fakePush) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakePush) lastCall(t *testing.T) pushCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no push calls recorded")
	}
	return f.calls[len(f.calls)-1]
}

// newTestService wires a Service over MemStore with fake collaborators and
// timers short enough for tests.
func newTestService(profiles Profiles, push Push) (*Service, *MemStore) {
	store := NewMemStore()
	if profiles == nil {
		profiles = &fakeProfiles{byID: map[string]BasicInfo{}}
	}
	if push == nil {
		push = &fakePush{}
	}
	svc := NewService(store, profiles, push, zerolog.Nop())
	svc.ackDelay = 10 * time.Millisecond
	svc.infoDelay = 10 * time.Millisecond
	return svc, store
}

func newTestClient(userID string) *Client {
	return newClient(userID, nil, zerolog.Nop())
}

// seed inserts a message verbatim, keeping its timestamp.
func (s *MemStore) seed(msg ChatMessage) ChatMessage {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.seq = append(s.seq, s.next)
	s.next++
	s.mu.Unlock()
	return msg
}

// wireEnvelope mirrors the serialized envelope shape for assertions.
type wireEnvelope struct {
	Type    string          `json:"type"`
	To      string          `json:"to"`
	From    string          `json:"from"`
	Message string          `json:"message"`
	Time    int64           `json:"time"`
	Data    json.RawMessage `json:"data"`
}

func recvWire(t *testing.T, c *Client) wireEnvelope {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if !ok {
			t.Fatal("send channel closed while waiting for envelope")
		}
		var w wireEnvelope
		if err := json.Unmarshal(raw, &w); err != nil {
			t.Fatalf("bad outbound frame %q: %v", raw, err)
		}
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return wireEnvelope{}
}

// recvKind reads frames until one of the wanted kind arrives.
func recvKind(t *testing.T, c *Client, kind EventKind) wireEnvelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w := recvWire(t, c)
		if w.Type == string(kind) {
			return w
		}
	}
	t.Fatalf("no %s envelope arrived", kind)
	return wireEnvelope{}
}

func expectNoFrame(t *testing.T, c *Client, wait time.Duration) {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected outbound frame %q", raw)
		}
	case <-time.After(wait):
	}
}
