package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemStore is an in-memory ConversationStore with the same ordering and
// filtering semantics as SQLStore. It backs tests and dev mode (no
// DATABASE_URL configured); messages do not survive a restart.
type MemStore struct {
	mu   sync.Mutex
	msgs []ChatMessage
	seq  []int64 // insertion order, tie-break for equal timestamps
	next int64
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Insert(ctx context.Context, msg ChatMessage) (ChatMessage, error) {
	msg.ID = ulid.Make().String()
	msg.Time = time.Now().UnixMilli()
	msg.Read = false

	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.seq = append(s.seq, s.next)
	s.next++
	s.mu.Unlock()
	return msg, nil
}

// snapshotDesc copies matching messages sorted newest first.
func (s *MemStore) snapshotDesc(match func(ChatMessage) bool) []ChatMessage {
	s.mu.Lock()
	type entry struct {
		msg ChatMessage
		seq int64
	}
	var entries []entry
	for i, m := range s.msgs {
		if match(m) {
			entries = append(entries, entry{m, s.seq[i]})
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].msg.Time != entries[j].msg.Time {
			return entries[i].msg.Time > entries[j].msg.Time
		}
		return entries[i].seq > entries[j].seq
	})
	out := make([]ChatMessage, len(entries))
	for i, e := range entries {
		out[i] = e.msg
	}
	return out
}

func pairMatch(a, b string) func(ChatMessage) bool {
	return func(m ChatMessage) bool {
		return (m.From == a && m.To == b) || (m.From == b && m.To == a)
	}
}

func (s *MemStore) Query(ctx context.Context, userA, userB string, sinceTs int64, skip, limit int) ([]ChatMessage, error) {
	match := func(m ChatMessage) bool {
		if m.Time <= sinceTs {
			return false
		}
		if userB != "" {
			return pairMatch(userA, userB)(m)
		}
		return m.From == userA || m.To == userA
	}
	all := s.snapshotDesc(match)
	if skip >= len(all) {
		return nil, nil
	}
	all = all[skip:]
	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemStore) UniqueCounterparties(ctx context.Context, userID string) ([]string, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sentSet := make(map[string]bool)
	recvSet := make(map[string]bool)
	var sentTo, receivedFrom []string
	for _, m := range s.msgs {
		if m.From != userID && m.To != userID {
			continue
		}
		if m.To != userID && !sentSet[m.To] {
			sentSet[m.To] = true
			sentTo = append(sentTo, m.To)
		}
		if m.From != userID && !recvSet[m.From] {
			recvSet[m.From] = true
			receivedFrom = append(receivedFrom, m.From)
		}
	}
	return sentTo, receivedFrom, nil
}

func (s *MemStore) LastMessage(ctx context.Context, userA, userB string) (ChatMessage, error) {
	all := s.snapshotDesc(pairMatch(userA, userB))
	if len(all) == 0 {
		return ChatMessage{}, nil
	}
	return all[0], nil
}

func (s *MemStore) LastFromMessage(ctx context.Context, userID string) (ChatMessage, error) {
	all := s.snapshotDesc(func(m ChatMessage) bool { return m.From == userID })
	if len(all) == 0 {
		return ChatMessage{}, nil
	}
	return all[0], nil
}

func (s *MemStore) CountUnread(ctx context.Context, from, to string, sinceTs int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, m := range s.msgs {
		if m.To != to || m.Read || m.Time <= sinceTs {
			continue
		}
		if from != "" && m.From != from {
			continue
		}
		n++
	}
	return n, nil
}

func (s *MemStore) MarkRead(ctx context.Context, from, to string, sinceTs int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := 0
	for i, m := range s.msgs {
		if m.From == from && m.To == to && m.Time >= sinceTs {
			matched++
			s.msgs[i].Read = true
		}
	}
	return matched, nil
}
