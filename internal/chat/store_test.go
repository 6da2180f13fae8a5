package chat

import (
	"context"
	"testing"
)

func seedConversation(s *MemStore, from, to string, times ...int64) {
	for _, ts := range times {
		s.seed(ChatMessage{From: from, To: to, Message: "m", Time: ts})
	}
}

func times(msgs []ChatMessage) []int64 {
	out := make([]int64, len(msgs))
	for i, m := range msgs {
		out[i] = m.Time
	}
	return out
}

func TestMemStoreInsertAssignsIdentity(t *testing.T) {
	s := NewMemStore()
	stored, err := s.Insert(context.Background(), ChatMessage{
		From: uid("a"), To: uid("b"), Message: "hello", Time: 1, Read: true,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if stored.ID == "" {
		t.Error("Insert should assign an id")
	}
	if stored.Time <= 1 {
		t.Error("Insert should stamp server time")
	}
	if stored.Read {
		t.Error("Insert should clear the read flag")
	}
}

func TestMemStoreQueryNewestFirst(t *testing.T) {
	s := NewMemStore()
	a, b, c := uid("a"), uid("b"), uid("c")
	seedConversation(s, a, b, 100, 300)
	seedConversation(s, b, a, 200)
	seedConversation(s, a, c, 400) // different pair

	msgs, err := s.Query(context.Background(), a, b, NoTimeBound, 0, 50)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	got := times(msgs)
	want := []int64{300, 200, 100}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMemStoreQueryAnyCounterparty(t *testing.T) {
	s := NewMemStore()
	a, b, c, d := uid("a"), uid("b"), uid("c"), uid("d")
	seedConversation(s, a, b, 100)
	seedConversation(s, c, a, 200)
	seedConversation(s, c, d, 300) // not a's traffic

	msgs, _ := s.Query(context.Background(), a, "", NoTimeBound, 0, 50)
	if len(msgs) != 2 {
		t.Fatalf("empty counterparty should match all of a's traffic, got %d", len(msgs))
	}
}

func TestMemStoreQuerySinceTs(t *testing.T) {
	s := NewMemStore()
	a, b := uid("a"), uid("b")
	seedConversation(s, a, b, 100, 200, 300)

	msgs, _ := s.Query(context.Background(), a, b, 200, 0, 50)
	if len(msgs) != 1 || msgs[0].Time != 300 {
		t.Fatalf("sinceTs should be exclusive, got %v", times(msgs))
	}
}

func TestMemStoreQueryPaginationDisjoint(t *testing.T) {
	s := NewMemStore()
	a, b := uid("a"), uid("b")
	for ts := int64(1); ts <= 10; ts++ {
		seedConversation(s, a, b, ts*100)
	}

	page1, _ := s.Query(context.Background(), a, b, NoTimeBound, 0, 4)
	page2, _ := s.Query(context.Background(), a, b, NoTimeBound, 4, 4)
	page3, _ := s.Query(context.Background(), a, b, NoTimeBound, 8, 4)
	if len(page1) != 4 || len(page2) != 4 || len(page3) != 2 {
		t.Fatalf("page sizes %d/%d/%d", len(page1), len(page2), len(page3))
	}
	seen := make(map[int64]bool)
	for _, page := range [][]ChatMessage{page1, page2, page3} {
		for _, m := range page {
			if seen[m.Time] {
				t.Fatalf("timestamp %d appears in two pages", m.Time)
			}
			seen[m.Time] = true
		}
	}
	if page1[0].Time != 1000 || page3[1].Time != 100 {
		t.Errorf("pages out of order: first=%d last=%d", page1[0].Time, page3[1].Time)
	}

	if far, _ := s.Query(context.Background(), a, b, NoTimeBound, 50, 4); far != nil {
		t.Errorf("skip past the end should be empty, got %v", times(far))
	}
}

func TestMemStoreEqualTimestampsStableOrder(t *testing.T) {
	s := NewMemStore()
	a, b := uid("a"), uid("b")
	s.seed(ChatMessage{From: a, To: b, Message: "first", Time: 500})
	s.seed(ChatMessage{From: a, To: b, Message: "second", Time: 500})

	msgs, _ := s.Query(context.Background(), a, b, NoTimeBound, 0, 10)
	if len(msgs) != 2 || msgs[0].Message != "second" {
		t.Fatalf("later insert should sort first at equal timestamps, got %+v", msgs)
	}
}

func TestMemStoreUniqueCounterparties(t *testing.T) {
	s := NewMemStore()
	a, b, c, d := uid("a"), uid("b"), uid("c"), uid("d")
	seedConversation(s, a, b, 100, 200) // sent twice, must dedup
	seedConversation(s, a, c, 300)
	seedConversation(s, d, a, 400)
	seedConversation(s, b, a, 500)

	sentTo, receivedFrom, err := s.UniqueCounterparties(context.Background(), a)
	if err != nil {
		t.Fatalf("UniqueCounterparties: %v", err)
	}
	if len(sentTo) != 2 || sentTo[0] != b || sentTo[1] != c {
		t.Errorf("sentTo = %v", sentTo)
	}
	if len(receivedFrom) != 2 || receivedFrom[0] != d || receivedFrom[1] != b {
		t.Errorf("receivedFrom = %v", receivedFrom)
	}
}

func TestMemStoreLastMessage(t *testing.T) {
	s := NewMemStore()
	a, b := uid("a"), uid("b")

	empty, err := s.LastMessage(context.Background(), a, b)
	if err != nil || !empty.IsZero() {
		t.Fatalf("no traffic should yield the zero sentinel, got %+v err %v", empty, err)
	}

	seedConversation(s, a, b, 100)
	seedConversation(s, b, a, 200)
	last, _ := s.LastMessage(context.Background(), a, b)
	if last.Time != 200 || last.From != b {
		t.Errorf("LastMessage = %+v, want b's message at 200", last)
	}
}

func TestMemStoreLastFromMessage(t *testing.T) {
	s := NewMemStore()
	a, b, c := uid("a"), uid("b"), uid("c")
	seedConversation(s, a, b, 100)
	seedConversation(s, a, c, 300)
	seedConversation(s, b, a, 500) // received, must not count

	last, err := s.LastFromMessage(context.Background(), a)
	if err != nil {
		t.Fatalf("LastFromMessage: %v", err)
	}
	if last.Time != 300 || last.To != c {
		t.Errorf("LastFromMessage = %+v, want a's send at 300", last)
	}
}

func TestMemStoreCountUnread(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	a, b, c := uid("a"), uid("b"), uid("c")
	seedConversation(s, b, a, 100, 200)
	seedConversation(s, c, a, 300)
	s.seed(ChatMessage{From: b, To: a, Message: "m", Time: 400, Read: true})

	if n, _ := s.CountUnread(ctx, b, a, NoTimeBound); n != 2 {
		t.Errorf("unread from b = %d, want 2", n)
	}
	if n, _ := s.CountUnread(ctx, "", a, NoTimeBound); n != 3 {
		t.Errorf("unread from anyone = %d, want 3", n)
	}
	if n, _ := s.CountUnread(ctx, b, a, 150); n != 1 {
		t.Errorf("unread since 150 = %d, want 1", n)
	}
	if n, _ := s.CountUnread(ctx, b, c, NoTimeBound); n != 0 {
		t.Errorf("unread for silent pair = %d, want 0", n)
	}
}

func TestMemStoreMarkRead(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	a, b := uid("a"), uid("b")
	seedConversation(s, b, a, 100, 200, 300)
	seedConversation(s, a, b, 250) // opposite direction, untouched

	n, err := s.MarkRead(ctx, b, a, 200)
	if err != nil || n != 2 {
		t.Fatalf("MarkRead = (%d, %v), want 2 matched", n, err)
	}
	if unread, _ := s.CountUnread(ctx, b, a, NoTimeBound); unread != 1 {
		t.Errorf("unread after mark = %d, want 1", unread)
	}
	if unread, _ := s.CountUnread(ctx, a, b, NoTimeBound); unread != 1 {
		t.Error("opposite direction was touched")
	}

	// Marking again matches the same window; the count stays stable.
	if n, _ = s.MarkRead(ctx, b, a, 200); n != 2 {
		t.Errorf("repeat MarkRead = %d, want 2", n)
	}
	if unread, _ := s.CountUnread(ctx, b, a, NoTimeBound); unread != 1 {
		t.Errorf("unread after repeat = %d, want 1", unread)
	}
}
