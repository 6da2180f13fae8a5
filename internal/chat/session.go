package chat

import (
	"context"
	"sync"

	"fychat/internal/metrics"
)

// Session drives one connection's lifecycle: handshake identity, presence
// registration, history replay, inbound dispatch and disconnect fan-out.
// After Close no further envelopes are processed; pending timers tied to the
// connection no-op.
type Session struct {
	svc    *Service
	client *Client
	from   string
	to     string

	mu     sync.Mutex
	closed bool
}

// StartSession transitions a handshaken connection to active: it registers
// presence for the client's user and kicks off the connect-time
// notifications and history replay. A valid `to` preloads that counterpart's
// conversation; otherwise the client receives its full chat list.
func (s *Service) StartSession(client *Client, to string) *Session {
	sess := &Session{svc: s, client: client, from: client.UserID(), to: to}
	s.presence.Register(sess.from, client)
	metrics.ConnectionsActive.Inc()
	go sess.activate(context.Background())
	return sess
}

func (sess *Session) activate(ctx context.Context) {
	s := sess.svc
	if ValidID(sess.to) {
		if counterpart, ok := s.presence.Lookup(sess.to); ok {
			counterpart.Enqueue(&Envelope{
				Type:    string(KindUserConnected),
				To:      sess.to,
				From:    sess.from,
				Message: "New chat request",
				Data:    s.UserInfo(ctx, sess.from),
			})
		}
		conv := s.Conversation(ctx, sess.from, sess.to, 0, defaultHistoryLimit)
		sess.client.Enqueue(&Envelope{
			Type: string(KindHistory),
			To:   sess.from,
			From: sess.to,
			Data: conv,
		})
		s.scheduleUserInfo(sess.from, sess.to)
		return
	}

	rows := s.ChatList(ctx, sess.from)
	sess.client.Enqueue(&Envelope{
		Type: string(KindChatList),
		To:   sess.from,
		Data: rows,
	})

	// Tell previously-idle contacts the user came online.
	var info *UserDetail
	for _, row := range rows {
		if !row.Online {
			continue
		}
		counterpart, ok := s.presence.Lookup(row.ID)
		if !ok {
			continue
		}
		if info == nil {
			detail := s.UserInfo(ctx, sess.from)
			info = &detail
		}
		counterpart.Enqueue(&Envelope{
			Type:    string(KindUserConnected),
			To:      row.ID,
			From:    sess.from,
			Message: "User online",
			Data:    info,
		})
	}
}

// HandleFrame normalizes one inbound frame and dispatches it. Malformed
// frames are answered with a best-effort error envelope; the connection
// stays open.
func (sess *Session) HandleFrame(raw []byte) {
	if sess.isClosed() {
		return
	}
	env, err := DecodeEnvelope(raw)
	if err != nil {
		sess.client.Enqueue(&Envelope{Type: defaultKind, Message: "error"})
		return
	}
	sess.Dispatch(context.Background(), env)
}

// Dispatch routes an inbound envelope by kind. Message kinds go through the
// delivery decision; everything else maps to its handler; unknown kinds are
// echoed back as a no-op error.
func (sess *Session) Dispatch(ctx context.Context, env *Envelope) {
	if sess.isClosed() {
		return
	}
	metrics.EnvelopesDispatched.WithLabelValues(metricKind(env.Type)).Inc()

	if env.IsMessageKind() {
		sess.handleChat(ctx, env)
		return
	}
	switch EventKind(env.Type) {
	case KindHistoryReq:
		sess.handleHistory(ctx, env)
	case KindInfoRequest:
		sess.handleInfoRequest(ctx, env)
	case KindMoreMessages:
		sess.handleMoreMessages(ctx, env)
	case KindIsTyping:
		sess.handleTyping(env)
	case KindMessageRead:
		sess.handleMessageRead(ctx, env)
	case KindUnreadCount:
		sess.handleUnreadCount(ctx, env)
	default:
		sess.client.Enqueue(&Envelope{Type: env.Type, Message: "error"})
	}
}

// Close transitions the session to its terminal state: presence is released
// first, then every online counterparty is told the user disconnected, so a
// concurrent presence check during the fan-out already sees the user absent.
func (sess *Session) Close() {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	sess.mu.Unlock()

	s := sess.svc
	s.presence.Release(sess.from, sess.client)
	metrics.ConnectionsActive.Dec()
	sess.client.close()

	ctx := context.Background()
	sentTo, receivedFrom, err := s.store.UniqueCounterparties(ctx, sess.from)
	if err != nil {
		s.log.Error().Err(err).Str("user", sess.from).Msg("disconnect fan-out aborted")
		return
	}
	seen := make(map[string]bool)
	for _, id := range append(receivedFrom, sentTo...) {
		if seen[id] {
			continue
		}
		seen[id] = true
		if counterpart, ok := s.presence.Lookup(id); ok {
			counterpart.Enqueue(&Envelope{
				Type:    string(KindUserDisconnected),
				To:      id,
				From:    sess.from,
				Message: "User disconnected",
			})
		}
	}
}

func (sess *Session) isClosed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closed
}

// counterpart resolves which user an envelope is about, whichever of its
// identity fields names someone other than the session's own user.
func (sess *Session) counterpart(env *Envelope) string {
	if env.To != "" && env.To != sess.from {
		return env.To
	}
	return env.From
}

func (sess *Session) handleChat(ctx context.Context, env *Envelope) {
	msg := ChatMessage{From: env.From, To: env.To, Message: env.Message}
	if msg.From == "" {
		msg.From = sess.from
	}
	if !ValidID(msg.From) || !ValidID(msg.To) || !notEmptyString(msg.Message, 1) {
		sess.client.Enqueue(&Envelope{Type: defaultKind, Message: "error"})
		return
	}
	outcome, stored, err := sess.svc.Deliver(ctx, msg)
	if err != nil {
		// Persistence failure is fatal to this operation only.
		sess.svc.log.Error().Err(err).Msg("message persistence failed")
		sess.client.Enqueue(&Envelope{Type: defaultKind, Message: "error"})
		return
	}
	sess.svc.log.Debug().
		Str("from", stored.From).
		Str("to", stored.To).
		Stringer("outcome", outcome).
		Msg("message delivered")
}

func (sess *Session) handleHistory(ctx context.Context, env *Envelope) {
	cp := sess.counterpart(env)
	conv := sess.svc.Conversation(ctx, sess.from, cp, 0, defaultHistoryLimit)
	sess.client.Enqueue(&Envelope{
		Type: string(KindHistory),
		To:   sess.from,
		From: cp,
		Data: conv,
	})
}

func (sess *Session) handleInfoRequest(ctx context.Context, env *Envelope) {
	cp := sess.counterpart(env)
	sess.client.Enqueue(&Envelope{
		Type:    string(KindUserInfo),
		To:      cp,
		From:    sess.from,
		Message: "User info",
		Data:    sess.svc.UserInfo(ctx, cp),
	})
}

func (sess *Session) handleMoreMessages(ctx context.Context, env *Envelope) {
	cp := sess.counterpart(env)
	skip := env.DataInt("start", 0)
	limit := env.DataInt("limit", defaultHistoryLimit)
	conv := sess.svc.Conversation(ctx, sess.from, cp, skip, limit)
	sess.client.Enqueue(&Envelope{
		Type: string(KindHistoryMore),
		To:   sess.from,
		From: cp,
		Data: map[string]any{
			"start":   skip,
			"limit":   limit,
			"history": conv,
		},
	})
}

// handleTyping relays a typing indicator to the counterpart if online.
// Fire-and-forget: no fallback, no persistence, silently dropped offline.
func (sess *Session) handleTyping(env *Envelope) {
	cp := sess.counterpart(env)
	if counterpart, ok := sess.svc.presence.Lookup(cp); ok {
		counterpart.Enqueue(&Envelope{
			Type: string(KindIsTypingResp),
			To:   cp,
			From: sess.from,
		})
	}
}

func (sess *Session) handleMessageRead(ctx context.Context, env *Envelope) {
	cp := sess.counterpart(env)
	n, ok := sess.svc.MarkRead(ctx, cp, sess.from, env.Time)
	if !ok {
		sess.client.Enqueue(&Envelope{Type: defaultKind, Message: "error"})
		return
	}
	// Tell the original sender how many of their messages were marked.
	if counterpart, online := sess.svc.presence.Lookup(cp); online {
		counterpart.Enqueue(&Envelope{
			Type: string(KindMessageRead),
			To:   cp,
			From: sess.from,
			Data: map[string]any{"numMarkedAsRead": n},
		})
	}
}

func (sess *Session) handleUnreadCount(ctx context.Context, env *Envelope) {
	cp := sess.counterpart(env)
	n := sess.svc.UnreadCount(ctx, cp, sess.from)
	sess.client.Enqueue(&Envelope{
		Type: string(KindUnreadCountResp),
		To:   sess.from,
		From: cp,
		Data: map[string]any{"count": n},
	})
}
