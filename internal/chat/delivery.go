package chat

import (
	"context"
	"time"

	"fychat/internal/metrics"
)

// DeliveryOutcome reports how a sent message reached (or failed to reach)
// its recipient. The message itself is persisted in every outcome.
type DeliveryOutcome int

const (
	// Relayed: the recipient was connected and the envelope was queued on
	// its connection.
	Relayed DeliveryOutcome = iota
	// PushedOffline: the recipient was offline and the push service
	// reported the notification delivered.
	PushedOffline
	// PushFailed: the recipient was offline and the push service could not
	// deliver; the sender gets no confirmation.
	PushFailed
)

func (o DeliveryOutcome) String() string {
	switch o {
	case Relayed:
		return "relayed"
	case PushedOffline:
		return "pushed"
	case PushFailed:
		return "push-failed"
	}
	return "unknown"
}

// previewMaxRunes bounds the message preview handed to the push service.
const previewMaxRunes = 160

// Deliver persists msg, then relays it in-process when the recipient has a
// registered presence, falling back to the external push service otherwise.
// Persistence and relay are not transactional: a stored message whose relay
// fails is picked up on the recipient's next history fetch.
func (s *Service) Deliver(ctx context.Context, msg ChatMessage) (DeliveryOutcome, ChatMessage, error) {
	stored, err := s.store.Insert(ctx, msg)
	if err != nil {
		return PushFailed, msg, err
	}

	// A lookup racing a disconnect may return a stale handle; a failed
	// enqueue falls through to the offline path.
	if recipient, ok := s.presence.Lookup(stored.To); ok {
		sent := recipient.Enqueue(&Envelope{
			Type:    string(KindChatMessage),
			To:      stored.To,
			From:    stored.From,
			Message: stored.Message,
			Time:    stored.Time,
		})
		if sent {
			s.scheduleDeliveryAck(stored)
			metrics.MessagesRelayed.Inc()
			return Relayed, stored, nil
		}
	}

	delivered, err := s.push.SendChatRequest(ctx, stored.From, stored.To, truncatePreview(stored.Message, previewMaxRunes))
	if err != nil || !delivered {
		if err != nil {
			s.log.Warn().Err(err).Str("to", stored.To).Msg("push request failed")
		}
		metrics.PushFailures.Inc()
		return PushFailed, stored, nil
	}
	metrics.MessagesPushed.Inc()

	if sender, ok := s.presence.Lookup(stored.From); ok {
		sender.Enqueue(&Envelope{
			Type:    string(KindChatRequestSent),
			To:      stored.To,
			From:    stored.From,
			Message: stored.To + " has been notified of your chat message",
		})
	}
	return PushedOffline, stored, nil
}

// scheduleDeliveryAck confirms a relayed message back to the sender after a
// short delay, so the client can show delivery without blocking the send.
// Best-effort: a no-op if the sender disconnected in the meantime.
func (s *Service) scheduleDeliveryAck(stored ChatMessage) {
	time.AfterFunc(s.ackDelay, func() {
		sender, ok := s.presence.Lookup(stored.From)
		if !ok {
			return
		}
		sender.Enqueue(&Envelope{
			Type: string(KindDeliveryAck),
			To:   stored.To,
			From: stored.From,
			Time: stored.Time,
		})
	})
}
