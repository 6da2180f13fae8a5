package chat

// EventKind identifies one of the fixed set of envelope types exchanged with
// clients. The wire strings are part of the protocol and must not change.
type EventKind string

const (
	// Inbound from clients.
	KindChat         EventKind = "chat"
	KindHistoryReq   EventKind = "history-request"
	KindInfoRequest  EventKind = "info-request"
	KindMoreMessages EventKind = "more-messages"
	KindIsTyping     EventKind = "is-typing"
	KindMessageRead  EventKind = "message-read"
	KindUnreadCount  EventKind = "unread-count"

	// Outbound from the server.
	KindChatMessage      EventKind = "chat-message"
	KindDeliveryAck      EventKind = "delivery-ack"
	KindUserConnected    EventKind = "user-connected"
	KindUserInfo         EventKind = "user-info"
	KindUserDisconnected EventKind = "user-disconnected"
	KindHistory          EventKind = "conversation-history"
	KindHistoryMore      EventKind = "conversation-history-more"
	KindChatList         EventKind = "chat-list"
	KindIsTypingResp     EventKind = "is-typing-response"
	KindChatRequestSent  EventKind = "chat-request-sent"
	KindUnreadCountResp  EventKind = "unread-count-response"
)

// KeyDefinition documents one event kind for the discovery endpoint. The
// schema is descriptive only; nothing enforces it at runtime.
type KeyDefinition struct {
	Key        string `json:"key"`
	Definition string `json:"definition"`
}

var keyDefinitions = []KeyDefinition{
	{string(KindChat), "send 1-on-1 chat message to the server"},
	{string(KindChatMessage), "1-on-1 message sent from server"},
	{string(KindDeliveryAck), "delayed confirmation that a relayed message reached the recipient"},
	{string(KindUserConnected), "server notifies the other user that the user has connected"},
	{string(KindUserInfo), "server sends user info about the requested counterpart"},
	{string(KindUserDisconnected), "server informs clients that a user has disconnected"},
	{string(KindHistoryReq), "ask the server to replay a conversation's history"},
	{string(KindHistory), "sent automatically by the server when starting a new chat"},
	{string(KindMoreMessages), "ask server for more messages in a conversation"},
	{string(KindHistoryMore), "server sends back more chat history"},
	{string(KindChatList), "list of users with last message and online status"},
	{string(KindInfoRequest), "information request sent to the server"},
	{string(KindIsTyping), "tell the server the user is typing"},
	{string(KindIsTypingResp), "typing indicator relayed to the counterpart"},
	{string(KindChatRequestSent), "the offline recipient has been notified by push"},
	{string(KindMessageRead), "mark recent messages from a counterpart as read"},
	{string(KindUnreadCount), "ask the server for the unread count of a conversation"},
	{string(KindUnreadCountResp), "server sends back an unread count"},
}

// RenderKeyDefinitions returns the machine-readable description of every
// event kind, used by the discovery endpoint.
func RenderKeyDefinitions() []KeyDefinition {
	out := make([]KeyDefinition, len(keyDefinitions))
	copy(out, keyDefinitions)
	return out
}

var knownKinds = func() map[string]bool {
	m := make(map[string]bool, len(keyDefinitions)+1)
	for _, d := range keyDefinitions {
		m[d.Key] = true
	}
	m[defaultKind] = true
	return m
}()

// metricKind maps an inbound type to a metric label. Types outside the
// registry fold into one bucket; labels come from client input and must not
// grow without bound.
func metricKind(rawType string) string {
	if knownKinds[rawType] {
		return rawType
	}
	return "other"
}
