package chat

// ---------------------------------------------
// Persisted & wire models
// ---------------------------------------------

// ChatMessage is the persisted unit of conversation. The store assigns ID and
// Time at insert; everything else is immutable except the Read flag, which
// only ever transitions false -> true.
type ChatMessage struct {
	ID      string `json:"-"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
	Read    bool   `json:"read"`
}

// IsZero reports whether m is the empty sentinel returned when no message
// matches a query.
func (m ChatMessage) IsZero() bool {
	return m.From == "" && m.To == "" && m.Time == 0
}

// HistoryItem is a message as replayed to one side of a conversation. IsFrom
// is true when the viewing user sent it.
type HistoryItem struct {
	IsFrom  bool   `json:"isFrom"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
}

// MicroMessage is the last-message snippet attached to chat-list rows.
type MicroMessage struct {
	Message string `json:"message"`
	Time    int64  `json:"time"`
	IsFrom  bool   `json:"isFrom"`
}

// ---------------------------------------------
// Profile & derived view models
// ---------------------------------------------

// BasicInfo is the core's view of a profile record from the remote user
// service. Valid is false when the service had no matching user or could not
// be reached.
type BasicInfo struct {
	ID       string `json:"_id"`
	NickName string `json:"nickName"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Valid    bool   `json:"valid"`
}

// UserDetail enriches a profile with presence and last-activity state.
type UserDetail struct {
	BasicInfo
	Online          bool  `json:"online"`
	LastMsgTs       int64 `json:"lastMsgTs"`
	LastMessageRead bool  `json:"lastMessageRead,omitempty"`
}

// SummaryRow is one counterparty's aggregated state for the chat-list view.
// Derived per call, never cached.
type SummaryRow struct {
	UserDetail
	Last        MicroMessage `json:"last"`
	UnreadCount int          `json:"unreadCount"`
	HasReplied  bool         `json:"hasReplied"`
}

// Conversation is the history view for one counterparty: their profile plus
// the fetched message window and its pagination echo.
type Conversation struct {
	UserDetail
	Messages []HistoryItem `json:"messages"`
	Start    int           `json:"start"`
	Limit    int           `json:"limit"`
	Valid    bool          `json:"valid"`
}

// ConversationSet wraps the multi-counterparty summary for the REST surface.
type ConversationSet struct {
	Rows  []Conversation `json:"rows"`
	Valid bool           `json:"valid"`
}
