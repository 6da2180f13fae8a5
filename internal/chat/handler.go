package chat

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Handshake identity is checked below; cross-origin browsers are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenValidator verifies socket tokens minted by the HTTP surface and
// returns the user id they were bound to. Keeps this package decoupled from
// the token implementation.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Handler exposes the synchronous query surface and the websocket upgrade.
type Handler struct {
	svc    *Service
	tokens TokenValidator
	log    zerolog.Logger
}

func NewHandler(svc *Service, tokens TokenValidator, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, log: log}
}

func (h *Handler) JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// ServeWs upgrades the connection and starts the session. Identity comes
// from the `from` query parameter, or from a socket token when one is
// presented. The optional `to` preloads a counterpart.
func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := firstString(q["from"])
	if token := firstString(q["token"]); token != "" && h.tokens != nil {
		sub, err := h.tokens.Validate(token)
		if err != nil {
			h.Error(w, http.StatusUnauthorized, "invalid socket token")
			return
		}
		from = sub
	}
	if !ValidID(from) {
		h.Error(w, http.StatusBadRequest, "invalid from id")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(from, conn, h.log)
	sess := h.svc.StartSession(client, firstString(q["to"]))

	go client.writePump()
	go client.readPump(sess)
}

// GetConversationSummary handles GET /messages/{userID}.
func (h *Handler) GetConversationSummary(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !ValidID(userID) {
		h.JSON(w, http.StatusOK, ConversationSet{})
		return
	}
	h.JSON(w, http.StatusOK, h.svc.ConversationSummary(r.Context(), userID))
}

// GetUserInfo handles GET /info/{userID}. Unknown or invalid ids answer 404
// with an invalid record, never a fault.
func (h *Handler) GetUserInfo(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	detail := h.svc.UserInfo(r.Context(), userID)
	status := http.StatusOK
	if !detail.Valid {
		status = http.StatusNotFound
	}
	h.JSON(w, status, detail)
}

// GetChatList handles GET /chat-list/{userID}.
func (h *Handler) GetChatList(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	rows := h.svc.ChatList(r.Context(), userID)
	if rows == nil {
		rows = []SummaryRow{}
	}
	h.JSON(w, http.StatusOK, rows)
}

// SetRead handles GET /set-read/{from}/{to} with an optional {timeRef}:
// messages sent by `from` to `to` inside the computed read window are
// flagged read.
func (h *Handler) SetRead(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")
	timeRef := int64(smartCastInt(chi.URLParam(r, "timeRef"), 0))

	result := map[string]any{"valid": false, "numMarkedAsRead": 0}
	if n, ok := h.svc.MarkRead(r.Context(), from, to, timeRef); ok {
		result["valid"] = true
		result["numMarkedAsRead"] = n
	}
	h.JSON(w, http.StatusOK, result)
}

// GetChatHistory handles GET /chat-history/{from}/{to} with optional
// {start} and {limit} segments.
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	from := chi.URLParam(r, "from")
	to := chi.URLParam(r, "to")
	start := smartCastInt(chi.URLParam(r, "start"), 0)
	limit := smartCastInt(chi.URLParam(r, "limit"), defaultHistoryLimit)

	if !ValidID(from) || !ValidID(to) {
		h.JSON(w, http.StatusOK, Conversation{Start: start, Limit: limit})
		return
	}
	h.JSON(w, http.StatusOK, h.svc.Conversation(r.Context(), from, to, start, limit))
}

// GetUnreadTotal handles GET /unread-total/{userID}.
func (h *Handler) GetUnreadTotal(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	total, ok := h.svc.UnreadTotal(r.Context(), userID)
	h.JSON(w, http.StatusOK, map[string]any{"valid": ok, "total": total})
}

// GetSocketInfo handles GET /socket-info: the machine-readable description
// of every event kind.
func (h *Handler) GetSocketInfo(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, RenderKeyDefinitions())
}

// Health handles GET /health with a liveness payload and the number of
// registered connections.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": h.svc.Presence().Count(),
	})
}
