package chat

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

const defaultHistoryLimit = 100

// Profiles is the remote user-profile collaborator. Implementations map
// transport errors to zero-value results at the boundary; the core never
// sees transport details.
type Profiles interface {
	UserInfo(ctx context.Context, id string) (BasicInfo, error)
	UsersInfo(ctx context.Context, ids []string) ([]BasicInfo, error)
}

// Push is the external push-notification collaborator used when a recipient
// has no registered presence.
type Push interface {
	// SendChatRequest asks the push service to notify `to` of a pending chat
	// message and reports whether it was delivered.
	SendChatRequest(ctx context.Context, from, to, preview string) (bool, error)
}

// Service composes the presence registry, conversation store and external
// collaborators behind the operations the connection handlers and the HTTP
// surface call into.
type Service struct {
	store    ConversationStore
	presence *Presence
	profiles Profiles
	push     Push
	log      zerolog.Logger

	// Delays for the deferred notifications; shortened in tests.
	ackDelay  time.Duration
	infoDelay time.Duration
}

func NewService(store ConversationStore, profiles Profiles, push Push, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		presence:  NewPresence(),
		profiles:  profiles,
		push:      push,
		log:       log,
		ackDelay:  2 * time.Second,
		infoDelay: 500 * time.Millisecond,
	}
}

// Presence exposes the registry for transport-level checks.
func (s *Service) Presence() *Presence {
	return s.presence
}

// UserInfo returns the profile for userID enriched with presence and
// last-activity state. Collaborator failures degrade to an invalid record;
// they are never surfaced as faults.
func (s *Service) UserInfo(ctx context.Context, userID string) UserDetail {
	detail := UserDetail{BasicInfo: BasicInfo{ID: userID}}
	if !ValidID(userID) {
		return detail
	}
	info, err := s.profiles.UserInfo(ctx, userID)
	if err != nil {
		s.log.Debug().Err(err).Str("user", userID).Msg("profile lookup failed")
	} else {
		detail.BasicInfo = info
	}
	detail.Online = s.presence.Online(userID)
	last, err := s.store.LastFromMessage(ctx, userID)
	if err == nil {
		detail.LastMsgTs = last.Time
		detail.LastMessageRead = last.Read
	}
	return detail
}

// Conversation fetches one page of the history between userID and toID,
// newest first, together with the counterpart's profile.
func (s *Service) Conversation(ctx context.Context, userID, toID string, skip, limit int) Conversation {
	conv := Conversation{Start: skip, Limit: limit}
	if !ValidID(userID) || !ValidID(toID) {
		return conv
	}
	msgs, err := s.store.Query(ctx, userID, toID, NoTimeBound, skip, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("conversation query failed")
		return conv
	}
	conv.UserDetail = s.UserInfo(ctx, toID)
	conv.Messages = make([]HistoryItem, 0, len(msgs))
	for _, m := range msgs {
		conv.Messages = append(conv.Messages, HistoryItem{
			IsFrom:  m.From == userID,
			Message: m.Message,
			Time:    m.Time,
		})
	}
	conv.Valid = len(msgs) > 0
	return conv
}

// ChatList builds the unique-interactions summary for userID: one row per
// counterparty with profile, online flag, last-message snippet and unread
// count, sorted by recency of last activity.
func (s *Service) ChatList(ctx context.Context, userID string) []SummaryRow {
	if !ValidID(userID) {
		return nil
	}
	sentTo, receivedFrom, err := s.store.UniqueCounterparties(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("counterparty aggregation failed")
		return nil
	}
	replied := make(map[string]bool, len(receivedFrom))
	for _, id := range receivedFrom {
		replied[id] = true
	}

	// Received-from first, then sent-to, duplicates dropped.
	seen := make(map[string]bool)
	var ids []string
	for _, id := range append(append([]string{}, receivedFrom...), sentTo...) {
		if !seen[id] && ValidID(id) {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	profiles := s.profilesByID(ctx, ids)
	rows := make([]SummaryRow, 0, len(ids))
	for _, id := range ids {
		info, ok := profiles[id]
		if !ok || !notEmptyString(info.NickName, 1) {
			continue
		}
		last, err := s.store.LastMessage(ctx, id, userID)
		if err != nil {
			continue
		}
		unread, err := s.store.CountUnread(ctx, id, userID, NoTimeBound)
		if err != nil {
			unread = 0
		}
		lastFrom, _ := s.store.LastFromMessage(ctx, id)
		rows = append(rows, SummaryRow{
			UserDetail: UserDetail{
				BasicInfo: info,
				Online:    s.presence.Online(id),
				LastMsgTs: lastFrom.Time,
			},
			Last: MicroMessage{
				Message: last.Message,
				Time:    last.Time,
				IsFrom:  last.From == userID,
			},
			UnreadCount: unread,
			HasReplied:  replied[id],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Last.Time > rows[j].Last.Time
	})
	return rows
}

// ConversationSummary groups the user's recent messages by counterparty with
// profiles attached, for the synchronous query surface.
func (s *Service) ConversationSummary(ctx context.Context, userID string) ConversationSet {
	out := ConversationSet{}
	if !ValidID(userID) {
		return out
	}
	chats, err := s.store.Query(ctx, userID, "", NoTimeBound, 0, defaultHistoryLimit)
	if err != nil {
		s.log.Error().Err(err).Msg("summary query failed")
		return out
	}

	seen := make(map[string]bool)
	var ids []string
	for _, m := range chats {
		for _, id := range []string{m.To, m.From} {
			if id != userID && ValidID(id) && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return out
	}

	profiles := s.profilesByID(ctx, ids)
	for _, id := range ids {
		info, ok := profiles[id]
		if !ok {
			continue
		}
		lastFrom, _ := s.store.LastFromMessage(ctx, id)
		row := Conversation{
			UserDetail: UserDetail{
				BasicInfo: info,
				Online:    s.presence.Online(id),
				LastMsgTs: lastFrom.Time,
			},
			Limit: defaultHistoryLimit,
			Valid: true,
		}
		for _, m := range chats {
			if m.To == id || m.From == id {
				row.Messages = append(row.Messages, HistoryItem{
					IsFrom:  m.From == userID,
					Message: m.Message,
					Time:    m.Time,
				})
			}
		}
		out.Rows = append(out.Rows, row)
	}
	out.Valid = len(out.Rows) > 0
	return out
}

// MarkRead flags messages sent from -> to as read within the computed
// window and returns the matched count.
func (s *Service) MarkRead(ctx context.Context, from, to string, explicit int64) (int, bool) {
	if !ValidID(from) || !ValidID(to) {
		return 0, false
	}
	start := readWindowStart(ctx, s.store, from, to, explicit, time.Now().UnixMilli())
	n, err := s.store.MarkRead(ctx, from, to, start)
	if err != nil {
		s.log.Error().Err(err).Msg("mark read failed")
		return 0, false
	}
	return n, true
}

// UnreadCount returns the number of unread messages from -> to.
func (s *Service) UnreadCount(ctx context.Context, from, to string) int {
	if !ValidID(from) || !ValidID(to) {
		return 0
	}
	n, err := s.store.CountUnread(ctx, from, to, NoTimeBound)
	if err != nil {
		return 0
	}
	return n
}

// UnreadTotal returns userID's unread count across all counterparties.
func (s *Service) UnreadTotal(ctx context.Context, userID string) (int, bool) {
	if !ValidID(userID) {
		return 0, false
	}
	n, err := s.store.CountUnread(ctx, "", userID, NoTimeBound)
	if err != nil {
		s.log.Error().Err(err).Msg("unread total failed")
		return 0, false
	}
	return n, true
}

// profilesByID batch-fetches profiles and indexes them, keeping only valid
// records.
func (s *Service) profilesByID(ctx context.Context, ids []string) map[string]BasicInfo {
	out := make(map[string]BasicInfo, len(ids))
	infos, err := s.profiles.UsersInfo(ctx, ids)
	if err != nil {
		s.log.Debug().Err(err).Int("ids", len(ids)).Msg("profile batch lookup failed")
		return out
	}
	for _, info := range infos {
		if info.Valid {
			out[info.ID] = info
		}
	}
	return out
}

// scheduleUserInfo delivers the counterpart's profile back to the connecting
// client as user-info after a short delay. Best-effort: dropped silently if
// the connection closed first.
func (s *Service) scheduleUserInfo(fromID, toID string) {
	time.AfterFunc(s.infoDelay, func() {
		c, ok := s.presence.Lookup(fromID)
		if !ok {
			return
		}
		info := s.UserInfo(context.Background(), toID)
		c.Enqueue(&Envelope{
			Type:    string(KindUserInfo),
			To:      toID,
			From:    fromID,
			Message: "User info",
			Data:    info,
		})
	})
}
