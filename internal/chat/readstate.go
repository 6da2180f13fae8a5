package chat

import (
	"context"
	"time"
)

const (
	// Window applied behind an explicit client-supplied read timestamp.
	readWindowExplicit = time.Minute
	// Window applied behind the last message when no timestamp was given.
	readWindowRecent = 5 * time.Minute
	// Fallback scope when no reliable recent-message anchor exists.
	readWindowFallback = 7 * 24 * time.Hour
	// Timestamps at or below this are treated as unset.
	minAnchorTs = 1000
)

// readWindowStart computes the earliest timestamp of the bulk read-marking
// window for messages sent from -> to.
//
// An explicit timestamp anchors the window one minute before it. Otherwise
// the pair's last message anchors it five minutes before. With no anchor at
// all, or an anchor so close to the epoch that the window start would dip
// below the unset threshold, the window widens to a full week before now
// rather than spanning the entire history.
//
// Note the upstream service guarded the result with `start < 1h`, comparing
// epoch millis against a duration; the clamp here keeps that guard's intent
// without the unit mismatch.
func readWindowStart(ctx context.Context, store ConversationStore, from, to string, explicit, now int64) int64 {
	fallback := now - readWindowFallback.Milliseconds()

	var start int64
	if explicit >= minAnchorTs {
		start = explicit - readWindowExplicit.Milliseconds()
	} else {
		last, err := store.LastMessage(ctx, from, to)
		if err != nil || last.Time <= minAnchorTs {
			return fallback
		}
		start = last.Time - readWindowRecent.Milliseconds()
	}
	if start < minAnchorTs {
		return fallback
	}
	return start
}
