package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

// PushClient implements chat.Push against the push-notification dispatch
// service.
type PushClient struct {
	rc *resource
}

func NewPushClient(base string, hc *http.Client, log zerolog.Logger) *PushClient {
	return &PushClient{rc: newResource(base, hc, log)}
}

// SendChatRequest asks the push service to notify `to` of a chat message
// from `from`. The service answers with a validity flag and, when a device
// token was actually addressed, the platform-push receipt; a receipt with
// fewer than two fields means nothing went out.
func (p *PushClient) SendChatRequest(ctx context.Context, from, to, preview string) (bool, error) {
	uri := "feedback/send-chat-request/" + from + "/" + to
	if preview != "" {
		uri += "?msg=" + url.QueryEscape(preview)
	}
	var res struct {
		Valid bool           `json:"valid"`
		FCM   map[string]any `json:"fcm"`
	}
	if err := p.rc.getJSON(ctx, uri, &res); err != nil {
		return false, err
	}
	return res.Valid && len(res.FCM) > 1, nil
}
