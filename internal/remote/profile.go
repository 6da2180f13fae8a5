package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"fychat/internal/chat"
)

func jsonBody(payload []byte) io.Reader {
	return bytes.NewReader(payload)
}

// ProfileClient implements chat.Profiles against the remote user API.
type ProfileClient struct {
	rc *resource
}

func NewProfileClient(base string, hc *http.Client, log zerolog.Logger) *ProfileClient {
	return &ProfileClient{rc: newResource(base, hc, log)}
}

// UserInfo fetches one profile by id. A record without a nickname is
// treated as not found.
func (p *ProfileClient) UserInfo(ctx context.Context, id string) (chat.BasicInfo, error) {
	invalid := chat.BasicInfo{ID: id}
	if !chat.ValidID(id) {
		return invalid, nil
	}
	var info chat.BasicInfo
	if err := p.rc.getJSON(ctx, "user/basic-by-id/"+id, &info); err != nil {
		return invalid, err
	}
	if info.ID == "" {
		info.ID = id
	}
	info.Valid = info.NickName != ""
	return info, nil
}

// UsersInfo fetches a batch of profiles by id.
func (p *ProfileClient) UsersInfo(ctx context.Context, ids []string) ([]chat.BasicInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body := map[string]any{"uids": ids}
	var infos []chat.BasicInfo
	if err := p.rc.postJSON(ctx, "user/basic-by-ids", body, &infos); err != nil {
		return nil, err
	}
	for i := range infos {
		infos[i].Valid = infos[i].NickName != ""
	}
	return infos, nil
}
