// Package remote holds the narrow clients for the external collaborators:
// the user-profile API and the push-notification service. Transport errors
// are mapped to empty results at this boundary so the core's control flow
// never depends on HTTP details.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// resource is a thin JSON client over one remote HTTP API. Timeouts are the
// caller's concern: pass an *http.Client configured with one.
type resource struct {
	base string
	http *http.Client
	log  zerolog.Logger
}

func newResource(base string, hc *http.Client, log zerolog.Logger) *resource {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &resource{base: base, http: hc, log: log}
}

func (r *resource) getJSON(ctx context.Context, uri string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/"+uri, nil)
	if err != nil {
		return err
	}
	return r.do(req, out)
}

func (r *resource) postJSON(ctx context.Context, uri string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/"+uri, jsonBody(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return r.do(req, out)
}

func (r *resource) do(req *http.Request, out any) error {
	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote: %s %s returned %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
