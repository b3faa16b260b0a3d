package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/aiot-hub/aiot/backend/go-client/internal/storage"
	"github.com/aiot-hub/aiot/backend/go-client/pkg/logger"
)

// ErrNoCSRFToken is returned when /csrf-cookie yields neither a body token nor a cookie.
var ErrNoCSRFToken = errors.New("csrf bootstrap returned no token")

// CSRFPath is the bootstrap endpoint, relative to the API base URL.
const CSRFPath = "/csrf-cookie"

type csrfResponse struct {
	CSRFToken  string `json:"csrf_token"`
	CSRFToken2 string `json:"csrfToken"`
	Token      string `json:"token"`
}

func (r csrfResponse) value() string {
	for _, v := range []string{r.CSRFToken, r.CSRFToken2, r.Token} {
		if v != "" {
			return v
		}
	}
	return ""
}

// InitCSRF fetches a CSRF token once per session bootstrap and stores it in
// the session and the cookie jar.
func (c *Client) InitCSRF(ctx context.Context) (string, error) {
	var body csrfResponse
	if err := c.Do(ctx, http.MethodGet, CSRFPath, nil, &body); err != nil {
		return "", err
	}
	tok := body.value()
	if tok == "" {
		u, _ := c.resolve(CSRFPath, nil)
		for _, ck := range c.http.Jar.Cookies(u) {
			if (ck.Name == storage.KeyCSRF || ck.Name == "XSRF-TOKEN") && ck.Value != "" {
				tok = ck.Value
				break
			}
		}
	}
	if tok == "" {
		return "", ErrNoCSRFToken
	}

	c.http.Jar.SetCookies(c.base, []*http.Cookie{{Name: storage.KeyCSRF, Value: tok, Path: "/"}})
	if c.sess != nil {
		if err := c.sess.SetCSRFToken(ctx, tok); err != nil {
			return "", err
		}
	}
	logger.Debugf("csrf token initialized (len=%d)", len(tok))
	return tok, nil
}
