// Package httpclient wraps net/http for the network calls this module makes:
// fetching support documents and posting to a remote verifier service.
// Transport failures are reported as connection errors so callers can tell a
// broken network apart from an invalid assertion.
package httpclient

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/return42/browserid/errors"
)

// DefaultTimeout bounds each request. Verification blocks the relying party's
// login path, so a hung fetch must fail fast.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client.
type Client struct {
	client *http.Client
}

func New() *Client {
	return &Client{client: &http.Client{Timeout: DefaultTimeout}}
}

// NewWithClient wraps an existing http.Client, so callers can install their
// own transport.
func NewWithClient(client *http.Client) *Client {
	return &Client{client: client}
}

// Get does an HTTP GET of the specified resource and returns the response
// status and body.
func (c *Client) Get(resource string) (int, []byte, error) {
	resp, err := c.client.Get(resource)
	if err != nil {
		return 0, nil, errors.Errorf(errors.KindConnection, "failed to fetch %s: %s", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Errorf(errors.KindConnection, "failed to read response body: %s", err)
	}

	return resp.StatusCode, body, nil
}

// PostForm does a form-encoded HTTP POST to the specified resource and
// returns the response status and body.
func (c *Client) PostForm(resource string, form url.Values) (int, []byte, error) {
	resp, err := c.client.Post(resource, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, errors.Errorf(errors.KindConnection, "failed to post to %s: %s", resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Errorf(errors.KindConnection, "failed to read response body: %s", err)
	}

	return resp.StatusCode, body, nil
}
