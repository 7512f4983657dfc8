// Package notify carries the completion handshake between a benchmark run and
// the external controller that orchestrates it: the run issues a GET to
// http://<host>:<port>/continue, and the controller waits for that call.
package notify

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ContinuePath is the controller endpoint hit when a run completes.
const ContinuePath = "/continue"

// statusError is returned for non-2xx responses.
type statusError struct {
	code int
	body string
}

func (e statusError) Error() string {
	return fmt.Sprintf("controller returned %d: %s", e.code, e.body)
}

// StatusCode returns the HTTP status of a non-2xx controller response, or 0.
func StatusCode(err error) int {
	if se, ok := errors.Cause(err).(statusError); ok {
		return se.code
	}
	return 0
}

// Client notifies the controller. It never retries.
type Client struct {
	url  string
	http *http.Client
}

// NewClient targets http://host:port/continue. A zero timeout means the
// request is bounded only by the context passed to Continue.
func NewClient(host string, port int, timeout time.Duration) *Client {
	return &Client{
		url:  "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + ContinuePath,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) URL() string { return c.url }

// Continue performs the GET and returns the response body read in full.
func (c *Client) Continue(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build continue request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", c.url)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read continue response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", statusError{code: resp.StatusCode, body: string(body)}
	}
	return string(body), nil
}
