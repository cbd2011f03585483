package gatefast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// ErrNotFound is returned when the gateway reports the referenced message no
// longer exists. Callers decide whether that is fatal for their operation.
var ErrNotFound = errors.New("gateway: message not found")

// HeaderProvider allows injecting per-request headers (auth token, bot id).
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetConfig probes the gateway's /config endpoint.
func (c *Client) GetConfig(ctx context.Context) (*GatewayConfig, error) {
	var cfg GatewayConfig
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/config", nil, &cfg, true); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SendEmbed posts one structured entry and returns its message id.
func (c *Client) SendEmbed(ctx context.Context, channel string, e Embed) (string, error) {
	var resp sendResponse
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channel))
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, embedRequest{Embed: e}, &resp, false); err != nil {
		return "", err
	}
	return resp.MsgID, nil
}

// SendText posts a plain text message (command acknowledgements).
func (c *Client) SendText(ctx context.Context, channel, text string) (string, error) {
	var resp sendResponse
	path := fmt.Sprintf("/channels/%s/messages", url.PathEscape(channel))
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, textRequest{Content: text}, &resp, false); err != nil {
		return "", err
	}
	return resp.MsgID, nil
}

// SendImage uploads a PNG payload as an image message.
func (c *Client) SendImage(ctx context.Context, channel, name string, png []byte) (string, error) {
	var resp sendResponse
	path := fmt.Sprintf("/channels/%s/files", url.PathEscape(channel))
	req := fileRequest{Name: name, Data: base64.StdEncoding.EncodeToString(png)}
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, req, &resp, false); err != nil {
		return "", err
	}
	return resp.MsgID, nil
}

// EditEmbed replaces the embed of an existing message in place.
func (c *Client) EditEmbed(ctx context.Context, channel, msgID string, e Embed) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channel), url.PathEscape(msgID))
	return c.doJSON(ctx, fasthttp.MethodPatch, path, embedRequest{Embed: e}, nil, false)
}

func (c *Client) DeleteMessage(ctx context.Context, channel, msgID string) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channel), url.PathEscape(msgID))
	return c.doJSON(ctx, fasthttp.MethodDelete, path, nil, nil, false)
}

// FetchMessage retrieves a single message by id.
func (c *Client) FetchMessage(ctx context.Context, channel, msgID string) (*HistoryEntry, error) {
	var resp fetchResponse
	path := fmt.Sprintf("/channels/%s/messages/%s", url.PathEscape(channel), url.PathEscape(msgID))
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return &HistoryEntry{MsgID: resp.MsgID, Pinned: resp.Pinned, Embed: resp.Embed}, nil
}

// History lists the most recent messages of a channel, newest first.
func (c *Client) History(ctx context.Context, channel string, limit int) ([]HistoryEntry, error) {
	var resp historyResponse
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", url.PathEscape(channel), limit)
	if err := c.doJSON(ctx, fasthttp.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Purge bulk-deletes recent non-pinned messages; the server skips pinned
// entries. Returns the number actually deleted.
func (c *Client) Purge(ctx context.Context, channel string, limit int) (int, error) {
	var resp purgeResponse
	path := fmt.Sprintf("/channels/%s/purge", url.PathEscape(channel))
	if err := c.doJSON(ctx, fasthttp.MethodPost, path, purgeRequest{Limit: limit}, &resp, false); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	reqURL := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(reqURL)
	req.Header.SetContentType("application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status == fasthttp.StatusNotFound {
			return ErrNotFound
		}
		if status < 200 || status >= 300 {
			body := string(resp.Body())
			err := fmt.Errorf("gateway api error: status=%d body=%s", status, truncate(body, 512))
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil && len(resp.Body()) > 0 {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
