package avatarapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// Client fetches avatar headshot URLs from the thumbnail service.
// Lookups are best-effort: callers treat an empty URL as "no avatar".
type Client struct {
	baseURL string
	http    *fasthttp.Client
	timeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type headshotResponse struct {
	Data []struct {
		TargetID int64  `json:"targetId"`
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// Lookup resolves one profile id to its 150x150 headshot URL. Returns an
// empty string when the service has no image for the id.
func (c *Client) Lookup(ctx context.Context, profileID string) (string, error) {
	urls, err := c.LookupBulk(ctx, []string{profileID})
	if err != nil {
		return "", err
	}
	return urls[profileID], nil
}

// LookupBulk resolves many profile ids in one request. The result maps each
// requested id, in the caller's spelling, to a URL; ids the service did not
// answer for (or that are not decimal) are absent.
func (c *Client) LookupBulk(ctx context.Context, profileIDs []string) (map[string]string, error) {
	ids, byTarget := normalizeIDs(profileIDs)
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := url.Values{}
	q.Set("userIds", strings.Join(ids, ","))
	q.Set("size", "150x150")
	q.Set("format", "Png")
	reqURL := c.baseURL + "/v1/users/avatar-headshot?" + q.Encode()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(reqURL)

	if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("avatar request failed: %w", err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, fmt.Errorf("avatar api error: status=%d", status)
	}

	var body headshotResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("decode avatar response: %w", err)
	}
	for _, item := range body.Data {
		if item.ImageURL == "" {
			continue
		}
		if requested, ok := byTarget[item.TargetID]; ok {
			out[requested] = item.ImageURL
		}
	}
	return out, nil
}

// normalizeIDs canonicalizes requested ids to decimal for the query string
// and keeps a reverse mapping so results are keyed by the caller's original
// spelling (leading zeros included). Non-numeric ids are dropped.
func normalizeIDs(profileIDs []string) ([]string, map[int64]string) {
	ids := make([]string, 0, len(profileIDs))
	byTarget := make(map[int64]string, len(profileIDs))
	for _, raw := range profileIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			continue
		}
		if _, dup := byTarget[n]; dup {
			continue
		}
		byTarget[n] = raw
		ids = append(ids, strconv.FormatInt(n, 10))
	}
	return ids, byTarget
}

func (c *Client) deadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.timeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.timeout)
}
