// Package scraper fetches app reviews from the Google Play store.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/MekdelawitGebre/customer-experience-fintech/domain/review"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/metrics"
)

// DefaultBaseURL is the Play store RPC endpoint.
const DefaultBaseURL = "https://play.google.com/_/PlayStoreUi/data/batchexecute"

// MaxPageSize is the largest page the store returns.
const MaxPageSize = 200

// sortNewest orders reviews newest first.
const sortNewest = 2

const (
	metricsService  = "google_play"
	metricsEndpoint = "batchexecute"
	responsePrefix  = ")]}'"
)

// ErrUnexpectedResponse indicates the store answered with a body that does
// not have the expected shape.
var ErrUnexpectedResponse = errors.New("scraper: unexpected response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("scraper: status %d: %s", e.StatusCode, e.Body)
}

// Client pages through an app's reviews.
type Client struct {
	baseURL string
	hc      *http.Client
	lang    string
	country string
	limiter *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the RPC endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLocale sets the review language and store country.
func WithLocale(lang, country string) Option {
	return func(c *Client) {
		if lang != "" {
			c.lang = lang
		}
		if country != "" {
			c.country = country
		}
	}
}

// WithDelay sets the minimum time between page requests. Zero disables the delay.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithCacheDir stores successful responses under dir and replays them on
// identical requests.
func WithCacheDir(dir string) Option {
	return func(c *Client) {
		if dir == "" {
			return
		}
		c.hc = &http.Client{
			Timeout:   c.hc.Timeout,
			Transport: NewCachingTransport(dir, c.hc.Transport),
		}
	}
}

// New creates a Client. Options are applied in order.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		lang:    "en",
		country: "us",
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reviews fetches up to n of the newest reviews for appID. Pages of at most
// MaxPageSize are requested until n reviews are collected or the store
// returns no continuation token. Errors are not retried.
func (c *Client) Reviews(ctx context.Context, appID string, n int) ([]review.Raw, error) {
	var all []review.Raw
	token := ""
	for len(all) < n {
		if err := c.limiter.Wait(ctx); err != nil {
			return all, fmt.Errorf("wait for rate limiter: %w", err)
		}
		page, next, err := c.Page(ctx, appID, min(MaxPageSize, n-len(all)), token)
		if err != nil {
			return all, err
		}
		all = append(all, page...)
		if next == "" || len(page) == 0 {
			break
		}
		token = next
	}
	if len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Page fetches one page of reviews. An empty token requests the first page.
// The returned token is empty when there are no further pages.
func (c *Client) Page(ctx context.Context, appID string, count int, token string) ([]review.Raw, string, error) {
	endpoint := c.baseURL + "?" + url.Values{"hl": {c.lang}, "gl": {c.country}}.Encode()
	form := url.Values{"f.req": {requestPayload(appID, count, token)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.ObserveExternal(metricsService, metricsEndpoint, 0, time.Since(start))
		return nil, "", fmt.Errorf("fetch reviews for %s: %w", appID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.ObserveExternal(metricsService, metricsEndpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return parseResponse(body)
}

// requestPayload builds the f.req value for the UsvDTd review RPC.
func requestPayload(appID string, count int, token string) string {
	tok := "null"
	if token != "" {
		tok = strconv.Quote(token)
	}
	inner := fmt.Sprintf(`[null,null,[2,%d,[%d,null,%s],null,[]],[%s,7]]`,
		sortNewest, count, tok, strconv.Quote(appID))
	outer := []any{[]any{[]any{"UsvDTd", inner, nil, "generic"}}}
	b, _ := json.Marshal(outer)
	return string(b)
}

// parseResponse decodes a batchexecute answer: a )]}' guard line followed
// by a JSON envelope whose [0][2] element is itself a JSON document holding
// the reviews at [0] and the next token at [-2][-1].
func parseResponse(body []byte) ([]review.Raw, string, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(body), []byte(responsePrefix)))

	var envelope []any
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("decode envelope: %w", err)
	}
	payload, ok := at(envelope, 0, 2).(string)
	if !ok {
		return nil, "", fmt.Errorf("%w: missing payload", ErrUnexpectedResponse)
	}

	var data []any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, "", fmt.Errorf("decode payload: %w", err)
	}

	items, _ := at(data, 0).([]any)
	rows := make([]review.Raw, 0, len(items))
	for _, item := range items {
		fields, ok := item.([]any)
		if !ok {
			continue
		}
		rows = append(rows, parseReview(fields))
	}

	var token string
	if len(data) >= 2 {
		if last, ok := data[len(data)-2].([]any); ok && len(last) > 0 {
			token, _ = last[len(last)-1].(string)
		}
	}
	return rows, token, nil
}

func parseReview(fields []any) review.Raw {
	text, _ := at(fields, 4).(string)
	user, _ := at(fields, 1, 0).(string)

	var rating string
	if score, ok := at(fields, 2).(float64); ok {
		rating = strconv.Itoa(int(score))
	}

	var date string
	if secs, ok := at(fields, 5, 0).(float64); ok {
		date = time.Unix(int64(secs), 0).UTC().Format(time.RFC3339)
	}

	return review.Raw{
		Text:     text,
		Rating:   rating,
		Date:     date,
		UserName: user,
		Source:   review.SourceGooglePlay,
	}
}

// at walks nested JSON arrays, returning nil when any index is missing.
func at(v any, path ...int) any {
	for _, i := range path {
		arr, ok := v.([]any)
		if !ok || i < 0 || i >= len(arr) {
			return nil
		}
		v = arr[i]
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
