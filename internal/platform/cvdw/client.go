package cvdw

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

	"cvdwbi/internal/lead"

	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned when the API answers 429. Callers wait and retry.
	ErrRateLimited = errors.New("cvdw: rate limited")
	// ErrMalformedResponse covers undecodable bodies and missing "dados".
	ErrMalformedResponse = errors.New("cvdw: malformed response")
)

// RateLimitError carries the server's suggested wait, if any.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("cvdw: rate limited, retry after %s", e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// HTTPError is a non-200, non-429 response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("cvdw: unexpected status code %d: %s", e.StatusCode, e.Body)
}

// Page is one page of the /leads collection.
type Page struct {
	Number       int
	Leads        []lead.Lead
	TotalRecords int
	TotalPages   int
}

// pageResponse matches the /leads payload.
type pageResponse struct {
	Data         []json.RawMessage `json:"dados"`
	TotalRecords json.Number       `json:"total_de_registros"`
	TotalPages   json.Number       `json:"total_de_paginas"`
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	Email      string
	Token      string
	Timeout    time.Duration
	RPS        float64
	MaxRetries int
	HTTPClient *http.Client
	// Backoff returns the wait before retry attempt n (1-based).
	Backoff func(attempt int) time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	email      string
	token      string
	limiter    *rate.Limiter
	maxRetries int
	backoff    func(attempt int) time.Duration
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Limit(opts.RPS)
	}
	backoff := opts.Backoff
	if backoff == nil {
		backoff = func(attempt int) time.Duration {
			// 1s, 2s, 4s...
			return time.Duration(1<<uint(attempt-1)) * time.Second
		}
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		email:      opts.Email,
		token:      opts.Token,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		backoff:    backoff,
	}
}

// FetchPage retrieves one page of leads. Network errors and 5xx responses are
// retried with exponential backoff; 429 is returned immediately as a
// *RateLimitError so the caller can decide how long to wait.
func (c *Client) FetchPage(ctx context.Context, page, pageSize int) (*Page, error) {
	q := url.Values{}
	q.Set("registros_por_pagina", strconv.Itoa(pageSize))
	q.Set("pagina", strconv.Itoa(page))
	u := fmt.Sprintf("%s/leads?%s", c.baseURL, q.Encode())

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}

	p, err := decodePage(body)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	p.Number = page
	return p, nil
}

// Ping asks for a tiny page to check credentials and learn the collection size.
func (c *Client) Ping(ctx context.Context) (*Page, error) {
	return c.FetchPage(ctx, 1, 10)
}

func decodePage(body []byte) (*Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var res pageResponse
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if res.Data == nil {
		return nil, fmt.Errorf("%w: missing dados", ErrMalformedResponse)
	}

	totalRecords, err := numberToInt(res.TotalRecords)
	if err != nil {
		return nil, fmt.Errorf("%w: total_de_registros: %v", ErrMalformedResponse, err)
	}
	totalPages, err := numberToInt(res.TotalPages)
	if err != nil {
		return nil, fmt.Errorf("%w: total_de_paginas: %v", ErrMalformedResponse, err)
	}

	leads := make([]lead.Lead, 0, len(res.Data))
	for i, raw := range res.Data {
		l, err := lead.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: lead %d: %v", ErrMalformedResponse, i, err)
		}
		leads = append(leads, l)
	}

	return &Page{
		Leads:        leads,
		TotalRecords: totalRecords,
		TotalPages:   totalPages,
	}, nil
}

func numberToInt(n json.Number) (int, error) {
	if n == "" {
		return 0, nil
	}
	v, err := n.Int64()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			select {
			case <-time.After(c.backoff(i)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retry, err := c.do(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, u string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("email", c.email)
	req.Header.Set("token", c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, true, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	default:
		return nil, false, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
