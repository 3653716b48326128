package alphavantage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/listings-cli/internal/core/domain"
	"github.com/custodia-labs/listings-cli/internal/core/ports/driven"
)

const (
	// DefaultBaseURL is the public Alpha Vantage API host.
	DefaultBaseURL = "https://www.alphavantage.co"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// listingStatusFunction selects the listings endpoint.
	listingStatusFunction = "LISTING_STATUS"

	// noticePeekSize bounds how much of the body is inspected for a throttle notice.
	noticePeekSize = 512
)

// Config configures the client.
type Config struct {
	BaseURL           string
	APIKey            string
	Token             string
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client fetches the listings payload.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	rateLimiter *RateLimiter
}

var _ driven.ListingSource = (*Client)(nil)

// NewClient creates a client from cfg.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("alphavantage: invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if token := strings.TrimSpace(cfg.Token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		http:        httpClient,
		rateLimiter: NewRateLimiter(cfg.RequestsPerMinute),
	}, nil
}

// FetchListings requests the LISTING_STATUS document. The caller closes the body.
func (c *Client) FetchListings(ctx context.Context) (io.ReadCloser, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w: %w", domain.ErrTransport, err)
	}

	endpoint := c.endpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w: %w", domain.ErrTransport, err)
	}
	req.Header.Set("Accept", "text/csv, application/json;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.wrapError(err, "list listings")
	}

	if rlErr := c.rateLimiter.CheckRateLimit(resp); rlErr != nil {
		drainAndClose(resp.Body)
		return nil, rlErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := readMessage(resp.Body)
		drainAndClose(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			URL:        redact(endpoint),
		}
	}

	return checkNotice(resp.Body)
}

func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("function", listingStatusFunction)
	q.Set("apikey", c.apiKey)
	return c.baseURL + "/query?" + q.Encode()
}

// wrapError converts HTTP client errors to transport errors.
// url.Error is unwrapped because its message repeats the request URL,
// which carries the API key.
func (c *Client) wrapError(err error, op string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	return fmt.Errorf("alphavantage %s: %w: %w", op, domain.ErrTransport, err)
}

// checkNotice detects the short JSON notice Alpha Vantage returns with
// status 200 when the quota is spent or the key is rejected.
func checkNotice(body io.ReadCloser) (io.ReadCloser, error) {
	br := bufio.NewReaderSize(body, noticePeekSize)
	head, _ := br.Peek(noticePeekSize)
	trimmed := bytes.TrimSpace(head)

	if len(trimmed) > 0 && trimmed[0] == '{' {
		switch {
		case bytes.Contains(trimmed, []byte(`"Note"`)), bytes.Contains(trimmed, []byte(`"Information"`)):
			drainAndClose(body)
			return nil, &RateLimitError{Message: noticeText(string(trimmed))}
		case bytes.Contains(trimmed, []byte(`"Error Message"`)):
			drainAndClose(body)
			return nil, &APIError{StatusCode: http.StatusOK, Message: noticeText(string(trimmed))}
		}
	}

	return readCloser{Reader: br, Closer: body}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func readMessage(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 64<<10))
	return strings.TrimSpace(string(b))
}

func noticeText(msg string) string {
	if len(msg) > 200 {
		return msg[:200] + "..."
	}
	return msg
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

// redact strips the API key from u.
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	if q.Has("apikey") {
		q.Set("apikey", "REDACTED")
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}
