package practicum

import (
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

	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

// DefaultEndpoint is the Yandex Practicum homework status API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

const (
	defaultTimeout = 30 * time.Second
	// Error bodies are only kept for logs.
	maxErrorBody = 512
)

type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds a single request. Zero means the default (30s).
	Timeout time.Duration
}

// Client fetches homework statuses. It never retries; that is the poller's job.
type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides time.Now, used when from is zero.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func New(cfg Config, log logx.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("practicum endpoint: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{
		cfg:  cfg,
		log:  log,
		http: &http.Client{Timeout: cfg.Timeout},
		now:  time.Now,
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	return c, nil
}

// Fetch returns homework statuses updated after from (unix seconds).
// A zero from means "now".
//
// Failures are *homework.Error of kind KindTransport or KindUnexpectedResponse.
func (c *Client) Fetch(ctx context.Context, from int64) (homework.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if from <= 0 {
		from = c.now().Unix()
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return homework.Response{}, homework.NewError(homework.KindUnexpectedResponse, "fetch", err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(from, 10))
	u.RawQuery = q.Encode()

	rctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return homework.Response{}, homework.NewError(homework.KindTransport, "fetch", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("homework api request failed",
			logx.Err(err),
			logx.Int64("from_date", from),
			logx.Duration("took", time.Since(started)),
		)
		return homework.Response{}, homework.NewError(homework.KindTransport, "fetch", fmt.Errorf("%w: %w", homework.ErrTransport, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Error("homework api returned unexpected status",
			logx.Int("status", resp.StatusCode),
			logx.Int64("from_date", from),
			logx.String("body", strings.TrimSpace(string(body))),
		)
		return homework.Response{}, homework.NewError(homework.KindUnexpectedResponse, "fetch",
			fmt.Errorf("%w: http %d", homework.ErrUnexpectedResponse, resp.StatusCode))
	}

	var out homework.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Error("homework api returned malformed body", logx.Err(err), logx.Int64("from_date", from))
		kind := homework.KindUnexpectedResponse
		if rctx.Err() != nil {
			kind = homework.KindTransport
		}
		return homework.Response{}, homework.NewError(kind, "fetch", fmt.Errorf("decode body: %w", err))
	}

	c.log.Debug("homework api answered",
		logx.Int64("from_date", from),
		logx.Int("homeworks", len(out.Homeworks)),
		logx.Duration("took", time.Since(started)),
	)
	return out, nil
}
