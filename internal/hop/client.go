package hop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker"
)

const (
	maxBodyBytes   = 1 << 20
	defaultBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
	tripAfter      = 5
)

var errServerStatus = errors.New("server error status")

// Observer receives one outcome per upstream call.
type Observer interface {
	ObserveUpstream(hop, outcome string, elapsed time.Duration)
}

// Options configures a Client.
type Options struct {
	Name           string
	BaseURL        string
	ConnectTimeout time.Duration
	Timeout        time.Duration
	Retries        int
	RetryBackoff   time.Duration
	Token          string
	Observer       Observer
}

// Client calls one upstream hop with bounded time, retries on transport
// failures and 5xx statuses, and a circuit breaker shared across requests.
type Client struct {
	name     string
	baseURL  string
	token    string
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	observer Observer
}

// Response is a successful (2xx) upstream reply.
type Response struct {
	Status int
	Body   []byte
}

// New constructs a Client for the hop described by opts.
func New(opts Options) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = opts.ConnectTimeout

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	return &Client{
		name:     opts.Name,
		baseURL:  opts.BaseURL,
		token:    opts.Token,
		timeout:  opts.Timeout,
		retries:  opts.Retries,
		backoff:  backoff,
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		observer: opts.Observer,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        opts.Name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= tripAfter
			},
			// a caller walking away says nothing about the upstream's health
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// Name returns the hop name used in errors and metrics.
func (c *Client) Name() string { return c.name }

// Get performs GET baseURL+path with the given query. Any failure is a *Error.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	delay := c.backoff
	for attempt := 0; ; attempt++ {
		start := time.Now()
		resp, err := c.attempt(ctx, rawURL)
		outcome := classify(resp, err)
		c.observe(outcome, time.Since(start))

		switch outcome {
		case "ok":
			return resp, nil
		case "error_status":
			if resp.Status < 500 || attempt >= c.retries {
				return nil, Unavailable(c.name, resp.Status, statusDetail(path, resp.Body), nil)
			}
		case "circuit_open":
			return nil, Unavailable(c.name, 0, "circuit open", err)
		case "timeout", "canceled":
			return nil, Unavailable(c.name, 0, "request to "+path+" did not complete", err)
		default:
			if attempt >= c.retries {
				return nil, Unavailable(c.name, 0, "request to "+path+" failed", err)
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, Unavailable(c.name, 0, "request to "+path+" did not complete", ctx.Err())
		case <-timer.C:
		}
		delay = min(delay*2, maxBackoff)
	}
}

// attempt runs one request through the breaker. Statuses >= 500 count as
// breaker failures; the response is still returned so the status is known.
func (c *Client) attempt(ctx context.Context, rawURL string) (*Response, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.do(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if resp.Status >= 500 {
			return resp, errServerStatus
		}
		return resp, nil
	})
	resp, _ := result.(*Response)
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", rawURL, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", rawURL, err)
	}

	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// statusDetail names the failing path and, when the upstream answered with
// a JSON error body, carries its message along.
func statusDetail(path string, body []byte) string {
	detail := "bad status from " + path
	var upstream struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &upstream) == nil && upstream.Error != "" {
		detail += ": " + upstream.Error
	}
	return detail
}

func classify(resp *Response, err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case err != nil:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "transport_error"
	case resp.Status < 200 || resp.Status > 299:
		return "error_status"
	default:
		return "ok"
	}
}

func (c *Client) observe(outcome string, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(c.name, outcome, elapsed)
	}
}
