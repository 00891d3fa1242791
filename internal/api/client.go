// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the backend API client.
const (
	// DefaultTimeout is the wall-clock ceiling for a single request attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors. Total attempts are DefaultMaxRetries + 1.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 4 * 1024 * 1024 // 4MB limit

	// defaultRequestsPerSecond bounds outbound request rate so a retry
	// storm cannot hammer the backend.
	defaultRequestsPerSecond = 10
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared transport for all backend requests.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// sharedStreamTransport is used for SSE requests: no client timeout (stream
// lifetime is context-controlled), but the open itself still has a header
// deadline so a hung connect fails like any other timeout.
var sharedStreamTransport = &http.Transport{
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: DefaultTimeout,
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is an HTTP client for the astrology backend.
//
// A Client is constructed once and passed to whatever needs it; there is no
// package-level singleton. The credential is written once at sign-in and
// read by every outgoing request.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
	// streamClient has no client timeout; stream lifetime is context-controlled.
	streamClient *http.Client
	maxRetries   int
	timeout      time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
	limiter      *rate.Limiter
	verbose      bool
}

// NewClient creates a client for the backend at baseURL.
// The credential may be empty; authenticated endpoints then fail with
// ErrNoCredential without issuing a request.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		streamClient: &http.Client{
			Transport: sharedStreamTransport,
		},
		maxRetries: DefaultMaxRetries,
		timeout:    DefaultTimeout,
		retryBase:  retryBaseDelay,
		retryMax:   retryMaxDelay,
		limiter:    rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultRequestsPerSecond),
	}
}

// WithCredential sets the bearer credential applied to outgoing requests.
func (c *Client) WithCredential(credential string) *Client {
	c.credential = strings.TrimSpace(credential)
	return c
}

// WithTimeout sets the per-attempt wall-clock timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries >= 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithBackoff overrides the retry backoff base delay and cap.
func (c *Client) WithBackoff(base, max time.Duration) *Client {
	if base > 0 {
		c.retryBase = base
	}
	if max >= base {
		c.retryMax = max
	}
	return c
}

// WithRateLimit overrides the outbound requests-per-second bound.
func (c *Client) WithRateLimit(rps float64) *Client {
	if rps > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
	}
	return c
}

// WithVerbose enables request/response logging (method, path, status,
// duration — never bodies or credentials).
func (c *Client) WithVerbose(verbose bool) *Client {
	c.verbose = verbose
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// HasCredential reports whether a bearer credential is configured.
func (c *Client) HasCredential() bool { return c.credential != "" }

// SetCredential replaces the credential after sign-in.
func (c *Client) SetCredential(credential string) {
	c.credential = strings.TrimSpace(credential)
}

// =============================================================================
// REQUEST CORE
// =============================================================================

// setHeaders applies the standard headers. The bearer credential is attached
// whenever present, including on guest-mode endpoints.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "astra/"+Version)
	if c.credential != "" {
		req.Header.Set("Authorization", "Bearer "+c.credential)
	}
}

// Version is the client version reported in the User-Agent header.
// Overridden at build time via main.
var Version = "0.1.0"

// logRequest logs an outgoing request without exposing sensitive data.
func (c *Client) logRequest(method, path string) {
	if c.verbose {
		log.Printf("API request: %s %s", method, path)
	}
}

// logResponse logs a response status with duration.
func (c *Client) logResponse(method, path string, status int, duration time.Duration) {
	if c.verbose {
		log.Printf("API response: %s %s -> %d (%v)", method, path, status, duration)
	}
}

// backoffDelay returns the delay before retry attempt n (1-based), applying
// exponential growth, a hard cap, and random jitter. Jitter is bounded by a
// quarter of the base delay so consecutive delays stay non-decreasing.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBase * time.Duration(1<<uint(attempt-1))
	if delay > c.retryMax {
		delay = c.retryMax
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	if delay+jitter > c.retryMax {
		return c.retryMax
	}
	return delay + jitter
}

// doJSON performs a JSON request against path with retry and backoff,
// decoding the envelope's data field into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoffDelay(attempt)):
			}
		}

		err := c.doOnce(ctx, method, path, bodyBytes, out)
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded for %s: %w", op, lastErr)
}

// doOnce performs a single attempt with its own wall-clock deadline.
func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	op := method + " " + path

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	c.logRequest(method, path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		// The parent context aborting is the caller's decision, not a
		// transport failure.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attemptCtx.Err() == context.DeadlineExceeded || IsTimeout(err) {
			return &TimeoutError{Op: op, Timeout: c.timeout.String()}
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	c.logResponse(method, path, resp.StatusCode, duration)

	raw, err := readResponse(resp)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	return decodeEnvelope(resp.StatusCode, raw, out)
}

// readResponse reads the response body with a size limit.
// SECURITY: Response size limit prevents memory exhaustion.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(raw)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return raw, nil
}

// decodeEnvelope parses the uniform response envelope.
// success:false is authoritative even on a 2xx status.
func decodeEnvelope(status int, raw []byte, out any) error {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if status >= 200 && status < 300 {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		// Unparseable error body: keep the status, drop the body.
		return &HTTPError{Status: status}
	}

	if status < 200 || status >= 300 || !env.Success {
		httpErr := &HTTPError{Status: status}
		if env.Error != nil {
			httpErr.Code = env.Error.Code
			httpErr.Message = env.Error.Message
		}
		// An envelope failure on a 2xx still needs a failing status class.
		if httpErr.Status >= 200 && httpErr.Status < 300 {
			httpErr.Status = http.StatusUnprocessableEntity
		}
		return httpErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Onboard submits the one-time birth-detail payload.
// The backend acknowledges with 202 and computes the profile asynchronously;
// poll GetProfile until it reports completed or failed.
func (c *Client) Onboard(ctx context.Context, req *OnboardingRequest) (*OnboardingAck, error) {
	if !c.HasCredential() {
		return nil, ErrNoCredential
	}
	var ack OnboardingAck
	if err := c.doJSON(ctx, http.MethodPost, "/users/onboard", req, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// GetProfile fetches the caller's profile. A 404 (errors.Is(err, ErrNotFound))
// means the user has not onboarded yet.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	if !c.HasCredential() {
		return nil, ErrNoCredential
	}
	var profile Profile
	if err := c.doJSON(ctx, http.MethodGet, "/users/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// SendChat performs a synchronous chat turn. Works in guest mode: no
// credential is required, though one is attached when configured.
func (c *Client) SendChat(ctx context.Context, message, sessionID string) (*ChatReply, error) {
	var reply ChatReply
	req := &ChatRequest{Message: message, SessionID: sessionID}
	if err := c.doJSON(ctx, http.MethodPost, "/chat/send", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Health probes the unauthenticated liveness endpoint and returns the
// round-trip time. Performs exactly one attempt; callers own retry policy.
func (c *Client) Health(ctx context.Context) (time.Duration, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	rtt := time.Since(start)
	if err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return rtt, &TimeoutError{Op: "GET /health", Timeout: c.timeout.String()}
		}
		return rtt, &NetworkError{Op: "GET /health", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode != http.StatusOK {
		return rtt, &HTTPError{Status: resp.StatusCode}
	}
	return rtt, nil
}
