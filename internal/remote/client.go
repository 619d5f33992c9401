package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/infra/tlsroots"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// IdempotencyHeader carries the client ID of a create request.
const IdempotencyHeader = "Idempotency-Key"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Config configures the Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// RateLimit is the sustained requests per second; 0 disables limiting.
	RateLimit float64
	Burst     int

	// TLSCAFile adds a private CA to the system roots.
	TLSCAFile string

	Credentials CredentialSource
	UserAgent   string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   30 * time.Second,
		RateLimit: 10,
		Burst:     20,
		UserAgent: buildinfo.UserAgent("sessbox"),
	}
}

// Client talks to the remote session server.
type Client struct {
	baseURL   string
	client    *http.Client
	creds     CredentialSource
	limiter   *rate.Limiter
	userAgent string
	logger    logger.Logger
}

// New creates a new Client.
func New(cfg Config, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("remote base url is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, domain.ErrInvalidArgument.WithDetailsf("invalid remote base url %q", cfg.BaseURL).WithCause(err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSCAFile != "" {
		tlsCfg, err := tlsroots.ClientConfig(cfg.TLSCAFile)
		if err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails("load remote CA").WithCause(err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	c := &Client{
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout, Transport: transport},
		creds:     cfg.Credentials,
		userAgent: cfg.UserAgent,
		logger:    log.With("component", "remote"),
	}
	if c.userAgent == "" {
		c.userAgent = buildinfo.UserAgent("sessbox")
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return c, nil
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasCredentials reports whether a bearer token is available.
func (c *Client) HasCredentials(ctx context.Context) bool {
	if c.creds == nil {
		return false
	}
	tok, err := c.creds.Token(ctx)
	return err == nil && tok != ""
}

// Create creates s remotely. The record's LocalID is sent as clientId and
// as the idempotency key, so a retried create returns the same record.
func (c *Client) Create(ctx context.Context, s *domain.Session) (*Record, error) {
	hdr := http.Header{}
	if s.LocalID != "" {
		hdr.Set(IdempotencyHeader, s.LocalID)
	}
	body := RecordFrom(s)
	body.ID = ""

	var rec Record
	if err := c.do(ctx, http.MethodPost, "/sessions", hdr, body, &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		return nil, domain.ErrServerRejected.WithDetails("create response has no id")
	}
	return &rec, nil
}

// Update replaces the mutable fields of the record remoteID.
func (c *Client) Update(ctx context.Context, remoteID string, s *domain.Session) (*Record, error) {
	if remoteID == "" {
		return nil, domain.ErrInvalidArgument.WithDetails("remote id is required")
	}
	body := RecordFrom(s)
	body.ID = remoteID

	var rec Record
	if err := c.do(ctx, http.MethodPut, "/sessions/"+url.PathEscape(remoteID), nil, body, &rec); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = remoteID
	}
	return &rec, nil
}

// Delete deletes the record remoteID. A record that is already gone is
// not an error.
func (c *Client) Delete(ctx context.Context, remoteID string) error {
	if remoteID == "" {
		return domain.ErrInvalidArgument.WithDetails("remote id is required")
	}
	err := c.do(ctx, http.MethodDelete, "/sessions/"+url.PathEscape(remoteID), nil, nil, nil)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// List returns the full remote session set.
func (c *Client) List(ctx context.Context) ([]*Record, error) {
	var recs []*Record
	if err := c.do(ctx, http.MethodGet, "/sessions", nil, nil, &recs); err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if r != nil && r.ID != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

// Ping checks that the server is reachable. Any HTTP response short of
// a 5xx counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return domain.ErrInternal.WithCause(err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportError(ctx, "GET /health", err)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return domain.ErrNetworkUnavailable.WithDetailsf("health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, hdr http.Header, body, target any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	token := ""
	if c.creds != nil {
		tok, err := c.creds.Token(ctx)
		if err != nil {
			return err
		}
		token = tok
	}
	if token == "" {
		return domain.ErrAuthenticationRequired.WithDetails("no credentials")
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return domain.ErrInternal.WithDetails("marshal body").WithCause(err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return domain.ErrInternal.WithDetails("create request").WithCause(err)
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.addHeaders(req, token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportError(ctx, method+" "+path, err)
	}
	c.logger.Debug("remote request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return ParseResponse(resp, target)
}

// addHeaders adds authentication and common headers.
func (c *Client) addHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
}

func (c *Client) transportError(ctx context.Context, what string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", what, ctxErr)
	}
	return domain.ErrNetworkUnavailable.WithDetails(what).WithCause(err)
}

// ParseResponse classifies the response status and decodes the body into
// target, removing any envelope around it.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return classify(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrNetworkUnavailable.WithDetails("read response").WithCause(err)
	}
	if target == nil {
		return nil
	}
	data = unwrap(data)
	if len(data) == 0 {
		return domain.ErrServerRejected.WithDetailsf("empty response body (status %d)", resp.StatusCode)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return domain.ErrServerRejected.WithDetails("parse response").WithCause(err)
	}
	return nil
}

func classify(resp *http.Response) error {
	msg := errorMessage(resp)
	method := resp.Request.Method

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuthenticationRequired.WithDetails(msg)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return domain.ErrNetworkUnavailable.WithDetails(msg)
	case resp.StatusCode == http.StatusNotFound && (method == http.MethodDelete || method == http.MethodPut):
		return domain.ErrNotFound.WithDetails(msg)
	default:
		return domain.ErrServerRejected.WithDetails(msg)
	}
}

// errorMessage extracts a message from an error body of the form
// {"code": ..., "message": ...} or {"error": ...}.
func errorMessage(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err == nil {
		text := errResp.Message
		if text == "" {
			text = errResp.Error
		}
		if text != "" {
			if errResp.Code != "" {
				return fmt.Sprintf("status %d: [%s] %s", resp.StatusCode, errResp.Code, text)
			}
			return fmt.Sprintf("status %d: %s", resp.StatusCode, text)
		}
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}
