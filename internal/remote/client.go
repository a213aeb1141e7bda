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

	"github.com/google/uuid"
	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// ClientConfig configures the HTTP adapter.
type ClientConfig struct {
	// BaseURL is the root of the compiler service API, e.g. http://localhost:8080/api.
	BaseURL string
	// Timeout bounds every request so that no phase stays in flight forever.
	Timeout time.Duration
	// RateLimit is the number of requests per second allowed across all
	// phases. Zero disables limiting.
	RateLimit float64
	// Burst is the limiter bucket size. Defaults to 1.
	Burst int
	// Token is sent as a bearer token when set.
	Token string
}

// Client talks to the compiler service over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	token   string
}

// NewClient builds an HTTP adapter. A zero Timeout defaults to 30 seconds.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse remote base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("remote base URL must be http or https, got %q", base.Scheme)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: limiter,
		token:   cfg.Token,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// SubmitConfiguration implements Service.
func (c *Client) SubmitConfiguration(ctx context.Context, p phase.Phase, projectID string, cfg rules.Configuration) error {
	if cfg == nil {
		return &TransportError{Phase: p, Action: phasestate.ActionSubmit, Message: "no configuration given"}
	}
	body, err := json.Marshal(cfg)
	if err != nil {
		return &TransportError{Phase: p, Action: phasestate.ActionSubmit, Message: "failed to encode configuration", Err: err}
	}
	_, err = c.do(ctx, p, phasestate.ActionSubmit, projectID, body)
	return err
}

// GenerateArtifact implements Service.
func (c *Client) GenerateArtifact(ctx context.Context, p phase.Phase, projectID string) (artifact.Artifact, error) {
	raw, err := c.do(ctx, p, phasestate.ActionGenerate, projectID, nil)
	if err != nil {
		return nil, err
	}
	a, err := artifact.Decode(raw)
	if err != nil {
		return nil, &TransportError{Phase: p, Action: phasestate.ActionGenerate, Message: "malformed artifact in response", Err: err}
	}
	if want := ExpectedKind(p); a.Kind() != want {
		return nil, &TransportError{
			Phase:   p,
			Action:  phasestate.ActionGenerate,
			Message: fmt.Sprintf("expected %s artifact, got %s", want, a.Kind()),
		}
	}
	return a, nil
}

// errorBody is the shape of an error response from the service.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (c *Client) do(ctx context.Context, p phase.Phase, action phasestate.Action, projectID string, body []byte) ([]byte, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, &IdentityError{Phase: p, Action: action, Err: ErrMissingProject}
	}

	requestID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("phase", p.String(), "action", string(action), "request_id", requestID)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Phase: p, Action: action, Message: "rate limiter wait aborted", Err: err}
		}
	}

	endpoint := c.baseURL.JoinPath("projects", projectID, "phases", p.String(), string(action))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Phase: p, Action: action, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	logger.Debug("Sending request to compiler service.", "url", endpoint.String())
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn("Compiler service unreachable.", "error", err)
		return nil, &TransportError{Phase: p, Action: action, Message: "compiler service unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Phase: p, Action: action, StatusCode: resp.StatusCode, Message: "failed to read response body", Err: err}
	}
	logger.Debug("Received response from compiler service.", "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	var eb errorBody
	if err := json.Unmarshal(respBody, &eb); err != nil && len(respBody) > 0 {
		logger.Debug("Error response body is not JSON; using the status text.", "status", resp.StatusCode, "error", err, "body_bytes", len(respBody))
	}
	msg := eb.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound && eb.Code == "project_not_found":
		logger.Warn("Compiler service rejected identity.", "status", resp.StatusCode, "message", msg)
		return nil, &IdentityError{Phase: p, Action: action, StatusCode: resp.StatusCode, Message: msg}
	}
	logger.Warn("Compiler service returned an error.", "status", resp.StatusCode, "message", msg)
	return nil, &TransportError{Phase: p, Action: action, StatusCode: resp.StatusCode, Message: msg}
}
