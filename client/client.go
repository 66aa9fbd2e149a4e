/*
Package client implements the createTask/getTaskResult CAPTCHA solving API.

Basic usage:

	c := client.New("YOUR_CLIENT_KEY")
	token, err := c.SolveRecaptchaV2(ctx, "https://example.com/login", siteKey)

With options:

	c := client.New(key,
	    client.WithBaseURL("http://localhost:8080"),
	    client.WithPollInterval(2*time.Second),
	    client.WithMaxAttempts(30),
	)
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Defaults used by New. The base URL matches the bundled server; point it
// at any compatible endpoint with WithBaseURL.
const (
	DefaultBaseURL      = "http://localhost:8080"
	DefaultPollInterval = 5 * time.Second

	defaultHTTPTimeout = 30 * time.Second
)

// Client talks to a CAPTCHA solving service. It is safe for concurrent use
// once constructed; all configuration happens through New.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientKey    string
	pollInterval time.Duration
	maxAttempts  int
	log          zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different service endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger routes diagnostics through the given logger. The default is
// zerolog.Nop(), so a bare client stays silent.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPollInterval sets the fixed delay between result polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxAttempts caps the number of result polls. Zero means no cap, which
// mirrors the service's own contract: a task that stays "processing" is
// polled forever unless the context expires.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// New returns a Client bound to the given clientKey.
func New(clientKey string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:      DefaultBaseURL,
		clientKey:    clientKey,
		pollInterval: DefaultPollInterval,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// post issues a single JSON POST and decodes the response body into out.
// Failures are classified: TransportError for the call itself,
// MalformedResponseError for an undecodable body.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &MalformedResponseError{Err: err}
	}
	return nil
}

// CreateTask submits a ReCaptchaV2 challenge and returns the opaque task id.
// Inputs are passed through as-is; malformed values are the service's to
// reject. No retries happen here - a failed submission is terminal.
func (c *Client) CreateTask(ctx context.Context, websiteURL, websiteKey string) (string, error) {
	req := createTaskRequest{
		ClientKey: c.clientKey,
		Task: TaskPayload{
			Type:       TaskTypeRecaptchaV2,
			WebsiteURL: websiteURL,
			WebsiteKey: websiteKey,
		},
	}

	var resp createTaskResponse
	if err := c.post(ctx, "/createTask", req, &resp); err != nil {
		c.log.Error().Err(err).Msg("createTask failed")
		return "", err
	}

	if resp.ErrorID != 0 {
		c.log.Error().Str("errorCode", resp.ErrorCode).Msg("createTask rejected")
		return "", &RemoteError{Code: resp.ErrorCode}
	}
	if resp.TaskID == "" {
		err := &MalformedResponseError{Err: errors.New("errorId is 0 but taskId is empty")}
		c.log.Error().Err(err).Msg("createTask returned no task id")
		return "", err
	}

	c.log.Debug().Str("taskId", resp.TaskID).Msg("task created")
	return resp.TaskID, nil
}

// GetTaskResult fetches the current status of a task once, without looping.
func (c *Client) GetTaskResult(ctx context.Context, taskID string) (*Result, error) {
	if taskID == "" {
		return nil, ErrEmptyTaskID
	}

	var res Result
	if err := c.post(ctx, "/getTaskResult", resultQuery{ClientKey: c.clientKey, TaskID: taskID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetBalance returns the account balance for the bound clientKey.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	var resp balanceResponse
	if err := c.post(ctx, "/getBalance", balanceRequest{ClientKey: c.clientKey}, &resp); err != nil {
		c.log.Error().Err(err).Msg("getBalance failed")
		return 0, err
	}
	if resp.ErrorID != 0 {
		return 0, &RemoteError{Code: resp.ErrorCode}
	}
	return resp.Balance, nil
}

// ReportIncorrect flags a solved task whose token was rejected by the
// target site.
func (c *Client) ReportIncorrect(ctx context.Context, taskID string) error {
	if taskID == "" {
		return ErrEmptyTaskID
	}

	var resp reportResponse
	if err := c.post(ctx, "/reportIncorrect", resultQuery{ClientKey: c.clientKey, TaskID: taskID}, &resp); err != nil {
		c.log.Error().Err(err).Msg("reportIncorrect failed")
		return err
	}
	if resp.ErrorID != 0 {
		return &RemoteError{Code: resp.ErrorCode}
	}
	return nil
}
