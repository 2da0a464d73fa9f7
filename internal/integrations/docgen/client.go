// Package docgen talks to an OpenAI Assistants-compatible endpoint whose
// assistant holds the agenda Word document template and a code interpreter.
// The assistant fills the template from the Markdown agenda and returns a
// reference to the produced .docx.
package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// documentPromptPrefix frames every generation request: the assistant must
// fill the existing table in the template document, never create a new one.
const documentPromptPrefix = `Use the agenda document format available with you. Add the markdown content under [Agenda for Innovation Hub Session] below into the document.
- The document contains a table.
- The first row is a merged cell across the width of the table. Insert details like Customer Name, Date of the Engagement, Location, and Engagement Type there.
- The second row contains the column names: Time (IST), Speaker, Topic, Description.
- From the third row onwards, map the agenda line items into the existing table, adding rows as required. DO NOT CREATE A NEW TABLE.
- Save the document with a file name in the format Agenda-$EngagementType-$CustomerName.docx.

[Agenda for Innovation Hub Session]
`

type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type threadResponse struct {
	ID string `json:"id"`
}

type runResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageListResponse struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text *struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// Client drives the assistants document-generation flow: create a message on
// the session thread, start a run, poll it to completion, read the reply.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	getter       Getter
	paramPrefix  string
	assistantID  string
	pollInterval time.Duration
	pollTimeout  time.Duration

	keyOnce sync.Once
	apiKey  string
	keyErr  error
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPolling overrides the run poll cadence and the overall deadline.
func WithPolling(interval, timeout time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	}
}

// NewClient creates a Client for the given assistant. The API key is fetched
// from SSM lazily, mirroring the chat client.
func NewClient(ps Getter, paramPrefix, assistantID string, opts ...Option) (*Client, error) {
	if ps == nil {
		return nil, errors.New("docgen: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("docgen: parameter prefix must not be empty")
	}
	if strings.TrimSpace(assistantID) == "" {
		return nil, errors.New("docgen: assistant id must not be empty")
	}
	c := &Client{
		baseURL:      "https://api.openai.com/v1",
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		getter:       ps,
		paramPrefix:  paramPrefix,
		assistantID:  assistantID,
		pollInterval: 500 * time.Millisecond,
		pollTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveAPIKey(ctx context.Context) (string, error) {
	c.keyOnce.Do(func() {
		c.apiKey, c.keyErr = fetchAPIKey(ctx, c.getter, c.paramPrefix+"/open-ai-token")
	})
	return c.apiKey, c.keyErr
}

func fetchAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("docgen: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("docgen: unmarshal paramstore token value as JSON: %w", err)
	}
	if tp.Token == "" {
		return "", errors.New("docgen: API token is empty")
	}
	return tp.Token, nil
}

func (c *Client) url(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + path
}

// CreateThread creates a provider thread whose lifetime matches the session.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var out threadResponse
	if err := c.doJSON(ctx, http.MethodPost, c.url("/threads"), map[string]any{}, &out); err != nil {
		return "", fmt.Errorf("docgen: create thread: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("docgen: create thread: empty thread id")
	}
	return out.ID, nil
}

// Generate submits the agenda query on the given thread, runs the assistant,
// polls the run to completion, and returns the assistant's reply text. The
// poll loop is bounded by the configured overall timeout.
func (c *Client) Generate(ctx context.Context, threadID, query string) (string, error) {
	if strings.TrimSpace(threadID) == "" {
		return "", errors.New("docgen: thread id must not be empty")
	}

	msgBody := map[string]any{
		"role":    "user",
		"content": documentPromptPrefix + "\n" + query,
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("/threads/"+threadID+"/messages"), msgBody, &struct{}{}); err != nil {
		return "", fmt.Errorf("docgen: create message: %w", err)
	}

	var run runResponse
	runBody := map[string]any{
		"assistant_id": c.assistantID,
		"temperature":  0.3,
	}
	if err := c.doJSON(ctx, http.MethodPost, c.url("/threads/"+threadID+"/runs"), runBody, &run); err != nil {
		return "", fmt.Errorf("docgen: create run: %w", err)
	}

	run, err := c.waitForRun(ctx, threadID, run)
	if err != nil {
		return "", err
	}
	if run.Status != "completed" {
		if run.LastError != nil {
			return "", fmt.Errorf("docgen: run ended with status %q: %s", run.Status, run.LastError.Message)
		}
		return "", fmt.Errorf("docgen: run ended with status %q", run.Status)
	}

	return c.latestAssistantReply(ctx, threadID)
}

// waitForRun polls the run until it leaves queued/in_progress, or until the
// poll timeout or caller context expires.
func (c *Client) waitForRun(ctx context.Context, threadID string, run runResponse) (runResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for run.Status == "queued" || run.Status == "in_progress" {
		select {
		case <-ctx.Done():
			return runResponse{}, fmt.Errorf("docgen: run %s did not complete: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}
		if err := c.doJSON(ctx, http.MethodGet, c.url("/threads/"+threadID+"/runs/"+run.ID), nil, &run); err != nil {
			return runResponse{}, fmt.Errorf("docgen: poll run: %w", err)
		}
	}
	return run, nil
}

func (c *Client) latestAssistantReply(ctx context.Context, threadID string) (string, error) {
	var list messageListResponse
	if err := c.doJSON(ctx, http.MethodGet, c.url("/threads/"+threadID+"/messages"), nil, &list); err != nil {
		return "", fmt.Errorf("docgen: list messages: %w", err)
	}
	// Messages come back newest first.
	for _, m := range list.Data {
		if m.Role != "assistant" {
			continue
		}
		for _, content := range m.Content {
			if content.Text != nil && content.Text.Value != "" {
				return content.Text.Value, nil
			}
		}
		break
	}
	return "", errors.New("docgen: no assistant reply on thread")
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	apiKey, err := c.resolveAPIKey(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("unexpected status %d from %s: %s", res.StatusCode, url, string(buf))
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
