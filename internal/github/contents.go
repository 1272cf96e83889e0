// Package github reads and writes the diary file kept in a GitHub repository
// through the contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/logging"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com"

const apiVersion = "2022-11-28"

// Client talks to the contents API of one GitHub host
type Client struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
	now     func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 30 second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithClock overrides the time used in commit messages.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client for baseURL. An empty baseURL means DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch reads and decodes the remote diary file. A missing file is not an
// error: it returns (nil, nil). Content that is not an array of entries,
// including a null root, is reported as ErrCorrupt.
func (c *Client) Fetch(ctx context.Context, cfg domain.SyncConfig) (*domain.RemoteSnapshot, error) {
	file, err := c.get(ctx, cfg)
	if err != nil || file == nil {
		return nil, err
	}

	raw, err := decodeContent(file.Content)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %v", cfg.FilePath, ErrCorrupt, err)
	}

	entries, err := domain.DecodeEntries(raw)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %w", cfg.FilePath, ErrCorrupt, err)
	}

	c.log.Debug(ctx, "fetched remote diary", "config", cfg, "entries", len(entries), "sha", file.SHA)
	return &domain.RemoteSnapshot{Entries: entries, SHA: file.SHA}, nil
}

// Write replaces the remote file with entries. The current sha is read right
// before the write so that an existing file is updated instead of rejected.
func (c *Client) Write(ctx context.Context, cfg domain.SyncConfig, entries []domain.Entry) error {
	if entries == nil {
		entries = []domain.Entry{}
	}
	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}

	var sha string
	file, err := c.get(ctx, cfg)
	switch {
	case err != nil:
		c.log.Warn(ctx, "could not read current sha, writing without it", "config", cfg, "error", err)
	case file != nil:
		sha = file.SHA
	}

	req := putRequest{
		Message: "Sync diary entries - " + c.now().UTC().Format(time.RFC3339),
		Content: base64.StdEncoding.EncodeToString(body),
		SHA:     sha,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPut, cfg, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError("write "+cfg.FilePath, resp)
	}

	c.log.Info(ctx, "wrote remote diary", "config", cfg, "entries", len(entries), "had_sha", sha != "")
	return nil
}

// get returns the raw contents response, or nil when the file does not exist.
func (c *Client) get(ctx context.Context, cfg domain.SyncConfig) (*contentsResponse, error) {
	resp, err := c.do(ctx, http.MethodGet, cfg, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError("fetch "+cfg.FilePath, resp)
	}

	var file contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("fetch %s: %w: %v", cfg.FilePath, ErrCorrupt, err)
	}
	return &file, nil
}

func (c *Client) do(ctx context.Context, method string, cfg domain.SyncConfig, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.contentsURL(cfg), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s %s: %w", method, cfg.FilePath, ctxErr)
		}
		return nil, fmt.Errorf("%s %s: %w: %v", method, cfg.FilePath, ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) contentsURL(cfg domain.SyncConfig) string {
	segments := strings.Split(strings.Trim(cfg.FilePath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(cfg.Username), url.PathEscape(cfg.Repo), strings.Join(segments, "/"))
}

// decodeContent undoes GitHub's base64 encoding, which wraps lines at 60 columns.
func decodeContent(content string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, content)
	return base64.StdEncoding.DecodeString(cleaned)
}

func apiError(op string, resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		body.Message = strings.TrimSpace(string(raw))
	}
	return &APIError{Op: op, StatusCode: resp.StatusCode, Message: body.Message}
}

// IsNotFoundStatus reports whether err is an APIError for a missing repository
// or path, which GitHub also uses to hide private repositories.
func IsNotFoundStatus(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type contentsResponse struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
}
