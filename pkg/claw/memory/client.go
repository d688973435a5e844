// Package memory – client.go implements the HTTP client for the Supermemory
// API. Every call is a single attempt bounded by the client timeout.
//
// Endpoints:
//
//	POST /v3/documents                              - ingest
//	POST /v4/search                                 - hybrid search
//	GET  /v1/user-profiles/<containerTag>/<userId>  - read profile
//	PUT  /v1/user-profiles/<containerTag>/<userId>  - write profile
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds every request when Config.Timeout is zero.
	DefaultTimeout = 10 * time.Second

	// SearchModeHybrid is the only search mode this client issues.
	SearchModeHybrid = "hybrid"

	maxResponseBytes = 8 * 1024 * 1024
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	// Timeout bounds each call; zero means DefaultTimeout.
	Timeout time.Duration
	// HTTPClient is optional; its own Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the Supermemory API. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// Response is a decoded JSON object returned by the service.
type Response map[string]any

// NewClient creates a client for cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  httpClient,
		logger:  logger.With("component", "supermemory"),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

// IngestInput describes one document to ingest.
type IngestInput struct {
	TenantID     string
	ContainerTag string
	Namespace    string
	Source       string
	ExternalID   string
	Content      string
	UserID       string
}

type ingestBody struct {
	CustomID     string   `json:"customId"`
	Content      string   `json:"content"`
	ContainerTag string   `json:"containerTag"`
	Metadata     Metadata `json:"metadata"`
}

// IngestDocument stores a document under its deterministic custom id so that
// re-ingesting the same logical fact replaces rather than duplicates it.
func (c *Client) IngestDocument(ctx context.Context, in IngestInput) (Response, error) {
	body := ingestBody{
		CustomID:     BuildCustomID(in.TenantID, in.Namespace, in.ExternalID),
		Content:      in.Content,
		ContainerTag: in.ContainerTag,
		Metadata: BuildMetadata(MetadataInput{
			TenantID:     in.TenantID,
			ContainerTag: in.ContainerTag,
			Source:       in.Source,
			Namespace:    in.Namespace,
			UserID:       in.UserID,
		}),
	}
	return c.request(ctx, "ingest", http.MethodPost, "/v3/documents", body)
}

// SearchInput describes a hybrid search.
type SearchInput struct {
	Query        string
	ContainerTag string
	Threshold    float64
	TopK         int
	UserID       string
}

type searchBody struct {
	Query        string  `json:"query"`
	ContainerTag string  `json:"containerTag"`
	Mode         string  `json:"mode"`
	Threshold    float64 `json:"threshold"`
	Limit        int     `json:"limit"`
	UserID       string  `json:"userId,omitempty"`
}

// Search runs a hybrid search scoped to the container tag.
func (c *Client) Search(ctx context.Context, in SearchInput) (Response, error) {
	return c.request(ctx, "search", http.MethodPost, "/v4/search", searchBody{
		Query:        in.Query,
		ContainerTag: in.ContainerTag,
		Mode:         SearchModeHybrid,
		Threshold:    in.Threshold,
		Limit:        in.TopK,
		UserID:       in.UserID,
	})
}

// GetUserProfile reads the profile of userID within containerTag.
func (c *Client) GetUserProfile(ctx context.Context, containerTag, userID string) (Response, error) {
	return c.request(ctx, "get profile", http.MethodGet, profilePath(containerTag, userID), nil)
}

// ProfileInput is the payload for UpsertUserProfile.
type ProfileInput struct {
	ContainerTag string
	UserID       string
	Traits       map[string]any
}

// UpsertUserProfile replaces the traits of a user profile.
func (c *Client) UpsertUserProfile(ctx context.Context, in ProfileInput) (Response, error) {
	traits := in.Traits
	if traits == nil {
		traits = map[string]any{}
	}
	return c.request(ctx, "put profile", http.MethodPut, profilePath(in.ContainerTag, in.UserID),
		map[string]any{"traits": traits})
}

// profilePath escapes both segments so that ':' and '/' survive as %3A / %2F.
func profilePath(containerTag, userID string) string {
	return "/v1/user-profiles/" + escapeSegment(containerTag) + "/" + escapeSegment(userID)
}

// escapeSegment percent-encodes everything except unreserved characters.
// url.PathEscape leaves ':' intact, which the profile routes cannot accept.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP Helper
// ─────────────────────────────────────────────────────────────────────────────

// request performs one call under the client deadline. When the deadline
// elapses the in-flight request is aborted and a timeout NetworkError is
// returned.
func (c *Client) request(ctx context.Context, op, method, endpoint string, body any) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("request timed out", "op", op, "request_id", requestID, "timeout", c.timeout)
			return nil, &NetworkError{Op: op, Timeout: true, Err: ErrTimeout}
		}
		c.logger.Warn("request failed", "op", op, "request_id", requestID, "error", err)
		return nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("request rejected", "op", op, "request_id", requestID,
			"status", resp.StatusCode, "body", string(snippet))
		return nil, &NetworkError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &NetworkError{Op: op, Timeout: true, Err: ErrTimeout}
		}
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	out := Response{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			c.logger.Warn("undecodable response", "op", op, "request_id", requestID,
				"status", resp.StatusCode, "error", err)
			return nil, &NetworkError{
				Op:     op,
				Status: resp.StatusCode,
				Err:    fmt.Errorf("decoding response: %w", err),
			}
		}
	}
	c.logger.Debug("request completed", "op", op, "request_id", requestID,
		"status", resp.StatusCode, "duration", time.Since(start))
	return out, nil
}
