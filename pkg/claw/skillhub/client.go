// Package skillhub talks to the ClawHub skill registry so declared skill
// packs can be checked before a tenant is deployed.
//
// ClawHub API base: https://clawhub.ai/api/v1
// Endpoints:
//
//	GET /search?q=<query>&limit=<n>
//	GET /skills/<slug>           - skill metadata
package skillhub

import (
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
)

const (
	// DefaultBaseURL is the public ClawHub registry API.
	DefaultBaseURL = "https://clawhub.ai/api/v1"

	defaultTimeout = 30 * time.Second
	userAgent      = "kr8tiv-claw/1.0"
)

// ErrNotFound is returned when the registry has no skill under a slug.
var ErrNotFound = errors.New("skill not found")

// APIError is a non-2xx registry response.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ClawHub API %d: %s", e.Status, e.Body)
}

// Is makes a 404 APIError match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client communicates with the ClawHub registry.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a registry client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{baseURL: base, client: client, logger: logger.With("component", "skillhub")}
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Score       float64 `json:"score"`
	Slug        string  `json:"slug"`
	DisplayName string  `json:"displayName"`
	Summary     string  `json:"summary"`
	Version     string  `json:"version"`
}

// Search queries the registry. A non-positive limit means 20.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	u := fmt.Sprintf("%s/search?q=%s&limit=%d", c.baseURL, url.QueryEscape(query), limit)

	var result SearchResponse
	if err := c.getJSON(ctx, u, &result); err != nil {
		return nil, fmt.Errorf("searching skills: %w", err)
	}
	return &result, nil
}

// SkillMeta is the body of GET /skills/<slug>.
type SkillMeta struct {
	Slug          string          `json:"slug"`
	DisplayName   string          `json:"displayName"`
	Summary       string          `json:"summary"`
	LatestVersion *VersionInfo    `json:"latestVersion"`
	Moderation    *ModerationInfo `json:"moderation"`
	Author        string          `json:"author"`
	Tags          []string        `json:"tags"`
	Downloads     int             `json:"downloads"`
	UpdatedAt     string          `json:"updatedAt"`
}

type VersionInfo struct {
	Version string `json:"version"`
}

type ModerationInfo struct {
	IsMalwareBlocked bool `json:"isMalwareBlocked"`
	IsSuspicious     bool `json:"isSuspicious"`
}

// Latest returns the latest published version, or "".
func (m *SkillMeta) Latest() string {
	if m == nil || m.LatestVersion == nil {
		return ""
	}
	return m.LatestVersion.Version
}

// GetSkillMeta fetches metadata for slug (e.g. "steipete/trello").
func (c *Client) GetSkillMeta(ctx context.Context, slug string) (*SkillMeta, error) {
	u := fmt.Sprintf("%s/skills/%s", c.baseURL, url.PathEscape(slug))

	var meta SkillMeta
	if err := c.getJSON(ctx, u, &meta); err != nil {
		return nil, fmt.Errorf("fetching skill %s: %w", slug, err)
	}
	return &meta, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ClawHub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
