// Package watchdog posts periodic liveness heartbeats for a tenant to the
// owner and management webhooks.
//
// Delivery is best-effort: one attempt per webhook per tick, failures are
// logged and never stop the loop.
package watchdog

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultIntervalSeconds applies when the configured interval is not positive.
	DefaultIntervalSeconds = 60

	defaultTimeout = 10 * time.Second

	// StatusAlive is the only status the watchdog reports.
	StatusAlive = "alive"
)

// Options configures a Watchdog.
type Options struct {
	Tenant               string
	OwnerWebhookURL      string
	ManagementWebhookURL string
	IntervalSeconds      int

	// Secret, when set, signs each body with HMAC-SHA256 in the
	// X-Webhook-Signature header.
	Secret string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Heartbeat is the JSON body posted on every tick.
type Heartbeat struct {
	Tenant      string `json:"tenant"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	HeartbeatID string `json:"heartbeatId"`
}

// Watchdog sends heartbeats on a fixed schedule.
type Watchdog struct {
	opts     Options
	interval time.Duration
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Watchdog. Empty webhook URLs are skipped on every tick.
func New(opts Options) *Watchdog {
	opts.OwnerWebhookURL = strings.TrimSpace(opts.OwnerWebhookURL)
	opts.ManagementWebhookURL = strings.TrimSpace(opts.ManagementWebhookURL)

	seconds := opts.IntervalSeconds
	if seconds <= 0 {
		seconds = DefaultIntervalSeconds
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		opts:     opts,
		interval: time.Duration(seconds) * time.Second,
		client:   client,
		logger:   logger.With("component", "watchdog", "tenant", opts.Tenant),
		now:      time.Now,
	}
}

// Interval returns the effective heartbeat interval.
func (w *Watchdog) Interval() time.Duration { return w.interval }

// Schedule returns the cron spec used by Run.
func (w *Watchdog) Schedule() string {
	return fmt.Sprintf("@every %s", w.interval)
}

// Run beats once immediately and then on every interval until ctx is done.
func (w *Watchdog) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.Schedule(), func() { w.Beat(ctx) }); err != nil {
		return fmt.Errorf("scheduling heartbeat: %w", err)
	}

	w.logger.Info("watchdog started",
		"interval", w.interval,
		"owner_webhook", w.opts.OwnerWebhookURL != "",
		"management_webhook", w.opts.ManagementWebhookURL != "",
	)
	w.Beat(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	w.logger.Info("watchdog stopped")
	return nil
}

// Beat sends one heartbeat to each configured webhook and returns the body
// that was sent.
func (w *Watchdog) Beat(ctx context.Context) Heartbeat {
	hb := Heartbeat{
		Tenant:      w.opts.Tenant,
		Status:      StatusAlive,
		Timestamp:   w.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		HeartbeatID: uuid.NewString(),
	}
	body, err := json.Marshal(hb)
	if err != nil {
		w.logger.Error("failed to marshal heartbeat", "error", err)
		return hb
	}

	for _, target := range []struct{ name, url string }{
		{"owner", w.opts.OwnerWebhookURL},
		{"management", w.opts.ManagementWebhookURL},
	} {
		if target.url == "" {
			continue
		}
		if err := w.post(ctx, target.url, body); err != nil {
			w.logger.Warn("heartbeat delivery failed", "webhook", target.name, "error", err)
			continue
		}
		w.logger.Debug("heartbeat sent", "webhook", target.name, "heartbeat_id", hb.HeartbeatID)
	}
	return hb
}

func (w *Watchdog) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.opts.Secret != "" {
		req.Header.Set("X-Webhook-Signature", sign(body, w.opts.Secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return "sha256=" + hex.EncodeToString(h.Sum(nil))
}
