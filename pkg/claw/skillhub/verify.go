package skillhub

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/kr8tiv/claw/pkg/claw/runtimeconfig"
)

// SourceClawHub marks packs hosted on the registry. "clawhub:<slug>" names
// the registry slug explicitly; plain "clawhub" uses the pack name.
const SourceClawHub = "clawhub"

// Status is the outcome of checking one pack.
type Status string

const (
	StatusOK         Status = "ok"
	StatusMissing    Status = "missing"
	StatusBlocked    Status = "blocked"
	StatusSuspicious Status = "suspicious"
	StatusError      Status = "error"
	StatusSkipped    Status = "skipped"
)

// PackStatus reports one manifest pack.
type PackStatus struct {
	Name            string `json:"name"`
	Slug            string `json:"slug,omitempty"`
	Status          Status `json:"status"`
	Version         string `json:"version"`
	Latest          string `json:"latest,omitempty"`
	UpdateAvailable bool   `json:"updateAvailable,omitempty"`
	Detail          string `json:"detail,omitempty"`
}

// Healthy reports whether the pack can be installed as declared.
func (s PackStatus) Healthy() bool {
	return s.Status == StatusOK || s.Status == StatusSkipped
}

// Slug returns the registry slug for a pack source, and false when the
// source is not the registry.
func Slug(pack runtimeconfig.ManifestPack) (string, bool) {
	source := strings.TrimSpace(pack.Source)
	if source == SourceClawHub {
		return pack.Name, true
	}
	if slug, ok := strings.CutPrefix(source, SourceClawHub+":"); ok && strings.TrimSpace(slug) != "" {
		return strings.TrimSpace(slug), true
	}
	return "", false
}

// Verify checks every pack against the registry, in manifest order. Packs
// from other sources are skipped. Per-pack failures are reported in the
// result; only context cancellation aborts the run.
func (c *Client) Verify(ctx context.Context, packs []runtimeconfig.ManifestPack) ([]PackStatus, error) {
	out := make([]PackStatus, 0, len(packs))
	for _, pack := range packs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, c.verifyPack(ctx, pack))
	}
	return out, nil
}

func (c *Client) verifyPack(ctx context.Context, pack runtimeconfig.ManifestPack) PackStatus {
	st := PackStatus{Name: pack.Name, Version: pack.Version}
	slug, ok := Slug(pack)
	if !ok {
		st.Status = StatusSkipped
		st.Detail = "source " + pack.Source + " is not checked"
		return st
	}
	st.Slug = slug

	meta, err := c.GetSkillMeta(ctx, slug)
	switch {
	case errors.Is(err, ErrNotFound):
		st.Status = StatusMissing
		return st
	case err != nil:
		st.Status = StatusError
		st.Detail = err.Error()
		c.logger.Warn("skill check failed", "pack", pack.Name, "slug", slug, "error", err)
		return st
	}

	st.Latest = meta.Latest()
	st.UpdateAvailable = newer(st.Latest, pack.Version)
	switch {
	case meta.Moderation != nil && meta.Moderation.IsMalwareBlocked:
		st.Status = StatusBlocked
	case meta.Moderation != nil && meta.Moderation.IsSuspicious:
		st.Status = StatusSuspicious
	default:
		st.Status = StatusOK
	}
	c.logger.Debug("skill checked", "pack", pack.Name, "slug", slug, "status", st.Status)
	return st
}

// newer reports whether latest is a higher semantic version than pinned.
// Unpinned or unparsable versions never report an update.
func newer(latest, pinned string) bool {
	l, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	p, err := semver.StrictNewVersion(pinned)
	if err != nil {
		return false
	}
	return l.GreaterThan(p)
}
