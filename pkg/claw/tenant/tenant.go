// Package tenant derives tenant identifiers and resolves the container tag
// that scopes a tenant's runtime identity and memory documents.
package tenant

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/memory"
)

// SuffixBytes is the number of random bytes appended to a tenant id
// (rendered as twice as many hex characters).
const SuffixBytes = 4

var (
	unsafeSlugChars = regexp.MustCompile(`[^a-z0-9-]`)
	tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
)

// IdentityError reports a tenant id or container tag that cannot be derived.
type IdentityError struct {
	Field  string
	Value  string
	Reason string
}

func (e *IdentityError) Error() string {
	return fmt.Sprintf("tenant identity: %s %q: %s", e.Field, e.Value, e.Reason)
}

// NormalizeSlug lower-cases slug and replaces every character outside
// [a-z0-9-] with '-'.
func NormalizeSlug(slug string) string {
	return unsafeSlugChars.ReplaceAllString(strings.ToLower(slug), "-")
}

// BuildTenantID returns "<normalized-slug>-<8 hex chars>". The suffix is read
// from rnd; a nil rnd uses crypto/rand.
func BuildTenantID(slug string, rnd io.Reader) (string, error) {
	normalized := NormalizeSlug(strings.TrimSpace(slug))
	if normalized == "" {
		return "", &IdentityError{Field: "slug", Value: slug, Reason: "empty after normalization"}
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	buf := make([]byte, SuffixBytes)
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return "", fmt.Errorf("reading tenant suffix entropy: %w", err)
	}
	return normalized + "-" + hex.EncodeToString(buf), nil
}

// ValidateTenantID checks a caller-supplied tenant id. The id names output
// directories, compose projects and volumes, so it must be kebab-case.
func ValidateTenantID(id string) error {
	if !tenantIDPattern.MatchString(id) {
		return &IdentityError{Field: "tenantId", Value: id, Reason: "must be kebab-case (^[a-z0-9][a-z0-9-]*$)"}
	}
	return nil
}

// ResolveContainerTag returns the harness's explicit container tag when set,
// otherwise "<containerTagPrefix>:<tenantID>".
func ResolveContainerTag(spec *harness.HarnessSpec, tenantID string) (string, error) {
	if tag := strings.TrimSpace(spec.Tenant.ContainerTag); tag != "" {
		return tag, nil
	}
	if strings.TrimSpace(tenantID) == "" {
		return "", &IdentityError{Field: "tenantId", Value: tenantID, Reason: "required to derive a container tag"}
	}
	prefix := strings.TrimSpace(spec.Supermemory.ContainerTagPrefix)
	if prefix == "" {
		return "", &IdentityError{Field: "supermemory.containerTagPrefix", Value: prefix, Reason: "required when tenant.containerTag is unset"}
	}
	return memory.BuildContainerTag(prefix, tenantID), nil
}
