package compiler

import (
	"io"
	"strings"

	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/paths"
	"github.com/kr8tiv/claw/pkg/claw/tenant"
)

// Job describes a load-compile-write run.
type Job struct {
	HarnessPath string

	// OutDir defaults to the tenant's directory under the state dir.
	OutDir string

	// TenantSlug overrides spec.tenant.slug when deriving a tenant id.
	TenantSlug string

	// TenantID, when set, is used verbatim and no random suffix is drawn.
	TenantID string

	// Entropy feeds the tenant id suffix. Nil uses crypto/rand.
	Entropy io.Reader
}

// Run loads the harness at job.HarnessPath, compiles it and writes the
// bundle to job.OutDir (see paths.ResolveOutDir).
func (w *Writer) Run(job Job) (CompiledArtifacts, error) {
	spec, err := harness.Load(job.HarnessPath)
	if err != nil {
		return CompiledArtifacts{}, err
	}

	tenantID, err := ResolveTenantID(spec, job)
	if err != nil {
		return CompiledArtifacts{}, err
	}

	artifacts, err := Compile(spec, tenantID)
	if err != nil {
		return CompiledArtifacts{}, err
	}
	if err := w.WriteArtifacts(paths.ResolveOutDir(job.OutDir, tenantID), artifacts); err != nil {
		return CompiledArtifacts{}, err
	}
	return artifacts, nil
}

// ResolveTenantID returns job.TenantID when given, otherwise a fresh id
// derived from job.TenantSlug or the harness's own slug. A given id must pass
// tenant.ValidateTenantID.
func ResolveTenantID(spec *harness.HarnessSpec, job Job) (string, error) {
	if id := strings.TrimSpace(job.TenantID); id != "" {
		if err := tenant.ValidateTenantID(id); err != nil {
			return "", err
		}
		return id, nil
	}
	slug := strings.TrimSpace(job.TenantSlug)
	if slug == "" {
		slug = spec.Tenant.Slug
	}
	return tenant.BuildTenantID(slug, job.Entropy)
}
