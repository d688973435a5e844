// Package compiler assembles the deployable artifact bundle for a tenant and
// writes it to disk.
//
// Compile is pure: it resolves the container tag, renders the workspace
// documents and builds the runtime configuration and skill manifest. The
// Writer is the only part of the package that touches the filesystem.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/runtimeconfig"
	"github.com/kr8tiv/claw/pkg/claw/tenant"
	"github.com/kr8tiv/claw/pkg/claw/workspace"
)

// CompiledArtifacts is the immutable output of one compilation.
type CompiledArtifacts struct {
	TenantID       string                       `json:"tenantId"`
	ContainerTag   string                       `json:"containerTag"`
	WorkspaceFiles workspace.Documents          `json:"workspaceFiles"`
	RuntimeConfig  *runtimeconfig.RuntimeConfig `json:"openclawConfig"`
	SkillManifest  *runtimeconfig.SkillManifest `json:"skillPackManifest"`
}

// Compile builds the artifact bundle for spec under tenantID. The runtime
// configuration is checked against the embedded schema before it is
// returned; a config that fails the check is never handed to a writer.
func Compile(spec *harness.HarnessSpec, tenantID string) (CompiledArtifacts, error) {
	if spec == nil {
		return CompiledArtifacts{}, fmt.Errorf("compile: nil harness spec")
	}
	containerTag, err := tenant.ResolveContainerTag(spec, tenantID)
	if err != nil {
		return CompiledArtifacts{}, err
	}

	cfg := runtimeconfig.Build(spec)
	if err := runtimeconfig.Guard(cfg); err != nil {
		return CompiledArtifacts{}, fmt.Errorf("compile %s: %w", tenantID, err)
	}

	return CompiledArtifacts{
		TenantID:       tenantID,
		ContainerTag:   containerTag,
		WorkspaceFiles: workspace.Render(spec),
		RuntimeConfig:  cfg,
		SkillManifest:  runtimeconfig.BuildSkillManifest(spec, tenantID),
	}, nil
}

// DocumentNames returns the workspace document names in lexicographic order.
func (a CompiledArtifacts) DocumentNames() []string {
	return a.WorkspaceFiles.Names()
}

// Fingerprint is the hex SHA-256 of the bundle's RFC 8785 canonical JSON.
// Equal bundles always share a fingerprint regardless of map ordering.
func (a CompiledArtifacts) Fingerprint() (string, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint canonicalization: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
