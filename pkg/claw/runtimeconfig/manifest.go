package runtimeconfig

import (
	"github.com/Masterminds/semver/v3"

	"github.com/kr8tiv/claw/pkg/claw/harness"
)

const (
	// ManifestVersion is the schema version of skill-pack-manifest.json.
	ManifestVersion = 1

	// InstallRoot is the path token the installer resolves against the workspace.
	InstallRoot = "<workspace>/skills"

	// LatestVersion is recorded for packs without an explicit version.
	LatestVersion = "latest"
)

// SkillManifest is the serialized shape of skill-pack-manifest.json.
type SkillManifest struct {
	Version     int            `json:"version"`
	TenantID    string         `json:"tenantId"`
	InstallRoot string         `json:"installRoot"`
	Packs       []ManifestPack `json:"packs"`
}

// ManifestPack is one installable pack. Pinned is set when Version is an
// exact semantic version rather than "latest" or a branch/tag name.
type ManifestPack struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Version string `json:"version"`
	Pinned  bool   `json:"pinned"`
}

// BuildSkillManifest lists the harness's skill packs in declaration order.
func BuildSkillManifest(spec *harness.HarnessSpec, tenantID string) *SkillManifest {
	packs := make([]ManifestPack, 0, len(spec.Skills.Packs))
	for _, p := range spec.Skills.Packs {
		version := p.Version
		if version == "" {
			version = LatestVersion
		}
		packs = append(packs, ManifestPack{
			Name:    p.Name,
			Source:  p.Source,
			Version: version,
			Pinned:  isPinned(version),
		})
	}
	return &SkillManifest{
		Version:     ManifestVersion,
		TenantID:    tenantID,
		InstallRoot: InstallRoot,
		Packs:       packs,
	}
}

func isPinned(version string) bool {
	if version == LatestVersion {
		return false
	}
	_, err := semver.StrictNewVersion(version)
	return err == nil
}
