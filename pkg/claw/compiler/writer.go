package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kr8tiv/claw/pkg/claw/workspace"
)

// Output layout.
const (
	WorkspaceDir      = "workspace"
	SkillsDir         = "skills"
	RuntimeConfigFile = "openclaw.json"
	ManifestFile      = "skill-pack-manifest.json"
	MetadataFile      = "artifact-metadata.json"
	ComposeFile       = "docker-compose.tenant.yml"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// ErrIncompleteArtifacts is returned by WriteArtifacts when the bundle lacks
// its runtime config or skill manifest.
var ErrIncompleteArtifacts = errors.New("compiled artifacts are incomplete")

// CompileIOError wraps a filesystem failure from the write pass. Err is the
// error returned by the os package, untouched.
type CompileIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *CompileIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CompileIOError) Unwrap() error { return e.Err }

// Metadata is the serialized shape of artifact-metadata.json.
type Metadata struct {
	TenantID       string   `json:"tenantId"`
	ContainerTag   string   `json:"containerTag"`
	WorkspaceFiles []string `json:"workspaceFiles"`
	Fingerprint    string   `json:"fingerprint"`
}

// Writer persists compiled artifacts. Writes to the same output directory
// must not run concurrently; there is no locking and no rollback.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer. A nil logger falls back to slog.Default().
func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger.With("component", "compiler")}
}

// WriteArtifacts lays out the bundle under outDir:
//
//	outDir/workspace/<documents>
//	outDir/workspace/skills/
//	outDir/openclaw.json
//	outDir/skill-pack-manifest.json
//	outDir/artifact-metadata.json
func (w *Writer) WriteArtifacts(outDir string, a CompiledArtifacts) error {
	if a.RuntimeConfig == nil || a.SkillManifest == nil {
		return fmt.Errorf("write %s: %w", a.TenantID, ErrIncompleteArtifacts)
	}
	wsDir := filepath.Join(outDir, WorkspaceDir)
	for _, dir := range []string{outDir, wsDir, filepath.Join(wsDir, SkillsDir)} {
		if err := os.MkdirAll(dir, dirMode); err != nil {
			return &CompileIOError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	names := a.DocumentNames()
	for _, name := range names {
		path := filepath.Join(wsDir, name)
		if err := writeFile(path, []byte(workspace.Normalize(a.WorkspaceFiles[name]))); err != nil {
			return err
		}
	}

	fingerprint, err := a.Fingerprint()
	if err != nil {
		return err
	}

	if err := writeJSON(filepath.Join(outDir, RuntimeConfigFile), a.RuntimeConfig); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outDir, ManifestFile), a.SkillManifest); err != nil {
		return err
	}
	meta := Metadata{
		TenantID:       a.TenantID,
		ContainerTag:   a.ContainerTag,
		WorkspaceFiles: names,
		Fingerprint:    fingerprint,
	}
	if err := writeJSON(filepath.Join(outDir, MetadataFile), meta); err != nil {
		return err
	}

	w.logger.Info("artifacts written",
		"tenant_id", a.TenantID,
		"out_dir", outDir,
		"documents", len(names),
		"packs", len(a.SkillManifest.Packs),
		"fingerprint", fingerprint,
	)
	return nil
}

// WriteCompose writes a rendered compose template next to the artifacts.
func (w *Writer) WriteCompose(outDir, text string) error {
	if err := os.MkdirAll(outDir, dirMode); err != nil {
		return &CompileIOError{Op: "mkdir", Path: outDir, Err: err}
	}
	path := filepath.Join(outDir, ComposeFile)
	if err := writeFile(path, []byte(text)); err != nil {
		return err
	}
	w.logger.Info("compose template written", "path", path)
	return nil
}

// writeJSON emits two-space indented JSON with a trailing newline and
// without HTML escaping, so URLs and "<workspace>" survive verbatim.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, fileMode); err != nil {
		return &CompileIOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
