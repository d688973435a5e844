package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/kr8tiv/claw/pkg/claw/compiler"
	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/memory"
	"github.com/kr8tiv/claw/pkg/claw/tenant"
)

const fixture = "../../../pkg/claw/harness/testdata/harness.valid.yaml"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CLAW_STATE_DIR", t.TempDir())
	t.Setenv("CLAW_OUT_DIR", "")
	t.Setenv("CLAW_HARNESS_PATH", "")

	var stdout, stderr bytes.Buffer
	root := NewRootCmd("test")
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitInvalid, ExitCode(fmt.Errorf("wrapped: %w", &harness.ValidationError{})))
	assert.Equal(t, ExitInvalid, ExitCode(&tenant.IdentityError{Field: "slug"}))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", "--harness", fixture)
	require.NoError(t, err)
	assert.Equal(t, "acme-support", decode(t, out)["tenant"])

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("tenant:\n  slug: Not Valid\n"), 0o644))
	out, err = run(t, "validate", "--harness", bad)
	assert.Equal(t, ExitInvalid, ExitCode(err))
	res := decode(t, out)
	assert.Equal(t, false, res["ok"])
	assert.NotEmpty(t, res["issues"])
}

func TestCompileWithTenantID(t *testing.T) {
	outDir := t.TempDir()
	out, err := run(t, "compile", "--harness", fixture, "--out", outDir, "--tenant", "ignored", "--tenant-id", "acme-support-1234abcd")
	require.NoError(t, err)

	res := decode(t, out)
	assert.Equal(t, "acme-support-1234abcd", res["tenantId"])
	assert.Equal(t, "tenant:acme-support-1234abcd", res["containerTag"])
	assert.Len(t, res["fingerprint"], 64)

	for _, name := range []string{compiler.RuntimeConfigFile, compiler.ManifestFile, compiler.MetadataFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	assert.DirExists(t, filepath.Join(outDir, "workspace", "skills"))
}

func TestCompileDerivesTenantIDAndOutDir(t *testing.T) {
	out, err := run(t, "compile", "--harness", fixture, "--tenant", "Acme Support")
	require.NoError(t, err)

	res := decode(t, out)
	id, _ := res["tenantId"].(string)
	assert.Regexp(t, `^acme-support-[0-9a-f]{8}$`, id)
	outDir, _ := res["outDir"].(string)
	assert.True(t, strings.HasSuffix(outDir, filepath.Join("tenants", id)))
	assert.FileExists(t, filepath.Join(outDir, compiler.RuntimeConfigFile))
}

func TestUnsafeTenantIDExitsInvalid(t *testing.T) {
	outDir := t.TempDir()
	_, err := run(t, "compile", "--harness", fixture, "--tenant-id", "../../escaped")
	assert.Equal(t, ExitInvalid, ExitCode(err))

	_, err = run(t, "compose", "--harness", fixture, "--out", outDir, "--tenant", "acme: x")
	assert.Equal(t, ExitInvalid, ExitCode(err))
	assert.NoFileExists(t, filepath.Join(outDir, compiler.ComposeFile))
	assert.NoFileExists(t, filepath.Join(outDir, compiler.RuntimeConfigFile))
}

func TestCompose(t *testing.T) {
	outDir := t.TempDir()
	out, err := run(t, "compose", "--harness", fixture, "--out", outDir, "--tenant", "acme-support-1234abcd", "--watchdog")
	require.NoError(t, err)
	assert.Equal(t, true, decode(t, out)["includeWatchdog"])

	data, err := os.ReadFile(filepath.Join(outDir, compiler.ComposeFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: acme-support-1234abcd")
	assert.Contains(t, string(data), "agent-watchdog:")
	assert.FileExists(t, filepath.Join(outDir, compiler.RuntimeConfigFile))
}

func TestComposeRequiresTenant(t *testing.T) {
	_, err := run(t, "compose", "--harness", fixture, "--out", t.TempDir())
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Setenv("OPENCLAW_GATEWAY_TOKEN", "")
	out, err := run(t, "health", "--token", "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, "health:ok\n", out)

	_, err = run(t, "health", "--token", "short")
	assert.Error(t, err)
}

func TestWatchdogRejectsMetadataWebhook(t *testing.T) {
	_, err := run(t, "watchdog", "--tenant", "acme-support-1234abcd",
		"--owner-webhook", "http://169.254.169.254/latest/meta-data")
	assert.ErrorContains(t, err, "link-local")
}

func writeMemoryHarness(t *testing.T, baseURL string) string {
	t.Helper()
	doc := fmt.Sprintf(`tenant:
  slug: acme-support
  displayName: Acme
identity: {role: r, purpose: p, personality: q}
soul: {coreTruths: [t], vibe: v}
jobFunctions: {responsibilities: [a], successCriteria: [b]}
channels: {allow: [telegram]}
supermemory:
  enabled: true
  apiKeyEnv: CLAW_TEST_MEMORY_KEY
  baseUrl: %s
  topK: 2
`, baseURL)
	path := filepath.Join(t.TempDir(), "harness.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestMemorySearch(t *testing.T) {
	keyring.MockInit()
	t.Setenv("CLAW_TEST_MEMORY_KEY", "sm-key")

	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/search", r.URL.Path)
		assert.Equal(t, "Bearer sm-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = io.WriteString(w, `{"results":[{"content":"alpha"},{"text":"beta"},{"snippet":"alpha"},{"content":"gamma"}]}`)
	}))
	defer srv.Close()

	out, err := run(t, "memory", "search", "--harness", writeMemoryHarness(t, srv.URL),
		"--tenant-id", "acme-support-1234abcd", "--query", "refunds")
	require.NoError(t, err)

	res := decode(t, out)
	assert.Equal(t, []any{"alpha", "beta"}, res["passages"])
	assert.Equal(t, "tenant:acme-support-1234abcd", body["containerTag"])
	assert.Equal(t, "hybrid", body["mode"])
	assert.EqualValues(t, 2, body["limit"])
}

func TestMemoryIngestRetriesTransientFailure(t *testing.T) {
	keyring.MockInit()
	t.Setenv("CLAW_TEST_MEMORY_KEY", "sm-key")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "doc-1", "customId": in["customId"]})
	}))
	defer srv.Close()

	out, err := run(t, "memory", "ingest", "--harness", writeMemoryHarness(t, srv.URL),
		"--tenant-id", "tenant-a", "--namespace", "arena", "--external-id", "Task/ABC-123", "--content", "hello")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Equal(t, "tenant-a:arena:task-abc-123", decode(t, out)["customId"])
}

func TestMemoryRejectsUnsafeTenantID(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	_, err := run(t, "memory", "search", "--harness", writeMemoryHarness(t, srv.URL),
		"--tenant-id", "a: b", "--query", "refunds")
	assert.Equal(t, ExitInvalid, ExitCode(err))
	assert.Zero(t, calls.Load())
}

func TestMemoryPermanentErrorIsNotRetried(t *testing.T) {
	keyring.MockInit()
	t.Setenv("CLAW_TEST_MEMORY_KEY", "sm-key")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := run(t, "memory", "profile", "get", "--harness", writeMemoryHarness(t, srv.URL),
		"--tenant-id", "tenant-a", "--user-id", "user/123")
	var netErr *memory.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadRequest, netErr.Status)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSkillsCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"slug":"ticket-triage","latestVersion":{"version":"1.2.0"}}`)
	}))
	defer srv.Close()

	out, err := run(t, "skills", "check", "--harness", fixture, "--hub-url", srv.URL, "--json")
	require.NoError(t, err)

	var statuses []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 2)
	assert.Equal(t, "ok", statuses[0]["status"])
	assert.Equal(t, "skipped", statuses[1]["status"])
}

func TestSkillsCheckReportsMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	out, err := run(t, "skills", "check", "--harness", fixture, "--hub-url", srv.URL)
	assert.ErrorContains(t, err, "1 of 2 skill pack(s) failed verification")
	assert.Contains(t, out, "missing")
}
