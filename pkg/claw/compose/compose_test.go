package compose

import (
	"strings"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kr8tiv/claw/pkg/claw/harness"
)

type composeFile struct {
	Name     string                    `yaml:"name"`
	Services map[string]composeService `yaml:"services"`
	Volumes  map[string]any            `yaml:"volumes"`
}

type composeService struct {
	Image       string            `yaml:"image"`
	Restart     string            `yaml:"restart"`
	Environment map[string]string `yaml:"environment"`
	Volumes     []string          `yaml:"volumes"`
	Command     []string          `yaml:"command"`
	Healthcheck struct {
		Test []string `yaml:"test"`
	} `yaml:"healthcheck"`
	DependsOn map[string]struct {
		Condition string `yaml:"condition"`
	} `yaml:"depends_on"`
}

func loadSpec(t *testing.T) *harness.HarnessSpec {
	t.Helper()
	spec, err := harness.Load("../harness/testdata/harness.valid.yaml")
	require.NoError(t, err)
	return spec
}

func parse(t *testing.T, text string) composeFile {
	t.Helper()
	var f composeFile
	require.NoError(t, yaml.Unmarshal([]byte(text), &f))
	return f
}

func build(t *testing.T, spec *harness.HarnessSpec, opts Options) string {
	t.Helper()
	text, err := Build(spec, opts)
	require.NoError(t, err)
	return text
}

func TestBuildGatewayOnly(t *testing.T) {
	text := build(t, loadSpec(t), Options{
		TenantID:     "acme-support-1234abcd",
		ContainerTag: "tenant:acme-support-1234abcd",
	})
	f := parse(t, text)

	assert.Equal(t, "acme-support-1234abcd", f.Name)
	require.Len(t, f.Services, 1)
	gw := f.Services["openclaw-gateway"]
	assert.Equal(t, GatewayImage, gw.Image)
	assert.Equal(t, "unless-stopped", gw.Restart)
	assert.Equal(t, map[string]string{
		"OPENCLAW_GATEWAY_TOKEN": "${OPENCLAW_GATEWAY_TOKEN}",
		"TENANT_CONTAINER_TAG":   "tenant:acme-support-1234abcd",
		"SUPERMEMORY_API_KEY":    "${SUPERMEMORY_API_KEY}",
	}, gw.Environment)
	assert.Contains(t, gw.Volumes, "acme-support-1234abcd_state:/data/state")
	assert.Contains(t, gw.Volumes, "acme-support-1234abcd_workspace:/data/workspace")
	require.Len(t, gw.Healthcheck.Test, 2)
	assert.Contains(t, gw.Healthcheck.Test[1], "health --token $$OPENCLAW_GATEWAY_TOKEN")

	assert.Len(t, f.Volumes, 2)
	assert.Contains(t, f.Volumes, "acme-support-1234abcd_state")
	assert.Contains(t, f.Volumes, "acme-support-1234abcd_workspace")
	assert.True(t, strings.HasSuffix(text, "_workspace:\n"))
}

func TestBuildWithWatchdog(t *testing.T) {
	f := parse(t, build(t, loadSpec(t), Options{
		TenantID:        "acme-support-1234abcd",
		ContainerTag:    "tenant:acme-support-1234abcd",
		IncludeWatchdog: true,
	}))

	require.Len(t, f.Services, 2)
	wd := f.Services["agent-watchdog"]
	assert.Equal(t, WatchdogImage, wd.Image)
	assert.Equal(t, "service_healthy", wd.DependsOn["openclaw-gateway"].Condition)
	assert.Equal(t, []string{
		"watchdog",
		"--tenant", "acme-support-1234abcd",
		"--owner-webhook", "${OWNER_WEBHOOK_URL}",
		"--management-webhook", "${MANAGEMENT_WEBHOOK_URL}",
		"--interval-seconds", "30",
	}, wd.Command)
}

func TestBuildDefaultsAndOverrides(t *testing.T) {
	spec := loadSpec(t)
	spec.Supermemory.APIKeyEnv = "ACME_MEMORY_KEY"
	spec.Observability.HeartbeatIntervalSeconds = 0

	f := parse(t, build(t, spec, Options{
		TenantID:        "t-1",
		ContainerTag:    `odd: "tag"`,
		IncludeWatchdog: true,
		GatewayImage:    "registry.local/gw:1",
	}))

	gw := f.Services["openclaw-gateway"]
	assert.Equal(t, "registry.local/gw:1", gw.Image)
	assert.Equal(t, `odd: "tag"`, gw.Environment["TENANT_CONTAINER_TAG"])
	assert.Equal(t, "${ACME_MEMORY_KEY}", gw.Environment["ACME_MEMORY_KEY"])
	cmd := f.Services["agent-watchdog"].Command
	assert.Equal(t, "60", cmd[len(cmd)-1])
}

func TestBuildDeterministic(t *testing.T) {
	opts := Options{TenantID: "t-1", ContainerTag: "tenant:t-1", IncludeWatchdog: true}
	assert.Equal(t, build(t, loadSpec(t), opts), build(t, loadSpec(t), opts))
}

func TestRenderReportsTemplateErrors(t *testing.T) {
	broken := template.Must(template.New("compose").Parse("name: {{.TenantID}}\n{{.NoSuchField}}\n"))
	text, err := render(broken, view{Options: Options{TenantID: "t-1"}})
	assert.ErrorContains(t, err, "rendering compose template")
	assert.Empty(t, text)
}
