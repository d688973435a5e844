// Package compose renders the per-tenant docker-compose template: the
// gateway service, an optional heartbeat watchdog and the tenant-scoped
// volumes. Generation is purely textual.
package compose

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/kr8tiv/claw/pkg/claw/harness"
)

// Default images.
const (
	GatewayImage  = "ghcr.io/openclaw/openclaw:latest"
	WatchdogImage = "ghcr.io/kr8tiv/claw:latest"
)

// Options parameterizes one template.
type Options struct {
	TenantID        string
	ContainerTag    string
	IncludeWatchdog bool

	// Image overrides; empty means the defaults above.
	GatewayImage  string
	WatchdogImage string
}

const composeTemplate = `name: {{.TenantID}}

services:
  openclaw-gateway:
    image: {{.GatewayImage}}
    restart: unless-stopped
    environment:
      OPENCLAW_GATEWAY_TOKEN: ${OPENCLAW_GATEWAY_TOKEN}
      TENANT_CONTAINER_TAG: {{quote .ContainerTag}}
      {{.APIKeyEnv}}: {{printf "${%s}" .APIKeyEnv}}
    volumes:
      - {{.TenantID}}_state:/data/state
      - {{.TenantID}}_workspace:/data/workspace
      - ./openclaw.json:/data/openclaw.json:ro
      - ./workspace:/data/workspace-seed:ro
    healthcheck:
      test: ["CMD-SHELL", "claw health --token $$OPENCLAW_GATEWAY_TOKEN --config /data/openclaw.json"]
      interval: 30s
      timeout: 10s
      retries: 3
      start_period: 20s
{{- if .IncludeWatchdog}}

  agent-watchdog:
    image: {{.WatchdogImage}}
    restart: unless-stopped
    environment:
      OWNER_WEBHOOK_URL: ${OWNER_WEBHOOK_URL}
      MANAGEMENT_WEBHOOK_URL: ${MANAGEMENT_WEBHOOK_URL}
    command:
      - watchdog
      - --tenant
      - {{.TenantID}}
      - --owner-webhook
      - ${OWNER_WEBHOOK_URL}
      - --management-webhook
      - ${MANAGEMENT_WEBHOOK_URL}
      - --interval-seconds
      - "{{.IntervalSeconds}}"
    depends_on:
      openclaw-gateway:
        condition: service_healthy
{{- end}}

volumes:
  {{.TenantID}}_state:
  {{.TenantID}}_workspace:
`

var tmpl = template.Must(template.New("compose").Funcs(template.FuncMap{
	"quote": quote,
}).Parse(composeTemplate))

type view struct {
	Options
	APIKeyEnv       string
	IntervalSeconds int
}

// Build renders the compose template for spec.
func Build(spec *harness.HarnessSpec, opts Options) (string, error) {
	if opts.GatewayImage == "" {
		opts.GatewayImage = GatewayImage
	}
	if opts.WatchdogImage == "" {
		opts.WatchdogImage = WatchdogImage
	}
	apiKeyEnv := spec.Supermemory.APIKeyEnv
	if apiKeyEnv == "" {
		apiKeyEnv = harness.DefaultAPIKeyEnv
	}
	interval := spec.Observability.HeartbeatIntervalSeconds
	if interval <= 0 {
		interval = harness.DefaultHeartbeatIntervalSeconds
	}

	return render(tmpl, view{Options: opts, APIKeyEnv: apiKeyEnv, IntervalSeconds: interval})
}

func render(t *template.Template, v view) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, v); err != nil {
		return "", fmt.Errorf("rendering compose template: %w", err)
	}
	return b.String(), nil
}

// quote renders s as a double-quoted YAML scalar.
func quote(s string) string {
	data, _ := json.Marshal(s)
	return string(data)
}
