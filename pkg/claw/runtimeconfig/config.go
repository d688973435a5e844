// Package runtimeconfig maps a validated harness spec onto the runtime
// configuration consumed by the deployed gateway (openclaw.json) and onto the
// skill-pack manifest.
package runtimeconfig

import (
	"github.com/kr8tiv/claw/pkg/claw/harness"
)

// Sandbox modes for non-main sessions.
const (
	SandboxStrict = "strict"
	SandboxOff    = "off"
)

// RuntimeConfig is the serialized shape of openclaw.json.
type RuntimeConfig struct {
	Update   UpdateConfig   `json:"update"`
	Gateway  GatewayConfig  `json:"gateway"`
	Agents   AgentsConfig   `json:"agents"`
	Channels ChannelsConfig `json:"channels"`
	Kr8tiv   TenantConfig   `json:"kr8tiv"`
}

type UpdateConfig struct {
	Channel harness.UpdateChannel `json:"channel"`
}

type GatewayConfig struct {
	Auth    AuthConfig    `json:"auth"`
	Pairing PairingConfig `json:"pairing"`
	Group   GroupConfig   `json:"group"`
}

type AuthConfig struct {
	Mode string `json:"mode"`
}

type PairingConfig struct {
	Required bool `json:"required"`
}

type GroupConfig struct {
	MentionGating bool `json:"mentionGating"`
}

type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults"`
}

type AgentDefaults struct {
	Sandbox SandboxConfig `json:"sandbox"`
	Tools   ToolsConfig   `json:"tools"`
}

type SandboxConfig struct {
	NonMainSessions string `json:"nonMainSessions"`
}

type ToolsConfig struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

type ChannelsConfig struct {
	Allow    []string        `json:"allow"`
	Defaults ChannelDefaults `json:"defaults"`
}

type ChannelDefaults struct {
	Heartbeat HeartbeatIndicator `json:"heartbeat"`
}

type HeartbeatIndicator struct {
	ShowOK       bool `json:"showOk"`
	ShowAlerts   bool `json:"showAlerts"`
	UseIndicator bool `json:"useIndicator"`
}

// TenantConfig carries the tenant-specific extension block.
type TenantConfig struct {
	Tenant        string              `json:"tenant"`
	Observability ObservabilityConfig `json:"observability"`
	Supermemory   SupermemoryConfig   `json:"supermemory"`
}

// ObservabilityConfig serializes unset webhooks as null.
type ObservabilityConfig struct {
	OwnerWebhookURL      *string `json:"ownerWebhookUrl"`
	ManagementWebhookURL *string `json:"managementWebhookUrl"`
}

type SupermemoryConfig struct {
	Enabled   bool    `json:"enabled"`
	APIKeyEnv string  `json:"apiKeyEnv"`
	BaseURL   string  `json:"baseUrl"`
	TopK      int     `json:"topK"`
	Threshold float64 `json:"threshold"`
}

// Build maps spec 1:1 onto the runtime configuration. Pairing, mention
// gating and sandboxing read through the harness's accessors, so an unset flag
// always yields the restrictive value.
func Build(spec *harness.HarnessSpec) *RuntimeConfig {
	sandbox := SandboxOff
	if spec.Tools.SandboxEnabled() {
		sandbox = SandboxStrict
	}
	return &RuntimeConfig{
		Update: UpdateConfig{Channel: spec.Updates.Channel},
		Gateway: GatewayConfig{
			Auth:    AuthConfig{Mode: "token"},
			Pairing: PairingConfig{Required: spec.Channels.PairingRequired()},
			Group:   GroupConfig{MentionGating: spec.Channels.GroupMentionGating()},
		},
		Agents: AgentsConfig{
			Defaults: AgentDefaults{
				Sandbox: SandboxConfig{NonMainSessions: sandbox},
				Tools: ToolsConfig{
					Allow: nonNil(spec.Tools.Allowlist),
					Deny:  nonNil(spec.Tools.Denylist),
				},
			},
		},
		Channels: ChannelsConfig{
			Allow: nonNil(spec.Channels.Allow),
			Defaults: ChannelDefaults{
				Heartbeat: HeartbeatIndicator{ShowOK: true, ShowAlerts: true, UseIndicator: true},
			},
		},
		Kr8tiv: TenantConfig{
			Tenant: spec.Tenant.Slug,
			Observability: ObservabilityConfig{
				OwnerWebhookURL:      optional(spec.Observability.OwnerWebhookURL),
				ManagementWebhookURL: optional(spec.Observability.ManagementWebhookURL),
			},
			Supermemory: SupermemoryConfig{
				Enabled:   spec.Supermemory.Enabled,
				APIKeyEnv: spec.Supermemory.APIKeyEnv,
				BaseURL:   spec.Supermemory.BaseURL,
				TopK:      spec.Supermemory.TopK,
				Threshold: spec.Supermemory.Threshold,
			},
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nonNil keeps empty lists serialized as [] rather than null.
func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
