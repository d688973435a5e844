package runtimeconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kr8tiv/claw/pkg/claw/harness"
)

func validSpec(t *testing.T, overrides map[string]any) *harness.HarnessSpec {
	t.Helper()
	doc := map[string]any{
		"tenant":   map[string]any{"slug": "acme-support", "displayName": "Acme"},
		"identity": map[string]any{"role": "r", "purpose": "p", "personality": "q"},
		"soul":     map[string]any{"coreTruths": []any{"t"}, "vibe": "v"},
		"jobFunctions": map[string]any{
			"responsibilities": []any{"a"}, "successCriteria": []any{"b"},
		},
		"channels": map[string]any{"allow": []any{"telegram"}},
	}
	for k, v := range overrides {
		doc[k] = v
	}
	spec, err := harness.Validate(doc)
	require.NoError(t, err)
	return spec
}

func TestBuildSecureDefaults(t *testing.T) {
	cfg := Build(validSpec(t, nil))
	assert.True(t, cfg.Gateway.Pairing.Required)
	assert.True(t, cfg.Gateway.Group.MentionGating)
	assert.Equal(t, SandboxStrict, cfg.Agents.Defaults.Sandbox.NonMainSessions)
	assert.Equal(t, "token", cfg.Gateway.Auth.Mode)
	assert.NoError(t, Guard(cfg))
}

func TestBuildPropagatesSecurityFlags(t *testing.T) {
	for _, pairing := range []bool{true, false} {
		for _, mention := range []bool{true, false} {
			for _, sandbox := range []bool{true, false} {
				spec := validSpec(t, map[string]any{
					"channels": map[string]any{
						"allow":             []any{"telegram"},
						"dmPairingRequired": pairing,
						"mentionGating":     mention,
					},
					"tools": map[string]any{"sandboxNonMainSessions": sandbox},
				})
				cfg := Build(spec)
				assert.Equal(t, pairing, cfg.Gateway.Pairing.Required)
				assert.Equal(t, mention, cfg.Gateway.Group.MentionGating)
				want := SandboxOff
				if sandbox {
					want = SandboxStrict
				}
				assert.Equal(t, want, cfg.Agents.Defaults.Sandbox.NonMainSessions)
			}
		}
	}
}

func TestBuildWithoutValidationStaysRestrictive(t *testing.T) {
	spec := &harness.HarnessSpec{}
	spec.Tenant.Slug = "raw"
	spec.Channels.Allow = []string{"slack"}

	cfg := Build(spec)
	assert.True(t, cfg.Gateway.Pairing.Required)
	assert.True(t, cfg.Gateway.Group.MentionGating)
	assert.Equal(t, SandboxStrict, cfg.Agents.Defaults.Sandbox.NonMainSessions)
}

func TestBuildSerializesNullWebhooksAndEmptyLists(t *testing.T) {
	data, err := json.Marshal(Build(validSpec(t, nil)))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	kr8tiv := doc["kr8tiv"].(map[string]any)
	obs := kr8tiv["observability"].(map[string]any)
	assert.Contains(t, obs, "ownerWebhookUrl")
	assert.Nil(t, obs["ownerWebhookUrl"])
	assert.Nil(t, obs["managementWebhookUrl"])

	tools := doc["agents"].(map[string]any)["defaults"].(map[string]any)["tools"].(map[string]any)
	assert.Equal(t, []any{}, tools["allow"])
	assert.Equal(t, []any{}, tools["deny"])
}

func TestBuildMapsSupermemory(t *testing.T) {
	spec := validSpec(t, map[string]any{
		"supermemory":   map[string]any{"enabled": true, "topK": 3, "threshold": 0.7},
		"updates":       map[string]any{"channel": "dev"},
		"observability": map[string]any{"ownerWebhookUrl": "https://hooks.example.com/o"},
	})
	cfg := Build(spec)
	assert.Equal(t, harness.UpdateDev, cfg.Update.Channel)
	assert.Equal(t, "acme-support", cfg.Kr8tiv.Tenant)
	assert.Equal(t, SupermemoryConfig{
		Enabled:   true,
		APIKeyEnv: harness.DefaultAPIKeyEnv,
		BaseURL:   harness.DefaultBaseURL,
		TopK:      3,
		Threshold: 0.7,
	}, cfg.Kr8tiv.Supermemory)
	require.NotNil(t, cfg.Kr8tiv.Observability.OwnerWebhookURL)
	assert.Equal(t, "https://hooks.example.com/o", *cfg.Kr8tiv.Observability.OwnerWebhookURL)
}

func TestGuardRejectsTamperedConfig(t *testing.T) {
	cfg := Build(validSpec(t, nil))
	cfg.Agents.Defaults.Sandbox.NonMainSessions = "permissive"
	assert.Error(t, Guard(cfg))

	cfg = Build(validSpec(t, nil))
	cfg.Channels.Allow = []string{}
	assert.Error(t, Guard(cfg))

	assert.Error(t, Guard(nil))
}

func TestValidateDocument(t *testing.T) {
	data, err := json.Marshal(Build(validSpec(t, nil)))
	require.NoError(t, err)
	assert.NoError(t, ValidateDocument(data))

	assert.Error(t, ValidateDocument([]byte(`{"gateway":{}}`)))
	assert.Error(t, ValidateDocument([]byte(`not json`)))
}
