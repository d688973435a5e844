// Package workspace renders the operating documents (AGENTS.md, SOUL.md,
// TOOLS.md, USER.md, HEARTBEAT.md and the optional MEMORY.md) that seed a
// tenant's agent workspace.
//
// Rendering is plain string assembly: fields and list items appear in spec
// order and every document ends with exactly one newline.
package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kr8tiv/claw/pkg/claw/harness"
)

// Document file names.
const (
	AgentsFile    = "AGENTS.md"
	SoulFile      = "SOUL.md"
	ToolsFile     = "TOOLS.md"
	UserFile      = "USER.md"
	HeartbeatFile = "HEARTBEAT.md"
	MemoryFile    = "MEMORY.md"
)

const (
	defaultCommunicationStyle = "direct, concise, practical"
	noMemorySeed              = "No seed memory provided."
	notConfigured             = "not configured"
)

// Documents maps a file name to its rendered text.
type Documents map[string]string

// Names returns the document names sorted lexicographically.
func (d Documents) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render builds every workspace document for spec. MEMORY.md is only
// included when workspace.includeMemorySeed is set.
func Render(spec *harness.HarnessSpec) Documents {
	docs := Documents{
		AgentsFile:    RenderAgents(spec),
		SoulFile:      RenderSoul(spec),
		ToolsFile:     RenderTools(spec),
		UserFile:      RenderUser(spec),
		HeartbeatFile: RenderHeartbeat(spec),
	}
	if spec.Workspace.IncludeMemorySeed {
		docs[MemoryFile] = RenderMemory(spec)
	}
	return docs
}

// RenderAgents renders identity, job functions, channel/tool policy and
// safety boundaries.
func RenderAgents(spec *harness.HarnessSpec) string {
	var b strings.Builder
	b.WriteString("# AGENTS\n\n")

	b.WriteString("## Identity\n")
	fmt.Fprintf(&b, "- Name: %s\n", spec.Tenant.DisplayName)
	fmt.Fprintf(&b, "- Role: %s\n", spec.Identity.Role)
	fmt.Fprintf(&b, "- Purpose: %s\n", spec.Identity.Purpose)
	fmt.Fprintf(&b, "- Personality: %s\n\n", spec.Identity.Personality)

	section(&b, "Responsibilities", spec.JobFunctions.Responsibilities)
	section(&b, "Success Criteria", spec.JobFunctions.SuccessCriteria)

	b.WriteString("## Channel Policy\n")
	fmt.Fprintf(&b, "- Allowed channels: %s\n", strings.Join(spec.Channels.Allow, ", "))
	fmt.Fprintf(&b, "- DM pairing required: %t\n", spec.Channels.PairingRequired())
	fmt.Fprintf(&b, "- Mention gating: %t\n\n", spec.Channels.GroupMentionGating())

	b.WriteString("## Tool Policy\n")
	toolLists(&b, spec.Tools)
	fmt.Fprintf(&b, "- Non-main sandbox enabled: %t\n\n", spec.Tools.SandboxEnabled())

	section(&b, "Safety Boundaries", spec.Boundaries.HardLimits)
	section(&b, "Escalation Rules", spec.Boundaries.EscalationRules)
	return Normalize(b.String())
}

// RenderSoul renders core truths, vibe and the reflection policy.
func RenderSoul(spec *harness.HarnessSpec) string {
	var b strings.Builder
	b.WriteString("# SOUL\n\n")
	section(&b, "Core Truths", spec.Soul.CoreTruths)

	fmt.Fprintf(&b, "## Vibe\n%s\n\n", spec.Soul.Vibe)

	b.WriteString("## Reinforcement Loop\n")
	fmt.Fprintf(&b, "- Enabled: %t\n", spec.Reinforcement.Enabled)
	fmt.Fprintf(&b, "- Reflection template:\n%s\n", spec.Reinforcement.ReflectionTemplate)
	return Normalize(b.String())
}

// RenderTools renders tool policy, secret handling and memory service settings.
func RenderTools(spec *harness.HarnessSpec) string {
	var b strings.Builder
	b.WriteString("# TOOLS\n\n")

	b.WriteString("## Policy\n")
	toolLists(&b, spec.Tools)
	fmt.Fprintf(&b, "- Sandbox non-main sessions: %t\n\n", spec.Tools.SandboxEnabled())

	b.WriteString("## Secret Handling\n")
	b.WriteString("- Allowed in workspace:\n")
	b.WriteString(List(spec.Secrets.AllowedInWorkspace))
	b.WriteString("\n- Redaction rules:\n")
	b.WriteString(List(spec.Secrets.RedactionRules))
	b.WriteString("\n\n")

	sm := spec.Supermemory
	b.WriteString("## Supermemory\n")
	fmt.Fprintf(&b, "- Enabled: %t\n", sm.Enabled)
	fmt.Fprintf(&b, "- API env key: %s\n", sm.APIKeyEnv)
	fmt.Fprintf(&b, "- Base URL: %s\n", sm.BaseURL)
	fmt.Fprintf(&b, "- topK: %d\n", sm.TopK)
	fmt.Fprintf(&b, "- threshold: %v\n", sm.Threshold)
	return Normalize(b.String())
}

// RenderUser renders communication style and coordination settings.
func RenderUser(spec *harness.HarnessSpec) string {
	style := spec.Identity.CommunicationStyle
	if style == "" {
		style = defaultCommunicationStyle
	}

	var b strings.Builder
	b.WriteString("# USER\n\n")
	fmt.Fprintf(&b, "This workspace is generated for tenant \"%s\".\n\n", spec.Tenant.DisplayName)
	fmt.Fprintf(&b, "## Communication Style\n%s\n\n", style)
	b.WriteString("## Coordination\n")
	fmt.Fprintf(&b, "- Mission Control enabled: %t\n", spec.Coordination.MissionControlEnabled)
	fmt.Fprintf(&b, "- Update channel: %s\n", spec.Updates.Channel)
	return Normalize(b.String())
}

// RenderHeartbeat renders the monitoring intervals and alert targets.
func RenderHeartbeat(spec *harness.HarnessSpec) string {
	obs := spec.Observability

	var b strings.Builder
	b.WriteString("# HEARTBEAT\n\n")
	b.WriteString("## Monitoring\n")
	fmt.Fprintf(&b, "- Heartbeat interval (seconds): %d\n", obs.HeartbeatIntervalSeconds)
	fmt.Fprintf(&b, "- Down alert threshold (seconds): %d\n\n", obs.DownAlertThresholdSeconds)
	b.WriteString("## Alert Targets\n")
	fmt.Fprintf(&b, "- Owner webhook: %s\n", orDefault(obs.OwnerWebhookURL, notConfigured))
	fmt.Fprintf(&b, "- Management webhook: %s\n", orDefault(obs.ManagementWebhookURL, notConfigured))
	return Normalize(b.String())
}

// RenderMemory renders the memory seed document.
func RenderMemory(spec *harness.HarnessSpec) string {
	return Normalize("# MEMORY\n\n" + orDefault(spec.Workspace.MemorySeed, noMemorySeed) + "\n")
}

// List renders items as "- <item>" lines, or a single "- none" line.
func List(items []string) string {
	if len(items) == 0 {
		return "- none"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func section(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "## %s\n%s\n\n", title, List(items))
}

func toolLists(b *strings.Builder, tools harness.Tools) {
	b.WriteString("- Allowlist:\n")
	b.WriteString(List(tools.Allowlist))
	b.WriteString("\n- Denylist:\n")
	b.WriteString(List(tools.Denylist))
	b.WriteString("\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Normalize trims trailing whitespace and terminates the text with exactly
// one newline.
func Normalize(s string) string {
	return strings.TrimRight(s, " \t\r\n") + "\n"
}
