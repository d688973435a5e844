package harness

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
)

var (
	slugPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	envVarPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Result is the tagged outcome of Check: Spec is set when Issues is empty.
type Result struct {
	Spec   *HarnessSpec
	Issues []FieldIssue
}

// OK reports whether the document validated.
func (r Result) OK() bool { return len(r.Issues) == 0 }

// Err returns the issues as a *ValidationError, or nil.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Issues: r.Issues}
}

// Validate checks raw against the harness schema and applies defaults.
// raw is the generic value produced by a YAML/JSON decoder. Every violation
// is collected before returning a *ValidationError.
func Validate(raw any) (*HarnessSpec, error) {
	res := Check(raw)
	if !res.OK() {
		return nil, res.Err()
	}
	return res.Spec, nil
}

// Check is Validate in tagged-result form.
func Check(raw any) Result {
	v := &validator{}
	root, ok := asMap(raw)
	if !ok {
		v.fail("", "document must be a mapping")
		return Result{Issues: v.issues}
	}

	spec := &HarnessSpec{}

	if m := v.section(root, "tenant", true); m != nil {
		spec.Tenant.Slug = v.str(m, "tenant", "slug", true, "")
		if spec.Tenant.Slug != "" && !slugPattern.MatchString(spec.Tenant.Slug) {
			v.fail("tenant.slug", "must be kebab-case (^[a-z0-9][a-z0-9-]*$)")
		}
		spec.Tenant.DisplayName = v.str(m, "tenant", "displayName", true, "")
		spec.Tenant.ContainerTag = v.optStr(m, "tenant", "containerTag", true)
	}

	if m := v.section(root, "identity", true); m != nil {
		spec.Identity.Role = v.str(m, "identity", "role", true, "")
		spec.Identity.Purpose = v.str(m, "identity", "purpose", true, "")
		spec.Identity.Personality = v.str(m, "identity", "personality", true, "")
		spec.Identity.CommunicationStyle = v.optStr(m, "identity", "communicationStyle", true)
	}

	if m := v.section(root, "soul", true); m != nil {
		spec.Soul.CoreTruths = v.strList(m, "soul", "coreTruths", true)
		spec.Soul.Vibe = v.str(m, "soul", "vibe", true, "")
	}

	m := v.section(root, "boundaries", false)
	spec.Boundaries.HardLimits = v.strList(m, "boundaries", "hardLimits", false)
	spec.Boundaries.EscalationRules = v.strList(m, "boundaries", "escalationRules", false)

	if m := v.section(root, "jobFunctions", true); m != nil {
		spec.JobFunctions.Responsibilities = v.strList(m, "jobFunctions", "responsibilities", true)
		spec.JobFunctions.SuccessCriteria = v.strList(m, "jobFunctions", "successCriteria", true)
	}

	if m := v.section(root, "channels", true); m != nil {
		spec.Channels.Allow = v.strList(m, "channels", "allow", true)
		spec.Channels.DMPairingRequired = boolPtr(v.boolean(m, "channels", "dmPairingRequired", true))
		spec.Channels.MentionGating = boolPtr(v.boolean(m, "channels", "mentionGating", true))
	}

	m = v.section(root, "tools", false)
	spec.Tools.Allowlist = v.strList(m, "tools", "allowlist", false)
	spec.Tools.Denylist = v.strList(m, "tools", "denylist", false)
	spec.Tools.SandboxNonMainSessions = boolPtr(v.boolean(m, "tools", "sandboxNonMainSessions", true))

	m = v.section(root, "workspace", false)
	spec.Workspace.Root = v.optStr(m, "workspace", "root", true)
	spec.Workspace.RetentionDays = v.posInt(m, "workspace", "retentionDays", DefaultRetentionDays)
	spec.Workspace.IncludeMemorySeed = v.boolean(m, "workspace", "includeMemorySeed", false)
	spec.Workspace.MemorySeed = v.optStr(m, "workspace", "memorySeed", false)

	m = v.section(root, "skills", false)
	spec.Skills.Packs = v.packs(m)

	m = v.section(root, "secrets", false)
	spec.Secrets.AllowedInWorkspace = v.strList(m, "secrets", "allowedInWorkspace", false)
	spec.Secrets.RedactionRules = v.strList(m, "secrets", "redactionRules", false)

	m = v.section(root, "supermemory", false)
	spec.Supermemory.Enabled = v.boolean(m, "supermemory", "enabled", false)
	spec.Supermemory.APIKeyEnv = v.str(m, "supermemory", "apiKeyEnv", false, DefaultAPIKeyEnv)
	if !envVarPattern.MatchString(spec.Supermemory.APIKeyEnv) {
		v.fail("supermemory.apiKeyEnv", "must be an environment variable name (^[A-Za-z_][A-Za-z0-9_]*$)")
	}
	spec.Supermemory.BaseURL = v.str(m, "supermemory", "baseUrl", false, DefaultBaseURL)
	spec.Supermemory.ContainerTagPrefix = v.str(m, "supermemory", "containerTagPrefix", false, DefaultContainerTagPrefix)
	spec.Supermemory.TopK = v.posInt(m, "supermemory", "topK", DefaultTopK)
	spec.Supermemory.Threshold = v.unitInterval(m, "supermemory", "threshold", DefaultThreshold)

	m = v.section(root, "memoryIngestion", false)
	spec.MemoryIngestion.EnableAutoIngestion = v.boolean(m, "memoryIngestion", "enableAutoIngestion", true)
	spec.MemoryIngestion.DedupeByCustomID = v.boolean(m, "memoryIngestion", "dedupeByCustomId", true)
	spec.MemoryIngestion.MetadataNamespace = v.str(m, "memoryIngestion", "metadataNamespace", false, DefaultMetadataNamespace)

	m = v.section(root, "reinforcement", false)
	spec.Reinforcement.Enabled = v.boolean(m, "reinforcement", "enabled", true)
	spec.Reinforcement.ReflectionTemplate = v.str(m, "reinforcement", "reflectionTemplate", false, DefaultReflectionTemplate)

	m = v.section(root, "observability", false)
	spec.Observability.OwnerWebhookURL = v.webhook(m, "observability", "ownerWebhookUrl")
	spec.Observability.ManagementWebhookURL = v.webhook(m, "observability", "managementWebhookUrl")
	spec.Observability.HeartbeatIntervalSeconds = v.posInt(m, "observability", "heartbeatIntervalSeconds", DefaultHeartbeatIntervalSeconds)
	spec.Observability.DownAlertThresholdSeconds = v.posInt(m, "observability", "downAlertThresholdSeconds", DefaultDownAlertThresholdSeconds)

	m = v.section(root, "updates", false)
	spec.Updates.Channel = v.updateChannel(m)
	spec.Updates.RolloutWindow = v.optStr(m, "updates", "rolloutWindow", true)

	m = v.section(root, "coordination", false)
	spec.Coordination.MissionControlEnabled = v.boolean(m, "coordination", "missionControlEnabled", false)

	if len(v.issues) > 0 {
		return Result{Issues: v.issues}
	}
	return Result{Spec: spec}
}

// ─────────────────────────────────────────────────────────────────────────────
// Field helpers
// ─────────────────────────────────────────────────────────────────────────────

type validator struct {
	issues []FieldIssue
}

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, FieldIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// section returns the mapping under key. A missing optional section yields
// nil, which every helper below treats as "all fields omitted".
func (v *validator) section(root map[string]any, key string, required bool) map[string]any {
	raw, present := root[key]
	if !present || raw == nil {
		if required {
			v.fail(key, "required")
		}
		return nil
	}
	m, ok := asMap(raw)
	if !ok {
		v.fail(key, "expected a mapping, got %s", kind(raw))
		return nil
	}
	return m
}

// str reads a trimmed string. Required strings must be non-empty; optional
// ones fall back to def when omitted and must still be non-empty when given.
func (v *validator) str(m map[string]any, parent, key string, required bool, def string) string {
	path := join(parent, key)
	raw, present := m[key]
	if !present || raw == nil {
		if required {
			v.fail(path, "required")
		}
		return def
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(path, "expected a string, got %s", kind(raw))
		return def
	}
	s = strings.TrimSpace(s)
	if s == "" {
		v.fail(path, "must not be empty")
		return def
	}
	return s
}

// optStr reads an optional string that may be empty.
func (v *validator) optStr(m map[string]any, parent, key string, trim bool) string {
	raw, present := m[key]
	if !present || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(join(parent, key), "expected a string, got %s", kind(raw))
		return ""
	}
	if trim {
		s = strings.TrimSpace(s)
	}
	return s
}

// strList reads a list of non-empty trimmed strings. Omitted lists default
// to empty unless nonEmpty is set.
func (v *validator) strList(m map[string]any, parent, key string, nonEmpty bool) []string {
	path := join(parent, key)
	raw, present := m[key]
	if !present || raw == nil {
		if nonEmpty {
			v.fail(path, "required")
		}
		return []string{}
	}
	items, ok := raw.([]any)
	if !ok {
		v.fail(path, "expected a list, got %s", kind(raw))
		return []string{}
	}
	if nonEmpty && len(items) == 0 {
		v.fail(path, "must contain at least 1 item")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		s, ok := item.(string)
		if !ok {
			v.fail(itemPath, "expected a string, got %s", kind(item))
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			v.fail(itemPath, "must not be empty")
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *validator) boolean(m map[string]any, parent, key string, def bool) bool {
	raw, present := m[key]
	if !present || raw == nil {
		return def
	}
	b, ok := raw.(bool)
	if !ok {
		v.fail(join(parent, key), "expected a boolean, got %s", kind(raw))
		return def
	}
	return b
}

func (v *validator) posInt(m map[string]any, parent, key string, def int) int {
	path := join(parent, key)
	raw, present := m[key]
	if !present || raw == nil {
		return def
	}
	f, ok := asNumber(raw)
	if !ok {
		v.fail(path, "expected a number, got %s", kind(raw))
		return def
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		v.fail(path, "must be an integer")
		return def
	}
	if f <= 0 {
		v.fail(path, "must be a positive integer")
		return def
	}
	return int(f)
}

func (v *validator) unitInterval(m map[string]any, parent, key string, def float64) float64 {
	path := join(parent, key)
	raw, present := m[key]
	if !present || raw == nil {
		return def
	}
	f, ok := asNumber(raw)
	if !ok {
		v.fail(path, "expected a number, got %s", kind(raw))
		return def
	}
	if math.IsNaN(f) || f < 0 || f > 1 {
		v.fail(path, "must be between 0 and 1")
		return def
	}
	return f
}

func (v *validator) webhook(m map[string]any, parent, key string) string {
	s := v.optStr(m, parent, key, true)
	if s == "" {
		return ""
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		v.fail(join(parent, key), "must be an absolute URL")
		return ""
	}
	return s
}

func (v *validator) updateChannel(m map[string]any) UpdateChannel {
	raw, present := m["channel"]
	if !present || raw == nil {
		return UpdateStable
	}
	s, ok := raw.(string)
	if !ok {
		v.fail("updates.channel", "expected a string, got %s", kind(raw))
		return UpdateStable
	}
	switch ch := UpdateChannel(s); ch {
	case UpdateStable, UpdateBeta, UpdateDev:
		return ch
	default:
		v.fail("updates.channel", "must be one of stable, beta, dev")
		return UpdateStable
	}
}

func (v *validator) packs(m map[string]any) []SkillPackRef {
	raw, present := m["packs"]
	if !present || raw == nil {
		return []SkillPackRef{}
	}
	items, ok := raw.([]any)
	if !ok {
		v.fail("skills.packs", "expected a list, got %s", kind(raw))
		return []SkillPackRef{}
	}
	out := make([]SkillPackRef, 0, len(items))
	for i, item := range items {
		path := fmt.Sprintf("skills.packs[%d]", i)
		pm, ok := asMap(item)
		if !ok {
			v.fail(path, "expected a mapping, got %s", kind(item))
			continue
		}
		out = append(out, SkillPackRef{
			Name:    v.str(pm, path, "name", true, ""),
			Source:  v.str(pm, path, "source", true, ""),
			Version: v.optStr(pm, path, "version", true),
		})
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic value helpers
// ─────────────────────────────────────────────────────────────────────────────

func asMap(raw any) (map[string]any, bool) {
	switch t := raw.(type) {
	case map[string]any:
		return t, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func asNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func kind(raw any) string {
	switch raw.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int64, uint64, float32, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any, map[any]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", raw)
	}
}

func boolPtr(b bool) *bool { return &b }
