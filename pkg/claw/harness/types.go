// Package harness defines the per-tenant harness document and the
// validator that turns a loosely-typed document (YAML or JSON) into a fully
// defaulted HarnessSpec.
package harness

// UpdateChannel selects the runtime release train.
type UpdateChannel string

const (
	UpdateStable UpdateChannel = "stable"
	UpdateBeta   UpdateChannel = "beta"
	UpdateDev    UpdateChannel = "dev"
)

// Defaults applied by the validator for omitted optional fields.
const (
	DefaultRetentionDays             = 30
	DefaultAPIKeyEnv                 = "SUPERMEMORY_API_KEY"
	DefaultBaseURL                   = "https://api.supermemory.ai"
	DefaultContainerTagPrefix        = "tenant"
	DefaultTopK                      = 8
	DefaultThreshold                 = 0.45
	DefaultMetadataNamespace         = "kr8tiv-claw"
	DefaultReflectionTemplate        = "Goal | Outcome | What worked | What failed | Rule for next time"
	DefaultHeartbeatIntervalSeconds  = 60
	DefaultDownAlertThresholdSeconds = 300
)

// HarnessSpec is the validated description of one tenant's agent. It is
// produced by Validate and treated as immutable afterwards.
type HarnessSpec struct {
	Tenant          Tenant          `json:"tenant"`
	Identity        Identity        `json:"identity"`
	Soul            Soul            `json:"soul"`
	Boundaries      Boundaries      `json:"boundaries"`
	JobFunctions    JobFunctions    `json:"jobFunctions"`
	Channels        Channels        `json:"channels"`
	Tools           Tools           `json:"tools"`
	Workspace       Workspace       `json:"workspace"`
	Skills          Skills          `json:"skills"`
	Secrets         Secrets         `json:"secrets"`
	Supermemory     Supermemory     `json:"supermemory"`
	MemoryIngestion MemoryIngestion `json:"memoryIngestion"`
	Reinforcement   Reinforcement   `json:"reinforcement"`
	Observability   Observability   `json:"observability"`
	Updates         Updates         `json:"updates"`
	Coordination    Coordination    `json:"coordination"`
}

type Tenant struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"displayName"`
	// ContainerTag overrides the derived "<prefix>:<tenantId>" tag when set.
	ContainerTag string `json:"containerTag,omitempty"`
}

type Identity struct {
	Role               string `json:"role"`
	Purpose            string `json:"purpose"`
	Personality        string `json:"personality"`
	CommunicationStyle string `json:"communicationStyle,omitempty"`
}

type Soul struct {
	CoreTruths []string `json:"coreTruths"`
	Vibe       string   `json:"vibe"`
}

type Boundaries struct {
	HardLimits      []string `json:"hardLimits"`
	EscalationRules []string `json:"escalationRules"`
}

type JobFunctions struct {
	Responsibilities []string `json:"responsibilities"`
	SuccessCriteria  []string `json:"successCriteria"`
}

// Channels holds the inbound channel policy. The two security flags are
// pointers so that a spec assembled without going through Validate still
// reads as the restrictive setting; use the accessor methods.
type Channels struct {
	Allow             []string `json:"allow"`
	DMPairingRequired *bool    `json:"dmPairingRequired"`
	MentionGating     *bool    `json:"mentionGating"`
}

// PairingRequired reports whether direct messages need pairing. Unset means true.
func (c Channels) PairingRequired() bool {
	return c.DMPairingRequired == nil || *c.DMPairingRequired
}

// GroupMentionGating reports whether group messages need a mention. Unset means true.
func (c Channels) GroupMentionGating() bool {
	return c.MentionGating == nil || *c.MentionGating
}

type Tools struct {
	Allowlist              []string `json:"allowlist"`
	Denylist               []string `json:"denylist"`
	SandboxNonMainSessions *bool    `json:"sandboxNonMainSessions"`
}

// SandboxEnabled reports whether non-main sessions run sandboxed. Unset means true.
func (t Tools) SandboxEnabled() bool {
	return t.SandboxNonMainSessions == nil || *t.SandboxNonMainSessions
}

type Workspace struct {
	Root              string `json:"root,omitempty"`
	RetentionDays     int    `json:"retentionDays"`
	IncludeMemorySeed bool   `json:"includeMemorySeed"`
	MemorySeed        string `json:"memorySeed,omitempty"`
}

// SkillPackRef points at one installable skill pack.
type SkillPackRef struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Version string `json:"version,omitempty"`
}

type Skills struct {
	Packs []SkillPackRef `json:"packs"`
}

type Secrets struct {
	AllowedInWorkspace []string `json:"allowedInWorkspace"`
	RedactionRules     []string `json:"redactionRules"`
}

// Supermemory configures the external memory service integration.
type Supermemory struct {
	Enabled            bool    `json:"enabled"`
	APIKeyEnv          string  `json:"apiKeyEnv"`
	BaseURL            string  `json:"baseUrl"`
	ContainerTagPrefix string  `json:"containerTagPrefix"`
	TopK               int     `json:"topK"`
	Threshold          float64 `json:"threshold"`
}

type MemoryIngestion struct {
	EnableAutoIngestion bool   `json:"enableAutoIngestion"`
	DedupeByCustomID    bool   `json:"dedupeByCustomId"`
	MetadataNamespace   string `json:"metadataNamespace"`
}

type Reinforcement struct {
	Enabled            bool   `json:"enabled"`
	ReflectionTemplate string `json:"reflectionTemplate"`
}

type Observability struct {
	OwnerWebhookURL           string `json:"ownerWebhookUrl,omitempty"`
	ManagementWebhookURL      string `json:"managementWebhookUrl,omitempty"`
	HeartbeatIntervalSeconds  int    `json:"heartbeatIntervalSeconds"`
	DownAlertThresholdSeconds int    `json:"downAlertThresholdSeconds"`
}

type Updates struct {
	Channel       UpdateChannel `json:"channel"`
	RolloutWindow string        `json:"rolloutWindow,omitempty"`
}

type Coordination struct {
	MissionControlEnabled bool `json:"missionControlEnabled"`
}
