package memory

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCustomID(t *testing.T) {
	tests := []struct {
		name       string
		externalID string
		want       string
	}{
		{"mixed case and slash", "Task/ABC-123", "tenant-a:arena:task-abc-123"},
		{"keeps colon and underscore", "run:42_b", "tenant-a:arena:run:42_b"},
		{"trims and replaces spaces", "  Daily Report  ", "tenant-a:arena:daily-report"},
		{"non-ascii", "café", "tenant-a:arena:caf-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildCustomID("tenant-a", "arena", tt.externalID))
		})
	}
}

func TestBuildContainerTag(t *testing.T) {
	assert.Equal(t, "tenant:acme-1234abcd", BuildContainerTag("tenant", "acme-1234abcd"))
}

func TestBuildMetadataOmitsEmptyUserID(t *testing.T) {
	md := BuildMetadata(MetadataInput{
		TenantID: "tenant-a", ContainerTag: "tenant:tenant-a", Source: "task-mode", Namespace: "arena",
	})
	data, err := json.Marshal(md)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenantId":"tenant-a","containerTag":"tenant:tenant-a","source":"task-mode","namespace":"arena"}`, string(data))

	md = BuildMetadata(MetadataInput{TenantID: "t", ContainerTag: "c", Source: "s", Namespace: "n", UserID: "user-1"})
	data, err = json.Marshal(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"userId":"user-1"`)
}

func TestCustomIDProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalization is idempotent", prop.ForAll(
		func(id string) bool {
			once := NormalizeExternalID(id)
			return NormalizeExternalID(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("custom id is deterministic and tenant-prefixed", prop.ForAll(
		func(tenantID, id string) bool {
			a := BuildCustomID(tenantID, "ns", id)
			b := BuildCustomID(tenantID, "ns", id)
			return a == b && len(a) >= len(tenantID)+4 && a[:len(tenantID)+1] == tenantID+":"
		},
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.Property("already-normalized ids are preserved", prop.ForAll(
		func(id string) bool {
			return NormalizeExternalID(id) == id
		},
		gen.RegexMatch(`[a-z0-9][a-z0-9_:-]{0,30}`),
	))

	properties.TestingRun(t)
}
