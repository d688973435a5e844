// Package memory implements the client-side conventions for the tenant-scoped
// Supermemory service: container tags, dedupe custom ids, document metadata,
// the HTTP client and hybrid retrieval with passage deduplication.
package memory

import (
	"regexp"
	"strings"
)

var unsafeExternalIDChars = regexp.MustCompile(`[^a-z0-9\-:_]`)

// Metadata is attached verbatim to every ingested document.
type Metadata struct {
	TenantID     string `json:"tenantId"`
	ContainerTag string `json:"containerTag"`
	Source       string `json:"source"`
	Namespace    string `json:"namespace"`
	UserID       string `json:"userId,omitempty"`
}

// MetadataInput holds the values BuildMetadata assembles.
type MetadataInput struct {
	TenantID     string
	ContainerTag string
	Source       string
	Namespace    string
	UserID       string
}

// BuildContainerTag returns "<prefix>:<tenantID>".
func BuildContainerTag(prefix, tenantID string) string {
	return prefix + ":" + tenantID
}

// NormalizeExternalID trims and lower-cases id and replaces every character
// outside [a-z0-9-:_] with '-'.
func NormalizeExternalID(id string) string {
	return unsafeExternalIDChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(id)), "-")
}

// BuildCustomID returns "<tenantID>:<namespace>:<normalized externalID>", the
// key the memory service deduplicates documents on.
func BuildCustomID(tenantID, namespace, externalID string) string {
	return tenantID + ":" + namespace + ":" + NormalizeExternalID(externalID)
}

// BuildMetadata assembles the per-document metadata record. An empty user id
// is omitted from the serialized form.
func BuildMetadata(in MetadataInput) Metadata {
	return Metadata{
		TenantID:     in.TenantID,
		ContainerTag: in.ContainerTag,
		Source:       in.Source,
		Namespace:    in.Namespace,
		UserID:       in.UserID,
	}
}
