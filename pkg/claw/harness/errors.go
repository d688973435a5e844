package harness

import (
	"fmt"
	"strings"
)

// FieldIssue is one violated constraint, addressed by its dotted path
// (e.g. "skills.packs[1].name").
type FieldIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i FieldIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError carries every issue found in a harness document, in the
// order the fields were visited.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("harness validation failed (%d issue(s)): %s", len(e.Issues), strings.Join(parts, "; "))
}

// Paths returns the offending field paths.
func (e *ValidationError) Paths() []string {
	out := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		out[i] = issue.Path
	}
	return out
}
