package memory

import (
	"context"
	"strings"
)

// resultKeys are the response keys a result list may be found under, in
// order of preference.
var resultKeys = []string{"results", "items", "data"}

// textKeys are the entry keys a passage may be read from, in order of preference.
var textKeys = []string{"content", "text", "snippet"}

// Searcher is the part of Client that retrieval depends on.
type Searcher interface {
	Search(ctx context.Context, in SearchInput) (Response, error)
}

// RetrievalRequest describes one hybrid context lookup.
type RetrievalRequest struct {
	Query        string
	ContainerTag string
	Threshold    float64
	TopK         int
	UserID       string
}

// RetrieveHybridContext runs a fresh hybrid search and returns at most TopK
// whitespace-normalized, deduplicated passages in first-occurrence order.
// Malformed entries are skipped. A non-positive TopK returns no passages
// without calling the service.
func RetrieveHybridContext(ctx context.Context, s Searcher, req RetrievalRequest) ([]string, error) {
	if req.TopK <= 0 {
		return []string{}, nil
	}
	payload, err := s.Search(ctx, SearchInput{
		Query:        req.Query,
		ContainerTag: req.ContainerTag,
		Threshold:    req.Threshold,
		TopK:         req.TopK,
		UserID:       req.UserID,
	})
	if err != nil {
		return nil, err
	}
	return DedupePassages(payload, req.TopK), nil
}

// DedupePassages extracts passages from a search payload, collapses internal
// whitespace, drops empties and duplicates, and stops once topK passages
// have been collected.
func DedupePassages(payload Response, topK int) []string {
	out := []string{}
	if topK <= 0 {
		return out
	}
	items, ok := resultList(payload).([]any)
	if !ok {
		return out
	}

	seen := make(map[string]struct{}, topK)
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		text, ok := passageText(entry)
		if !ok {
			continue
		}
		compact := strings.Join(strings.Fields(text), " ")
		if compact == "" {
			continue
		}
		if _, dup := seen[compact]; dup {
			continue
		}
		seen[compact] = struct{}{}
		out = append(out, compact)
		if len(out) >= topK {
			break
		}
	}
	return out
}

// resultList returns the value of the first result key that is present and non-null.
func resultList(payload Response) any {
	for _, key := range resultKeys {
		if v, ok := payload[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func passageText(entry map[string]any) (string, bool) {
	for _, key := range textKeys {
		if s, ok := entry[key].(string); ok {
			return s, true
		}
	}
	return "", false
}
