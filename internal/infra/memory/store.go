package memory

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"unicode"

	"genui/internal/domain"
)

// Store is the vector-store contract used by the session memory service.
// Collections are created lazily by EnsureCollection and are independent
// namespaces of documents keyed by id.
type Store interface {
	EnsureCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, doc domain.MemoryDocument) error
	Query(ctx context.Context, collection string, query Query) ([]domain.MemoryMatch, error)
	List(ctx context.Context, collection string, where map[string]any) ([]domain.MemoryDocument, error)
	Count(ctx context.Context, collection string) (int, error)
	DropCollection(ctx context.Context, name string) error
	Close() error
}

// Query selects documents by embedding similarity when Embedding is set,
// otherwise by lexical overlap with Text. Where is an equality filter on
// metadata keys.
type Query struct {
	Text      string
	Embedding []float32
	Limit     int
	Where     map[string]any
}

// rankDocuments orders candidates for stores that cannot search natively.
func rankDocuments(docs []domain.MemoryDocument, query Query) []domain.MemoryMatch {
	limit := query.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchResults
	}

	type scored struct {
		doc      domain.MemoryDocument
		distance *float64
	}
	var candidates []scored

	if len(query.Embedding) > 0 {
		for _, doc := range docs {
			if !matchesWhere(doc.Metadata, query.Where) {
				continue
			}
			distance, ok := cosineDistance(query.Embedding, doc.Embedding)
			if !ok {
				continue
			}
			candidates = append(candidates, scored{doc: doc, distance: &distance})
		}
	}

	if len(candidates) == 0 {
		tokens := tokenize(query.Text)
		for _, doc := range docs {
			if !matchesWhere(doc.Metadata, query.Where) {
				continue
			}
			if len(tokens) == 0 {
				candidates = append(candidates, scored{doc: doc})
				continue
			}
			score := lexicalScore(tokens, doc.Document)
			if score == 0 {
				continue
			}
			distance := 1 - score
			candidates = append(candidates, scored{doc: doc, distance: &distance})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := candidates[i].distance, candidates[j].distance
		if di != nil && dj != nil && *di != *dj {
			return *di < *dj
		}
		return candidates[i].doc.CreatedAt.After(candidates[j].doc.CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]domain.MemoryMatch, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.MemoryMatch{Document: c.doc.Document, Metadata: c.doc.Metadata, Distance: c.distance})
	}
	return out
}

func filterDocuments(docs []domain.MemoryDocument, where map[string]any) []domain.MemoryDocument {
	if len(where) == 0 {
		return docs
	}
	out := docs[:0:0]
	for _, doc := range docs {
		if matchesWhere(doc.Metadata, where) {
			out = append(out, doc)
		}
	}
	return out
}

func matchesWhere(metadata, where map[string]any) bool {
	for key, want := range where {
		got, ok := metadata[key]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b any) bool {
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ea) == string(eb)
}

func cosineDistance(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb)), true
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}

func lexicalScore(tokens []string, document string) float64 {
	words := tokenize(document)
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}
	matched := 0
	for _, token := range tokens {
		if _, ok := present[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func float64Embedding(vec []float32) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Embedding(vec []float64) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}
