package knowledge

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// ErrChunkNotFound is returned by Delete for unknown chunk ids.
var ErrChunkNotFound = errors.New("chunk not found")

// Chunk is one retrievable section of a document.
type Chunk struct {
	ID         string
	Department string
	Source     string
	Heading    string
	Content    string
}

// Result is a scored chunk.
type Result struct {
	Chunk
	Score float64
}

// Index retrieves the chunks of a department most relevant to a query.
type Index interface {
	Search(ctx context.Context, department, query string, k int) ([]Result, error)
}

// headingWeight is the score of a query term found in the chunk heading,
// relative to one found in the body.
const headingWeight = 0.5

type indexedChunk struct {
	chunk   Chunk
	body    map[string]struct{}
	heading map[string]struct{}
}

// InMemoryIndex is a process-local Index with term-overlap scoring.
//
// Chunks are grouped per department and de-duplicated by ID: adding a chunk
// whose ID is already present replaces it. Results are ordered by score, then
// by ID, so equal queries always yield equal answers.
type InMemoryIndex struct {
	mu     sync.RWMutex
	chunks map[string]map[string]indexedChunk // department -> chunk id -> chunk
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{chunks: make(map[string]map[string]indexedChunk)}
}

// Add indexes chunks.
func (ix *InMemoryIndex) Add(chunks ...Chunk) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, c := range chunks {
		dept, ok := ix.chunks[c.Department]
		if !ok {
			dept = make(map[string]indexedChunk)
			ix.chunks[c.Department] = dept
		}

		dept[c.ID] = indexedChunk{
			chunk:   c,
			body:    termSet(c.Content),
			heading: termSet(c.Heading),
		}
	}
}

// Delete removes a chunk.
func (ix *InMemoryIndex) Delete(department, id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	dept, ok := ix.chunks[department]
	if !ok {
		return ErrChunkNotFound
	}

	if _, ok := dept[id]; !ok {
		return ErrChunkNotFound
	}

	delete(dept, id)

	if len(dept) == 0 {
		delete(ix.chunks, department)
	}

	return nil
}

// Len returns the number of chunks of a department.
func (ix *InMemoryIndex) Len(department string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return len(ix.chunks[department])
}

// Departments returns the departments holding chunks, sorted.
func (ix *InMemoryIndex) Departments() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]string, 0, len(ix.chunks))
	for d := range ix.chunks {
		out = append(out, d)
	}

	sort.Strings(out)

	return out
}

// Search implements Index. The score is the share of distinct query terms
// found in the chunk body plus headingWeight for each one in its heading.
func (ix *InMemoryIndex) Search(ctx context.Context, department, query string, k int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := termSet(query)
	if len(terms) == 0 || k <= 0 {
		return []Result{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]Result, 0, k)

	for _, ic := range ix.chunks[department] {
		var score float64

		for t := range terms {
			if _, ok := ic.body[t]; ok {
				score++
			}

			if _, ok := ic.heading[t]; ok {
				score += headingWeight
			}
		}

		if score == 0 {
			continue
		}

		results = append(results, Result{Chunk: ic.chunk, Score: score / float64(len(terms))})
	}

	sortResults(results)

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}

// SearchAll runs every query against idx and merges the hits by chunk ID,
// keeping the best score of each chunk.
func SearchAll(ctx context.Context, idx Index, department string, queries []string, k int) ([]Result, error) {
	best := make(map[string]Result)

	for _, q := range queries {
		hits, err := idx.Search(ctx, department, q, k)
		if err != nil {
			return nil, err
		}

		for _, h := range hits {
			if prev, ok := best[h.ID]; !ok || h.Score > prev.Score {
				best[h.ID] = h
			}
		}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}

	sortResults(out)

	if len(out) > k {
		out = out[:k]
	}

	return out, nil
}

func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Score != rs[j].Score {
			return rs[i].Score > rs[j].Score
		}

		return rs[i].ID < rs[j].ID
	})
}

var foldAccents = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

// stopwords are frequent Spanish words that carry no topic.
var stopwords = map[string]struct{}{
	"como": {}, "con": {}, "cual": {}, "cuales": {}, "del": {}, "las": {}, "los": {},
	"para": {}, "por": {}, "que": {}, "una": {}, "uno": {}, "sus": {}, "mis": {},
	"donde": {}, "cuando": {}, "esta": {}, "este": {}, "hay": {}, "puedo": {},
	"quiero": {}, "necesito": {}, "sobre": {}, "son": {}, "tiene": {}, "tengo": {},
}

func termSet(text string) map[string]struct{} {
	text = foldAccents.Replace(strings.ToLower(text))

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	set := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}

		if _, stop := stopwords[f]; stop {
			continue
		}

		set[f] = struct{}{}
	}

	return set
}
