// Package catalog holds the list of known-good product names used for
// fuzzy suggestion during review. Matching is advisory: a suggestion is
// shown next to the draft and only lands in it through an explicit user
// edit, never silently. Vision models confuse near-homograph Chinese
// product names often enough that auto-correcting would destroy the
// "name is verbatim from the label" guarantee.
package catalog

import (
	"bufio"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Suggestion is one ranked catalog match.
type Suggestion struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// Catalog is an ordered set of known product names.
type Catalog struct {
	names         []string
	minSimilarity float64
	logger        *slog.Logger
}

// New builds a catalog from an explicit name list, preserving order and
// dropping blanks and duplicates.
func New(names []string, minSimilarity float64, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if minSimilarity <= 0 {
		minSimilarity = 0.55
	}
	seen := make(map[string]struct{}, len(names))
	kept := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		kept = append(kept, n)
	}
	return &Catalog{names: kept, minSimilarity: minSimilarity, logger: logger}
}

// Load reads one product name per line from path. A missing path yields
// an empty catalog, not an error: suggestions are a convenience, and
// intake must work without them.
func Load(path string, minSimilarity float64, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return New(nil, minSimilarity, logger)
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Warn("catalog.load.skipped", "path", path, "error", err)
		return New(nil, minSimilarity, logger)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		names = append(names, sc.Text())
	}
	if err := sc.Err(); err != nil {
		logger.Warn("catalog.load.partial", "path", path, "error", err)
	}
	c := New(names, minSimilarity, logger)
	logger.Info("catalog.load.ok", "path", path, "names", len(c.names))
	return c
}

// Len reports how many names the catalog holds.
func (c *Catalog) Len() int { return len(c.names) }

// Suggest returns up to limit catalog names ranked by Levenshtein
// similarity to name, best first, all at or above the similarity floor.
// An empty query or empty catalog yields nil.
func (c *Catalog) Suggest(name string, limit int) []Suggestion {
	name = strings.TrimSpace(name)
	if name == "" || len(c.names) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 3
	}

	out := make([]Suggestion, 0, limit)
	for _, candidate := range c.names {
		sim := levenshtein.Similarity(name, candidate, nil)
		if sim >= c.minSimilarity {
			out = append(out, Suggestion{Name: candidate, Similarity: sim})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
