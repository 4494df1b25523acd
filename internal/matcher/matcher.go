// Package matcher resolves free-text movement names from a parsed workout to
// catalog movements. Only exact and alias hits clear the default threshold;
// keyword and substring guesses are recorded but left for a human to confirm.
package matcher

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/claude/wodocr/internal/models"
)

// DefaultThreshold is the minimum confidence for a match to be applied.
const DefaultThreshold = 0.75

// Confidence assigned by each strategy.
const (
	ConfidenceAlias   = 0.92
	ConfidenceName    = 0.9
	ConfidenceKeyword = 0.7
	ConfidencePartial = 0.55
)

// Result is the annotated copy of a parsed workout plus review warnings.
type Result struct {
	Matched   models.ParsedWod `json:"matched"`
	Warnings  []string         `json:"warnings"`
	Unmatched int              `json:"unmatched"`
}

// Resolution is the outcome of resolving a single name.
type Resolution struct {
	MovementID *int64  `json:"movement_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence"`
	Strategy   string  `json:"strategy,omitempty"`
}

// Matcher resolves movement names against a catalog using its alias tables.
// It holds no per-catalog state and is safe for concurrent use.
type Matcher struct {
	aliases   Aliases
	threshold float64
}

// New creates a Matcher. A negative threshold falls back to DefaultThreshold;
// one above 1 is kept and leaves every movement unresolved.
func New(aliases Aliases, threshold float64) *Matcher {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{aliases: aliases, threshold: threshold}
}

// Match resolves movements with the default alias tables.
func Match(parsed models.ParsedWod, catalog []models.Movement, threshold float64) Result {
	return New(DefaultAliases(), threshold).Match(parsed, catalog)
}

// Threshold returns the confidence a match needs to be applied.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// Match returns a deep copy of parsed with movement_id and match_confidence
// filled in. parsed itself is never modified. Movements below the threshold
// keep their confidence but no id, and are reported in one batched warning.
func (m *Matcher) Match(parsed models.ParsedWod, catalog []models.Movement) Result {
	idx := m.buildIndex(catalog)
	out := parsed.Clone()
	unmatched := 0

	for bi := range out.Blocks {
		for si := range out.Blocks[bi].Scenarios {
			movements := out.Blocks[bi].Scenarios[si].Movements
			for mi := range movements {
				res := idx.resolve(movements[mi].NameRaw)
				conf := res.Confidence
				movements[mi].MatchConfidence = &conf
				if res.MovementID == nil || conf < m.threshold {
					movements[mi].MovementID = nil
					unmatched++
					continue
				}
				id := *res.MovementID
				movements[mi].MovementID = &id
			}
		}
	}

	warnings := []string{}
	if unmatched > 0 {
		warnings = append(warnings, unmatchedWarning(unmatched))
	}
	return Result{Matched: out, Warnings: warnings, Unmatched: unmatched}
}

// Resolve looks up a single name without applying the threshold.
func (m *Matcher) Resolve(name string, catalog []models.Movement) Resolution {
	return m.buildIndex(catalog).resolve(name)
}

func unmatchedWarning(n int) string {
	if n == 1 {
		return "1 movimiento requiere revisión manual"
	}
	return fmt.Sprintf("%d movimientos requieren revisión manual", n)
}

// index is built for one call and discarded; the catalog may change between calls.
type index struct {
	lookup   map[string]models.Movement // catalog names and aliases
	names    map[string]models.Movement // catalog names only
	ordered  []indexedMovement          // catalog order, for substring scans
	keywords []KeywordRule              // normalized, targets present in the catalog
}

type indexedMovement struct {
	norm string
	mv   models.Movement
}

func (m *Matcher) buildIndex(catalog []models.Movement) *index {
	idx := &index{
		lookup: make(map[string]models.Movement, len(catalog)+len(m.aliases.Names)),
		names:  make(map[string]models.Movement, len(catalog)),
	}

	for _, mv := range catalog {
		n := normalize(mv.Name)
		if n == "" {
			continue
		}
		idx.ordered = append(idx.ordered, indexedMovement{norm: n, mv: mv})
		if _, ok := idx.names[n]; !ok {
			idx.names[n] = mv
			idx.lookup[n] = mv
		}
	}

	// Sorted so that aliases normalizing to the same key resolve the same
	// way on every call.
	for _, alias := range slices.Sorted(maps.Keys(m.aliases.Names)) {
		a := normalize(alias)
		mv, ok := idx.names[normalize(m.aliases.Names[alias])]
		if a == "" || !ok {
			continue
		}
		// Catalog names and earlier aliases take priority.
		if _, taken := idx.lookup[a]; !taken {
			idx.lookup[a] = mv
		}
	}

	for _, k := range m.aliases.Keywords {
		kw := normalize(k.Keyword)
		if kw == "" {
			continue
		}
		if _, ok := idx.names[normalize(k.Target)]; ok {
			idx.keywords = append(idx.keywords, KeywordRule{Keyword: kw, Target: normalize(k.Target)})
		}
	}
	return idx
}

// strategy is one resolution step. Steps are tried in order; the first hit wins.
type strategy struct {
	name       string
	confidence float64
	find       func(idx *index, norm string) (models.Movement, bool)
}

// Every catalog name is also in lookup, so in practice the alias step shadows
// the name step and exact names report ConfidenceAlias.
var strategies = []strategy{
	{name: "alias", confidence: ConfidenceAlias, find: (*index).findAlias},
	{name: "name", confidence: ConfidenceName, find: (*index).findName},
	{name: "keyword", confidence: ConfidenceKeyword, find: (*index).findKeyword},
	{name: "partial", confidence: ConfidencePartial, find: (*index).findPartial},
}

func (idx *index) resolve(raw string) Resolution {
	norm := normalize(raw)
	if norm == "" {
		return Resolution{}
	}
	for _, s := range strategies {
		if mv, ok := s.find(idx, norm); ok {
			id := mv.ID
			return Resolution{MovementID: &id, Name: mv.Name, Confidence: s.confidence, Strategy: s.name}
		}
	}
	return Resolution{}
}

func (idx *index) findAlias(norm string) (models.Movement, bool) {
	mv, ok := idx.lookup[norm]
	return mv, ok
}

func (idx *index) findName(norm string) (models.Movement, bool) {
	mv, ok := idx.names[norm]
	return mv, ok
}

func (idx *index) findKeyword(norm string) (models.Movement, bool) {
	for _, k := range idx.keywords {
		if strings.Contains(norm, k.Keyword) {
			return idx.names[k.Target], true
		}
	}
	return models.Movement{}, false
}

func (idx *index) findPartial(norm string) (models.Movement, bool) {
	for _, e := range idx.ordered {
		if strings.Contains(e.norm, norm) {
			return e.mv, true
		}
	}
	return models.Movement{}, false
}

// normalize lowercases s, keeps only letters, digits and spaces, and
// collapses runs of spaces.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
