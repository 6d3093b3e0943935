// Package variation scores payee-name similarity and detects when an observed
// spelling is a variant of a name the tenant already knows. Several heuristics
// compete in fixed precedence: exact, abbreviation dictionary, prefix,
// phonetic, then edit-distance scoring.
package variation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/normalize"
	"github.com/ledgerling/ledgerling/internal/service"
)

// minNameLength is the shortest input worth comparing. Anything shorter
// produces an empty result, never an error.
const minNameLength = 3

// jaroWinklerMaxLen is the token length up to which Jaro-Winkler outperforms
// plain edit distance; longer strings fall back to Levenshtein ratio.
const jaroWinklerMaxLen = 12

// Similarity is the outcome of comparing two payee names.
type Similarity struct {
	Method model.SimilarityMethod
	Score  float64 // 0-1
}

// CalculateSimilarity scores two raw payee strings. Methods are tried in
// precedence order and the first match wins.
func CalculateSimilarity(a, b string) Similarity {
	na := normalize.Payee(a)
	nb := normalize.Payee(b)

	if na == "" || nb == "" {
		return Similarity{Method: model.MethodLevenshtein, Score: 0}
	}

	if na == nb {
		return Similarity{Method: model.MethodExact, Score: 1.0}
	}

	if abbreviationMatch(na, nb) {
		return Similarity{Method: model.MethodAbbreviation, Score: 1.0}
	}

	// One name being a strict prefix of the other usually means a stripped
	// suffix or branch qualifier survived in only one spelling.
	if len(na) >= minNameLength && len(nb) >= minNameLength {
		if strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na) {
			return Similarity{Method: model.MethodSuffix, Score: 1.0}
		}
	}

	edit := editScore(na, nb)

	if phoneticMatch(na, nb) {
		return Similarity{Method: model.MethodPhonetic, Score: math.Max(0.85, edit)}
	}

	if len(na) <= jaroWinklerMaxLen && len(nb) <= jaroWinklerMaxLen {
		return Similarity{Method: model.MethodJaroWinkler, Score: smetrics.JaroWinkler(na, nb, 0.7, 4)}
	}
	return Similarity{Method: model.MethodLevenshtein, Score: edit}
}

// editScore is the Levenshtein ratio: 1 - distance/maxLen.
func editScore(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1.0 - float64(dist)/float64(longest)
}

// phoneticMatch compares Soundex encodings token-wise: every token of the
// shorter name must sound like the corresponding token of the other.
func phoneticMatch(a, b string) bool {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	n := len(ta)
	if len(tb) < n {
		n = len(tb)
	}
	for i := 0; i < n; i++ {
		if smetrics.Soundex(ta[i]) != smetrics.Soundex(tb[i]) {
			return false
		}
	}
	return true
}

// Confidence maps a similarity to a 0-100 confidence percentage. The
// transform is monotonic in score but not equal to it: dictionary-class
// matches pin to 100 while fuzzy scores are compressed slightly.
func Confidence(s Similarity) float64 {
	switch s.Method {
	case model.MethodExact, model.MethodAbbreviation, model.MethodSuffix:
		return 100
	default:
		return math.Round(math.Min(100, s.Score*95+5))
	}
}

// Detector compares observed names against a tenant's known patterns.
type Detector struct {
	patterns service.PatternStore
	floor    float64 // Minimum similarity score to report
}

// NewDetector creates a detector over the given pattern store.
func NewDetector(patterns service.PatternStore, similarityFloor float64) *Detector {
	return &Detector{patterns: patterns, floor: similarityFloor}
}

// DetectVariations compares name against every known canonical name and alias
// for the tenant and returns matches above the similarity floor, sorted by
// descending confidence. Short or empty input yields an empty result.
func (d *Detector) DetectVariations(ctx context.Context, tenantID, name string) (model.VariationMatches, error) {
	normalized := normalize.Payee(name)
	if len(normalized) < minNameLength {
		return nil, nil
	}

	patterns, err := d.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var matches model.VariationMatches
	for _, p := range patterns {
		candidates := append([]string{p.CanonicalName}, p.Aliases...)
		for _, candidate := range candidates {
			sim := CalculateSimilarity(normalized, candidate)
			if sim.Score < d.floor {
				continue
			}
			matches = append(matches, model.VariationMatch{
				Name:       name,
				Candidate:  candidate,
				Canonical:  p.CanonicalName,
				Method:     sim.Method,
				Score:      sim.Score,
				Confidence: Confidence(sim),
			})
		}
	}

	matches.Sort()
	return matches, nil
}

// FindAllPotentialGroups clusters every known name for the tenant into
// connected similarity groups. Similarity is transitive within a group: A~B
// and B~C put A, B, C together even if A and C score below the floor on
// their own. Groups are sorted by confidence descending.
func (d *Detector) FindAllPotentialGroups(ctx context.Context, tenantID string) ([]model.VariationGroup, error) {
	patterns, err := d.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var names []string
	seen := make(map[string]bool)
	for _, p := range patterns {
		for _, n := range append([]string{p.CanonicalName}, p.Aliases...) {
			key := normalize.Payee(n)
			if len(key) < minNameLength || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, key)
		}
	}

	parent := make([]int, len(names))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(i, j int) {
		parent[find(i)] = find(j)
	}

	pairConfidence := make(map[int][]float64)
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			sim := CalculateSimilarity(names[i], names[j])
			if sim.Score < d.floor {
				continue
			}
			union(i, j)
			root := find(i)
			pairConfidence[root] = append(pairConfidence[root], Confidence(sim))
		}
	}

	members := make(map[int][]string)
	confidences := make(map[int][]float64)
	for i, name := range names {
		root := find(i)
		members[root] = append(members[root], name)
	}
	// Pair confidences were recorded under possibly stale roots; re-home them.
	for root, confs := range pairConfidence {
		confidences[find(root)] = append(confidences[find(root)], confs...)
	}

	var groups []model.VariationGroup
	for root, groupNames := range members {
		if len(groupNames) < 2 {
			continue
		}
		confs := confidences[root]
		var total float64
		for _, c := range confs {
			total += c
		}
		sort.Strings(groupNames)
		groups = append(groups, model.VariationGroup{
			Names:      groupNames,
			Confidence: total / float64(len(confs)),
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Confidence != groups[j].Confidence {
			return groups[i].Confidence > groups[j].Confidence
		}
		return groups[i].Names[0] < groups[j].Names[0]
	})
	return groups, nil
}

// SuggestAliases proposes alias links for high-confidence unresolved
// variations between tenant patterns. The pattern with the larger match count
// keeps its name as the canonical; the other is suggested as its alias.
func (d *Detector) SuggestAliases(ctx context.Context, tenantID string, limit int, confidenceFloor float64) ([]model.SuggestedAlias, error) {
	patterns, err := d.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var suggestions []model.SuggestedAlias
	for i := 0; i < len(patterns); i++ {
		for j := i + 1; j < len(patterns); j++ {
			a, b := patterns[i], patterns[j]
			if a.HasAlias(b.CanonicalName) || b.HasAlias(a.CanonicalName) {
				continue // Already resolved
			}
			sim := CalculateSimilarity(a.CanonicalName, b.CanonicalName)
			conf := Confidence(sim)
			if sim.Score < d.floor || conf < confidenceFloor {
				continue
			}

			canonical, variant := a, b
			if b.MatchCount > a.MatchCount {
				canonical, variant = b, a
			}
			suggestions = append(suggestions, model.SuggestedAlias{
				PayeeName:          variant.CanonicalName,
				SuggestedCanonical: canonical.CanonicalName,
				Confidence:         conf,
				Reason:             fmt.Sprintf("%s similarity %.2f", sim.Method, sim.Score),
				Examples:           []string{canonical.CanonicalName, variant.CanonicalName},
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// FindSimilar returns the best-matching known canonical name for an observed
// payee, or empty when nothing clears the floor.
func (d *Detector) FindSimilar(ctx context.Context, tenantID, name string) (string, float64, error) {
	matches, err := d.DetectVariations(ctx, tenantID, name)
	if err != nil {
		return "", 0, err
	}
	if len(matches) == 0 {
		return "", 0, nil
	}
	return matches[0].Canonical, matches[0].Confidence, nil
}
