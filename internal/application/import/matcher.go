package importapp

import (
	"sort"
	"unicode/utf8"

	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// MaxFuzzyRatio is the largest edit distance, relative to the longer
// name, that still counts as the same entity.
const MaxFuzzyRatio = 0.34

// Candidate is an existing entity a name can match
type Candidate struct {
	ID   int64
	Name string
}

// Match is a scored candidate
type Match struct {
	Candidate
	Distance int
	Ratio    float64
}

// RankMatches returns the candidates that fuzzily match query, best first.
// A candidate qualifies when one name is a case and accent insensitive
// subsequence of the other and the folded edit distance is within
// MaxFuzzyRatio. Ties go to the lowest ID.
func RankMatches(query string, candidates []Candidate) []Match {
	q := csvimport.FoldHeader(query)
	if q == "" || len(candidates) == 0 {
		return nil
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	qualified := make(map[int]bool)
	for _, r := range fuzzy.RankFindNormalizedFold(query, names) {
		qualified[r.OriginalIndex] = true
	}
	for i, name := range names {
		if !qualified[i] && fuzzy.MatchNormalizedFold(name, query) {
			qualified[i] = true
		}
	}

	matches := make([]Match, 0, len(qualified))
	for i := range qualified {
		c := csvimport.FoldHeader(candidates[i].Name)
		if c == "" {
			continue
		}
		longest := max(utf8.RuneCountInString(q), utf8.RuneCountInString(c))
		dist := fuzzy.LevenshteinDistance(q, c)
		ratio := float64(dist) / float64(longest)
		if ratio > MaxFuzzyRatio {
			continue
		}
		matches = append(matches, Match{Candidate: candidates[i], Distance: dist, Ratio: ratio})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})
	return matches
}

// BestMatch returns the top ranked candidate
func BestMatch(query string, candidates []Candidate) (Candidate, bool) {
	matches := RankMatches(query, candidates)
	if len(matches) == 0 {
		return Candidate{}, false
	}
	return matches[0].Candidate, true
}
