// Package report computes the profession-frequency table from stored rows.
package report

import (
	"slices"
	"sort"

	"profreg/internal/registrant/models"
	stringutil "profreg/pkg/platform/strings"
)

const professionSeparator = ","

// CountProfessions tallies every comma-separated profession in seed followed
// by stored. Tokens are trimmed and empty ones dropped; case is preserved.
// Rows come back by count descending, ties in byte order of the profession.
func CountProfessions(seed, stored []string) []models.ProfessionCount {
	counts := make(map[string]int)
	tally := func(entries []string) {
		for _, entry := range entries {
			for _, token := range stringutil.SplitAndTrim(entry, professionSeparator) {
				counts[token]++
			}
		}
	}
	tally(seed)
	tally(stored)

	vocabulary := make([]string, 0, len(counts))
	for p := range counts {
		vocabulary = append(vocabulary, p)
	}
	slices.Sort(vocabulary)

	result := make([]models.ProfessionCount, len(vocabulary))
	for i, p := range vocabulary {
		result[i] = models.ProfessionCount{Profession: p, Count: counts[p]}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}
