package report

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// fillerTargets are the disfluency tokens counted in the summary. Order
// matters: it breaks ties when two fillers occur equally often.
var fillerTargets = []string{
	"um", "uh", "hmm", "hm", "er", "ah",
	"like", "you know", "i mean", "actually", "basically",
}

var fillerPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(fillerTargets))
	for i, f := range fillerTargets {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(f) + `\b`)
	}
	return patterns
}()

// CountFillers counts whole-word filler occurrences in text and returns the
// total plus a detail string like "um: 3, like: 1" sorted by descending
// count. Matching is case-insensitive; the transcript itself is never
// modified.
func CountFillers(text string) (int, string) {
	lower := strings.ToLower(text)

	type fillerCount struct {
		filler string
		count  int
		order  int
	}

	var counts []fillerCount
	total := 0
	for i, pattern := range fillerPatterns {
		n := len(pattern.FindAllStringIndex(lower, -1))
		if n > 0 {
			counts = append(counts, fillerCount{filler: fillerTargets[i], count: n, order: i})
			total += n
		}
	}

	if total == 0 {
		return 0, ""
	}

	sort.SliceStable(counts, func(a, b int) bool {
		if counts[a].count != counts[b].count {
			return counts[a].count > counts[b].count
		}
		return counts[a].order < counts[b].order
	})

	parts := make([]string, len(counts))
	for i, fc := range counts {
		parts[i] = fmt.Sprintf("%s: %d", fc.filler, fc.count)
	}

	return total, strings.Join(parts, ", ")
}
