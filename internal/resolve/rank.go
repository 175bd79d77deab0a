// Package resolve orders media candidates and picks HLS variants.
package resolve

import (
	"cmp"
	"errors"
	"slices"

	"github.com/stupside/reelpull/internal/media"
)

// ErrNoCandidate is returned when a session produced nothing to rank.
var ErrNoCandidate = errors.New("no media candidate found")

// Selection is the outcome of ranking: the chosen candidate followed by
// every other unique candidate in rank order.
type Selection struct {
	Selected   media.Candidate
	Candidates []media.Candidate
}

// Alternates returns the ranked candidates after the selected one.
func (s Selection) Alternates() []media.Candidate {
	if len(s.Candidates) <= 1 {
		return nil
	}
	return s.Candidates[1:]
}

// Rank deduplicates candidates by location and orders them by originality,
// then tier, then discovery order. A duplicate keeps the earliest sequence
// and the best tier and originality seen for that location.
func Rank(candidates []media.Candidate) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidate
	}

	byLocation := make(map[string]int, len(candidates))
	unique := make([]media.Candidate, 0, len(candidates))

	for _, c := range candidates {
		i, seen := byLocation[c.Location]
		if !seen {
			byLocation[c.Location] = len(unique)
			unique = append(unique, c)
			continue
		}
		merged := unique[i]
		if c.Sequence < merged.Sequence {
			merged.Sequence = c.Sequence
			merged.Channel = c.Channel
		}
		merged.Tier = max(merged.Tier, c.Tier)
		merged.LooksOriginal = merged.LooksOriginal || c.LooksOriginal
		unique[i] = merged
	}

	slices.SortStableFunc(unique, compare)

	return Selection{Selected: unique[0], Candidates: unique}, nil
}

func compare(a, b media.Candidate) int {
	if a.LooksOriginal != b.LooksOriginal {
		if a.LooksOriginal {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Tier, a.Tier); c != 0 {
		return c
	}
	return cmp.Compare(a.Sequence, b.Sequence)
}
