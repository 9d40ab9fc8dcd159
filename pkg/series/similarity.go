package series

import "time"

// WeightedJaccard scores the similarity between a plain item set from a new
// occurrence and a frequency-weighted series profile, in [0, 1].
//
// Intersection weight is the sum of profile weights for items present on both
// sides; union weight is the total profile weight plus 1.0 for each new-only
// item. Empty input on either side yields 0: no evidence is not a match.
func WeightedJaccard(items []string, profile Profile) float64 {
	if len(items) == 0 || len(profile) == 0 {
		return 0
	}

	intersection := 0.0
	newOnly := 0.0
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		if w := profile.Weight(item); w > 0 {
			intersection += w
		} else {
			newOnly += 1.0
		}
	}

	union := profile.Total() + newOnly
	if union == 0 {
		return 0
	}
	return intersection / union
}

// TitleSimilarity computes an edit-distance ratio between two normalized
// title keys, in [0, 1]. 1.0 means identical keys.
func TitleSimilarity(a, b string) float64 {
	if a == b {
		if a == "" {
			return 0
		}
		return 1.0
	}
	if a == "" || b == "" {
		return 0
	}

	dist := levenshtein(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// levenshtein computes the edit distance between two strings using the
// two-row dynamic programming formulation.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// IntervalPlausibility scores how well a start time fits a series' expected
// next-occurrence window: 1.0 inside the window, smoothly decaying with
// distance outside it. A meeting far outside the window can still match on
// the other signals, just at reduced confidence.
func IntervalPlausibility(start time.Time, w Window) float64 {
	if w.Contains(start) {
		return 1.0
	}

	var dist time.Duration
	if start.Before(w.Start) {
		dist = w.Start.Sub(start)
	} else {
		dist = start.Sub(w.End)
	}

	half := w.HalfWidth()
	if half <= 0 {
		half = time.Hour
	}
	// Hyperbolic decay: one half-width past the edge scores 0.5.
	return 1.0 / (1.0 + float64(dist)/float64(half))
}
