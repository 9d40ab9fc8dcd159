package series

import (
	"sort"

	"github.com/Poxagronka/fireflies-summary/pkg/logging"
)

// Weights control the relative contribution of each match signal. Title
// exactness and interval plausibility dominate by default since the topic
// signal is frequently absent before a transcript exists.
type Weights struct {
	Title        float64 `yaml:"title"`
	Interval     float64 `yaml:"interval"`
	Participants float64 `yaml:"participants"`
	Topics       float64 `yaml:"topics"`
}

// MatcherConfig holds the thresholds and weights for match decisions. All
// values are configuration constants to be tuned empirically.
type MatcherConfig struct {
	Weights Weights `yaml:"weights"`

	// ConfirmThreshold is the combined score at or above which an occurrence
	// attaches with confirmed confidence.
	ConfirmThreshold float64 `yaml:"confirm_threshold"`

	// RejectThreshold is the combined score below which no candidate matches
	// and a new series is created. Scores between the two thresholds attach
	// provisionally.
	RejectThreshold float64 `yaml:"reject_threshold"`

	// TitleFilterThreshold is the minimum edit-distance ratio for a series
	// with a non-identical key to stay in the candidate set. It bounds the
	// search space before the expensive scoring.
	TitleFilterThreshold float64 `yaml:"title_filter_threshold"`

	// TieDelta is the score difference below which two candidates count as
	// tied. Ties prefer the candidate with more occurrence history, then the
	// most recently active one.
	TieDelta float64 `yaml:"tie_delta"`
}

// DefaultMatcherConfig returns the default thresholds and weights.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		Weights: Weights{
			Title:        0.40,
			Interval:     0.25,
			Participants: 0.20,
			Topics:       0.15,
		},
		ConfirmThreshold:     0.70,
		RejectThreshold:      0.40,
		TitleFilterThreshold: 0.75,
		TieDelta:             0.02,
	}
}

// Matcher combines the four match signals into a confidence score per
// candidate series and decides attach-or-create. It is a pure decision
// component: the store applies the side effects.
type Matcher struct {
	cfg MatcherConfig
	log logging.Logger
}

// NewMatcher creates a Matcher. A nil logger disables match logging.
func NewMatcher(cfg MatcherConfig, log logging.Logger) *Matcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Matcher{cfg: cfg, log: log}
}

// KeyFilter returns the candidate pre-filter for a title key, suitable for
// passing to the store's candidate lookup: a candidate key passes when it is
// identical or lexically close enough to stay in the candidate set.
func (m *Matcher) KeyFilter(titleKey string) func(string) bool {
	return func(candidateKey string) bool {
		if candidateKey == titleKey {
			return true
		}
		return TitleSimilarity(titleKey, candidateKey) >= m.cfg.TitleFilterThreshold
	}
}

// scored pairs a candidate with its combined score.
type scored struct {
	series Series
	score  float64
}

// Match scores occ against the candidate series and returns the decision.
// It never fails: insufficient evidence always resolves to a new series,
// never to an error. Worst case is an incorrect but harmless assignment.
func (m *Matcher) Match(occ Occurrence, candidates []Series) MatchResult {
	filtered := m.filterCandidates(occ, candidates)
	if len(filtered) == 0 {
		m.log.Debug("no candidates after title filter",
			logging.F("title_key", occ.TitleKey),
			logging.F("candidates_in", len(candidates)))
		return MatchResult{IsNew: true}
	}

	results := make([]scored, 0, len(filtered))
	for _, cand := range filtered {
		results = append(results, scored{series: cand, score: m.score(occ, cand)})
	}

	best := pickBest(results, m.cfg.TieDelta)

	m.log.Debug("match scored",
		logging.F("title_key", occ.TitleKey),
		logging.F("best_series", best.series.ID),
		logging.F("score", best.score))

	switch {
	case best.score >= m.cfg.ConfirmThreshold:
		return MatchResult{SeriesID: best.series.ID, Confidence: best.score}
	case best.score < m.cfg.RejectThreshold:
		return MatchResult{IsNew: true, Confidence: best.score}
	default:
		return MatchResult{SeriesID: best.series.ID, Confidence: best.score, Provisional: true}
	}
}

// filterCandidates keeps series whose title key equals the occurrence's key
// or is a high lexical-similarity match to it.
func (m *Matcher) filterCandidates(occ Occurrence, candidates []Series) []Series {
	out := make([]Series, 0, len(candidates))
	for _, cand := range candidates {
		if cand.TitleKey == occ.TitleKey {
			out = append(out, cand)
			continue
		}
		if TitleSimilarity(occ.TitleKey, cand.TitleKey) >= m.cfg.TitleFilterThreshold {
			out = append(out, cand)
		}
	}
	return out
}

// score computes the renormalized weighted sum of the four sub-scores.
// Signals without evidence (no topic tokens yet, no expected window for a
// single-occurrence series) drop out entirely and their weight redistributes
// proportionally among the remaining signals.
func (m *Matcher) score(occ Occurrence, cand Series) float64 {
	w := m.cfg.Weights

	titleScore := 1.0
	if occ.TitleKey != cand.TitleKey {
		titleScore = TitleSimilarity(occ.TitleKey, cand.TitleKey)
	}

	sum := w.Title * titleScore
	weightSum := w.Title

	if cand.NextWindow != nil {
		sum += w.Interval * IntervalPlausibility(occ.StartTime, *cand.NextWindow)
		weightSum += w.Interval
	}

	sum += w.Participants * WeightedJaccard(occ.Attendees, cand.AttendeeProfile)
	weightSum += w.Participants

	if len(occ.TopicTokens) > 0 {
		sum += w.Topics * WeightedJaccard(occ.TopicTokens, cand.TopicProfile)
		weightSum += w.Topics
	}

	if weightSum == 0 {
		return 0
	}
	return sum / weightSum
}

// pickBest returns the highest-scoring candidate. Candidates within tieDelta
// of the maximum score count as tied; among those, more history wins (more
// evidence), then most recent activity, then the smaller ID so the outcome
// never depends on candidate order.
func pickBest(results []scored, tieDelta float64) scored {
	max := results[0].score
	for _, r := range results[1:] {
		if r.score > max {
			max = r.score
		}
	}

	contenders := make([]scored, 0, len(results))
	for _, r := range results {
		if max-r.score <= tieDelta {
			contenders = append(contenders, r)
		}
	}

	sort.Slice(contenders, func(i, j int) bool {
		a, b := contenders[i], contenders[j]
		if len(a.series.History) != len(b.series.History) {
			return len(a.series.History) > len(b.series.History)
		}
		if !a.series.LastActive.Equal(b.series.LastActive) {
			return a.series.LastActive.After(b.series.LastActive)
		}
		return a.series.ID < b.series.ID
	})
	return contenders[0]
}
