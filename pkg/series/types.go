// Package series implements meeting series detection: grouping meeting
// occurrences into recurring series purely from observed metadata (titles,
// timestamps, attendee lists, topic tokens) with no stable external series
// identifier.
//
// The detection pipeline has four signals - title-key similarity, interval
// plausibility, participant overlap and topic similarity - combined by the
// Matcher into a single confidence score per candidate series. The Matcher is
// a deterministic heuristic classifier, not a language-understanding system.
package series

import "time"

// Cadence classifies the recurrence interval of a series.
type Cadence string

const (
	CadenceUnknown  Cadence = "unknown"
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceBiweekly Cadence = "biweekly"
	CadenceMonthly  Cadence = "monthly"
	CadenceAdhoc    Cadence = "adhoc"
)

// Occurrence is one concrete meeting instance. Immutable once created except
// for TranscriptReady, which flips when a summary becomes available.
type Occurrence struct {
	ID              string
	Title           string
	TitleKey        string
	StartTime       time.Time
	Attendees       []string
	TopicTokens     []string
	TranscriptReady bool
}

// Window is the expected time range for the next occurrence of a series.
// It is a plausibility signal for the Matcher, never a hard filter.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// HalfWidth returns half the window span.
func (w Window) HalfWidth() time.Duration {
	return w.End.Sub(w.Start) / 2
}

// Series is an inferred recurring meeting group.
//
// Invariants: a series always has at least one occurrence; a series with
// exactly one occurrence has cadence unknown; History is strictly increasing
// by start timestamp; every occurrence belongs to exactly one series.
type Series struct {
	ID       string
	TitleKey string
	// Name is the display name taken from the first occurrence's raw title.
	Name string
	// History holds the occurrences in chronological order. The store may
	// prune old entries from this in-memory scoring window; pruning never
	// deletes the underlying records.
	History []Occurrence
	Cadence Cadence
	// NextWindow is nil while cadence is unknown or adhoc.
	NextWindow *Window
	// AttendeeProfile and TopicProfile are decayed frequency-weighted sets;
	// recent occurrences weigh more than distant ones.
	AttendeeProfile Profile
	TopicProfile    Profile
	// Confidence is the combined score of the last match decision.
	Confidence float64
	// Provisional marks a series whose last attachment scored between the
	// rejection and confirmation thresholds.
	Provisional bool
	LastActive  time.Time
}

// Clone returns a deep copy safe to hand to readers while the store keeps
// mutating the original.
func (s *Series) Clone() Series {
	out := *s
	out.History = make([]Occurrence, len(s.History))
	copy(out.History, s.History)
	out.AttendeeProfile = s.AttendeeProfile.Clone()
	out.TopicProfile = s.TopicProfile.Clone()
	if s.NextWindow != nil {
		w := *s.NextWindow
		out.NextWindow = &w
	}
	return out
}

// MatchResult is the Matcher's decision for one occurrence.
type MatchResult struct {
	// SeriesID is empty when IsNew is true.
	SeriesID   string
	Confidence float64
	// IsNew indicates no existing series cleared the rejection threshold.
	IsNew bool
	// Provisional indicates the score landed between the rejection and
	// confirmation thresholds; the attachment stands but later occurrences
	// can raise or lower the series' standing.
	Provisional bool
}
