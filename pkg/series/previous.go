package series

import (
	"time"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
)

// ResolvePrevious selects the most relevant prior occurrence to summarize
// from: the latest occurrence in history strictly before the given time whose
// transcript is ready.
//
// It returns ErrNotFound when no prior occurrence has a ready transcript.
// That is an expected, common condition (for example the first-ever
// occurrence of a series); callers send no previous-context summary rather
// than surfacing a failure.
func ResolvePrevious(history []Occurrence, before time.Time) (Occurrence, error) {
	for i := len(history) - 1; i >= 0; i-- {
		occ := history[i]
		if !occ.StartTime.Before(before) {
			continue
		}
		if occ.TranscriptReady {
			return occ, nil
		}
	}
	return Occurrence{}, fferrors.ErrNotFound
}
