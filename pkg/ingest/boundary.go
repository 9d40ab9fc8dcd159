// Package ingest validates and converts loosely-typed payloads from the
// external calendar and transcript collaborators into the strict types the
// series engine operates on. Dynamic payloads never cross this boundary.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
	"github.com/Poxagronka/fireflies-summary/pkg/series"
)

// CalendarEvent mirrors the shape the calendar collaborator reports. All
// fields are optional at the wire level; validation decides what is required.
type CalendarEvent struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Start       string   `json:"start"` // RFC 3339
	Attendees   []string `json:"attendees"`
	Description string   `json:"description"`
	// Keywords come from the transcript service when a summary already
	// exists at ingest time; usually empty for upcoming meetings.
	Keywords []string `json:"keywords"`
}

// TranscriptUpdate signals that a summary became available for an occurrence.
type TranscriptUpdate struct {
	OccurrenceID string   `json:"occurrence_id"`
	Keywords     []string `json:"keywords"`
}

// ParseOccurrence decodes and validates a raw calendar payload into an
// Occurrence. Title and start time are required; attendees are normalized to
// lowercase trimmed emails; topic tokens come from explicit keywords plus the
// event description. A missing ID gets a generated one.
func ParseOccurrence(raw json.RawMessage) (series.Occurrence, error) {
	var ev CalendarEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return series.Occurrence{}, fmt.Errorf("decoding calendar payload: %w: %v",
			fferrors.ErrValidation, err)
	}
	return FromCalendarEvent(ev)
}

// FromCalendarEvent converts an already-decoded calendar event.
func FromCalendarEvent(ev CalendarEvent) (series.Occurrence, error) {
	if strings.TrimSpace(ev.Title) == "" {
		return series.Occurrence{}, fmt.Errorf("calendar event missing title: %w", fferrors.ErrValidation)
	}
	if ev.Start == "" {
		return series.Occurrence{}, fmt.Errorf("calendar event %q missing start time: %w",
			ev.Title, fferrors.ErrValidation)
	}
	start, err := time.Parse(time.RFC3339, ev.Start)
	if err != nil {
		return series.Occurrence{}, fmt.Errorf("calendar event %q has invalid start time %q: %w",
			ev.Title, ev.Start, fferrors.ErrValidation)
	}

	id := strings.TrimSpace(ev.ID)
	if id == "" {
		id = uuid.New().String()
	}

	key, _ := series.Normalize(ev.Title)

	occ := series.Occurrence{
		ID:          id,
		Title:       strings.TrimSpace(ev.Title),
		TitleKey:    key,
		StartTime:   start.UTC(),
		Attendees:   normalizeAttendees(ev.Attendees),
		TopicTokens: topicTokens(ev),
	}
	return occ, nil
}

// ParseTranscriptUpdate decodes and validates a transcript-ready payload.
func ParseTranscriptUpdate(raw json.RawMessage) (TranscriptUpdate, error) {
	var upd TranscriptUpdate
	if err := json.Unmarshal(raw, &upd); err != nil {
		return TranscriptUpdate{}, fmt.Errorf("decoding transcript payload: %w: %v",
			fferrors.ErrValidation, err)
	}
	if strings.TrimSpace(upd.OccurrenceID) == "" {
		return TranscriptUpdate{}, fmt.Errorf("transcript update missing occurrence id: %w",
			fferrors.ErrValidation)
	}
	return upd, nil
}

// normalizeAttendees lowercases and deduplicates attendee emails, dropping
// entries that do not look like addresses.
func normalizeAttendees(attendees []string) []string {
	seen := make(map[string]struct{}, len(attendees))
	out := make([]string, 0, len(attendees))
	for _, a := range attendees {
		email := strings.ToLower(strings.TrimSpace(a))
		if email == "" || !strings.Contains(email, "@") {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}

// topicTokens merges explicit keywords with tokens from the description.
func topicTokens(ev CalendarEvent) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, len(ev.Keywords))
	for _, k := range ev.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, tok := range series.Tokenize(ev.Description, 0) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
