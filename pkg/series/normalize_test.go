package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_StripsDateAndOrdinalNoise(t *testing.T) {
	tests := []struct {
		input   string
		wantKey string
	}{
		{"Weekly Sync 03/14/2025", "weekly sync"},
		{"Weekly Sync 03-21-2025", "weekly sync"},
		{"Weekly Sync 2025-03-28", "weekly sync"},
		{"Daily Standup — Mar 3", "daily standup"},
		{"Daily Standup - March 10th", "daily standup"},
		{"Sprint Planning #12", "sprint planning"},
		{"Sprint Planning #13", "sprint planning"},
		{"Retro (Week 3)", "retro"},
		{"Retro (4)", "retro"},
		{"Client Kickoff Q2", "client kickoff"},
		{"All Hands Q1 2026", "all hands"},
		{"Team Sync 10:30 am", "team sync"},
		{"Export-20250303", "export"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			key, _ := Normalize(tc.input)
			assert.Equal(t, tc.wantKey, key)
		})
	}
}

func TestNormalize_DateVariantsYieldIdenticalKeys(t *testing.T) {
	variants := []string{
		"Daily Standup — Mar 3",
		"Daily Standup - Mar 10",
		"Daily Standup 03/17/2025",
		"daily standup",
		"Daily Standup",
	}

	first, _ := Normalize(variants[0])
	for _, v := range variants[1:] {
		key, _ := Normalize(v)
		assert.Equal(t, first, key, "variant %q", v)
	}
}

func TestNormalize_ExtractsRemovedToken(t *testing.T) {
	_, extracted := Normalize("Daily Standup — Mar 3")
	assert.Equal(t, "Mar 3", extracted)

	_, extracted = Normalize("Sprint Planning #12")
	assert.Equal(t, "#12", extracted)

	_, extracted = Normalize("Design Review")
	assert.Empty(t, extracted)
}

func TestNormalize_NoNoiseReturnsLowercasedTrimmed(t *testing.T) {
	key, extracted := Normalize("  Design Review  ")
	assert.Equal(t, "design review", key)
	assert.Empty(t, extracted)
}

func TestNormalize_PureNoiseFallsBackToOriginal(t *testing.T) {
	// A title that is nothing but a date still needs a stable key.
	key, _ := Normalize("03/14/2025")
	assert.Equal(t, "03/14/2025", key)
}

func TestNormalize_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		key, extracted := Normalize("Weekly Review (Week 7) 10:30")
		assert.Equal(t, "weekly review", key)
		assert.Equal(t, "10:30", extracted)
	}
}

func TestNormalize_OneOnOneSurvives(t *testing.T) {
	// "1:1" must not be mistaken for a time of day.
	key, _ := Normalize("Alice / Bob 1:1")
	assert.Contains(t, key, "1")
	assert.Equal(t, "alice bob 1 1", key)
}
