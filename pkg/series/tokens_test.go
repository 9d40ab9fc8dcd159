package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"drops stopwords and short tokens",
			"Agenda for the Q3 roadmap discussion: budget, hiring",
			[]string{"roadmap", "budget", "hiring"},
		},
		{
			"meeting boilerplate removed",
			"Zoom meeting invite: weekly sync call notes",
			[]string{"weekly"},
		},
		{
			"dedups repeats",
			"migration migration migration plan",
			[]string{"migration", "plan"},
		},
		{
			"empty text",
			"",
			[]string{},
		},
		{
			"punctuation splits",
			"payments-service/api latency",
			[]string{"payments", "service", "api", "latency"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Tokenize(tc.text, 0))
		})
	}
}

func TestTokenize_CustomMinLength(t *testing.T) {
	got := Tokenize("go api latency", 2)
	assert.Equal(t, []string{"go", "api", "latency"}, got)
}
