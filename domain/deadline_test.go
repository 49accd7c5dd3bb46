package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDeadline(t *testing.T) {
	monday := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	saturday := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		phrase string
		now    time.Time
		want   time.Time
	}{
		{"today", "today", monday, time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)},
		{"folded case and spaces", "  TODAY ", monday, time.Date(2026, 3, 2, 23, 59, 0, 0, time.UTC)},
		{"week from monday", "week", monday, time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC)},
		{"week from saturday", "week", saturday, time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)},
		{"week on sunday is today", "week", sunday, time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)},
		{"days lower bound", "days 1", monday, time.Date(2026, 3, 3, 23, 59, 0, 0, time.UTC)},
		{"days upper bound", "days 60", monday, time.Date(2026, 5, 1, 23, 59, 0, 0, time.UTC)},
		{"days mixed case", "Days 5", monday, time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDeadline(tt.phrase, tt.now)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestResolveDeadline_Rejects(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	for _, phrase := range []string{"", "tomorrow", "days 0", "days 61", "days -1", "days abc", "days", "days 5 6", "week 2"} {
		_, err := ResolveDeadline(phrase, now)
		assert.ErrorIs(t, err, ErrInvalidDeadline, "phrase %q", phrase)
	}
}

func TestIsDaysPhrase(t *testing.T) {
	assert.True(t, IsDaysPhrase("days abc"))
	assert.True(t, IsDaysPhrase(" Days 61"))
	assert.False(t, IsDaysPhrase("days"))
	assert.False(t, IsDaysPhrase("today"))
}

func TestParseDeadline(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)

	got, err := ParseDeadline("2026-04-01", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 4, 1, 23, 59, 0, 0, loc)), "date only: %v", got)

	got, err = ParseDeadline(" 2026-04-01 18:30 ", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 4, 1, 18, 30, 0, 0, loc)), "date and time: %v", got)

	for _, raw := range []string{"2026-02-30", "01.04.2026", "2026-04-01 25:00", "2026-04-01T18:30", ""} {
		_, err := ParseDeadline(raw, loc)
		assert.ErrorIs(t, err, ErrInvalidDeadline, "raw %q", raw)
	}
}

func TestNextStatus(t *testing.T) {
	got, ok := NextStatus(StatusNew, ActionStart, RoleEmployee)
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, got)

	got, ok = NextStatus(StatusNew, ActionStart, RoleAdmin)
	assert.False(t, ok, "admin cannot start on the employee's behalf")
	assert.Equal(t, StatusNew, got)

	got, ok = NextStatus(StatusOnReview, ActionAccept, RoleEmployee)
	assert.False(t, ok, "employee cannot accept own work")
	assert.Equal(t, StatusOnReview, got)

	_, ok = NextStatus(StatusDone, ActionCancel, RoleAdmin)
	assert.False(t, ok, "terminal statuses stay put")
	_, ok = NextStatus(StatusNew, TaskAction("archive"), RoleAdmin)
	assert.False(t, ok)

	assert.True(t, DeadlineChangeAllowed(StatusOnReview))
	assert.False(t, DeadlineChangeAllowed(StatusDone))
	assert.False(t, DeadlineChangeAllowed(StatusCanceled))
	assert.Equal(t, "Новая→В процессе", TransitionDetail(StatusNew, StatusInProgress))
}
