package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayWindow(t *testing.T) {
	at := time.Date(2026, 10, 16, 23, 59, 0, 0, time.UTC)
	w := DayWindow(at)
	assert.Equal(t, "2026-10-16", w.ID())
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), w.End())
	assert.Equal(t, "2026-10-15", w.Previous().ID())
	assert.Equal(t, "day:2026-10-16", w.String())
}

func TestWeekWindowStartsMonday(t *testing.T) {
	friday := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	w := WeekWindow(friday)
	assert.Equal(t, time.Monday, w.Start.Weekday())
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, "2026-W42", w.ID())
	assert.Equal(t, "2026-W41", w.Previous().ID())

	sunday := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, w, WeekWindow(sunday))
}

func TestWeekWindowAcrossYearBoundary(t *testing.T) {
	w := WeekWindow(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2026-W53", w.ID())
	assert.Equal(t, time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), w.Start)
}

func TestWindowIDsSortChronologically(t *testing.T) {
	d := DayWindow(time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC))
	assert.Less(t, d.ID(), DayWindow(d.End()).ID())

	w := WeekWindow(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	assert.Less(t, w.ID(), WeekWindow(w.End()).ID())
}

func TestParseWindowIDRoundTrip(t *testing.T) {
	for _, w := range []Window{
		DayWindow(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)),
		WeekWindow(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)),
		WeekWindow(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)),
		WeekWindow(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	} {
		got, err := ParseWindowID(w.Kind, w.ID(), time.UTC)
		require.NoError(t, err, w.String())
		assert.Equal(t, w, got)
	}
}

func TestParseWindowIDRejectsMalformed(t *testing.T) {
	for _, tc := range []struct {
		kind WindowKind
		id   string
	}{
		{WindowDay, "2026-13-01"},
		{WindowDay, "2026-W42"},
		{WindowWeek, "2026-W60"},
		{WindowWeek, "2026-W42x"},
		{WindowWeek, "2026-10-16"},
		{"month", "2026-10"},
	} {
		_, err := ParseWindowID(tc.kind, tc.id, time.UTC)
		t.Logf("%s %q: %v", tc.kind, tc.id, err)
		assert.Error(t, err)
	}
}

func TestTopScoresOrdering(t *testing.T) {
	scores := []RankingScore{
		{ProductID: 1, Quantity: 10},
		{ProductID: 2, Quantity: 15},
		{ProductID: 3, Quantity: 5},
		{ProductID: 0, Quantity: 10},
	}
	got := TopScores(scores, 3)
	assert.Equal(t, []RankingScore{
		{ProductID: 2, Quantity: 15},
		{ProductID: 0, Quantity: 10},
		{ProductID: 1, Quantity: 10},
	}, got)
}

func TestParseWindowKind(t *testing.T) {
	k, err := ParseWindowKind("daily")
	assert.NoError(t, err)
	assert.Equal(t, WindowDay, k)
	k, err = ParseWindowKind("week")
	assert.NoError(t, err)
	assert.Equal(t, WindowWeek, k)
	_, err = ParseWindowKind("month")
	assert.Error(t, err)
}

func TestNewBalanceEvent(t *testing.T) {
	e := NewBalanceEvent(BalanceDeducted, "u1", 1000, 700, time.Now())
	assert.Equal(t, int64(300), e.TransactionAmount)
	assert.Equal(t, BalanceDeducted, e.Kind)
}
