package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-02-19 is a Thursday.
var thursday = time.Date(2026, time.February, 19, 10, 30, 0, 0, time.UTC)

func TestDateRelative(t *testing.T) {
	tests := []struct {
		text string
		want time.Time
	}{
		{"hoy", time.Date(2026, 2, 19, 0, 0, 0, 0, time.UTC)},
		{"manana", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"mañana", time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)},
		{"pasado manana", time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)},
		{"Pasado Mañana", time.Date(2026, 2, 21, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := Date(tt.text, thursday)
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}

func TestDateWeekday(t *testing.T) {
	// Monday from a Thursday is 4 days out, never the same week backwards.
	got, ok := Date("lunes", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.Equal(t, time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), got)

	// The current weekday rolls a full week forward.
	got, ok = Date("jueves", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 26, 0, 0, 0, 0, time.UTC), got)

	// Friday is tomorrow.
	got, ok = Date("el viernes", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), got)
}

func TestDateDayOfMonth(t *testing.T) {
	got, ok := Date("15 de marzo", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)

	// Already past this year: rolls to next year.
	got, ok = Date("10 de enero", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2027, 1, 10, 0, 0, 0, 0, time.UTC), got)

	// "de" is optional.
	got, ok = Date("20 febrero", thursday)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), got)
}

func TestDateInvalid(t *testing.T) {
	for _, text := range []string{"", "algun dia", "31 de febrero", "ayer"} {
		_, ok := Date(text, thursday)
		assert.False(t, ok, text)
	}
}
