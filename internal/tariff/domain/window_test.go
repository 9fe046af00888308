package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTimeOfDay(t *testing.T) {
	tod, err := NewTimeOfDay(13, 45)
	require.NoError(t, err)
	assert.Equal(t, 13, tod.Hour())
	assert.Equal(t, 45, tod.Minute())
	assert.Equal(t, "13:45", tod.String())

	_, err = NewTimeOfDay(24, 0)
	assert.Error(t, err)
	_, err = NewTimeOfDay(-1, 0)
	assert.Error(t, err)
	_, err = NewTimeOfDay(12, 60)
	assert.Error(t, err)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, MustTimeOfDay(8, 30), tod)

	for _, s := range []string{"25:00", "12:75", "noon", ""} {
		_, err := ParseTimeOfDay(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestTimeWindow_Validate(t *testing.T) {
	assert.NoError(t, AllDayWindow().Validate())
	assert.NoError(t, NewTimeWindow(MustTimeOfDay(8, 0), MustTimeOfDay(20, 0)).Validate())

	// Overnight is structurally valid, not an error.
	overnight := NewTimeWindow(MustTimeOfDay(20, 0), MustTimeOfDay(8, 0))
	assert.NoError(t, overnight.Validate())
	assert.True(t, overnight.Overnight())

	start := MustTimeOfDay(8, 0)
	assert.ErrorIs(t, TimeWindow{Start: &start}.Validate(), ErrMalformedWindow)
	assert.ErrorIs(t, TimeWindow{End: &start}.Validate(), ErrMalformedWindow)
	assert.ErrorIs(t, TimeWindow{AllDay: true, Start: &start}.Validate(), ErrMalformedWindow)
	assert.ErrorIs(t, TimeWindow{}.Validate(), ErrMalformedWindow)
}

func TestTimeWindow_String(t *testing.T) {
	assert.Equal(t, "24h", AllDayWindow().String())
	assert.Equal(t, "20:00-08:00", NewTimeWindow(MustTimeOfDay(20, 0), MustTimeOfDay(8, 0)).String())
}
