package bizdate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_DateOf(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, r.Location().String())

	t.Run("late evening utc is previous day in chicago", func(t *testing.T) {
		ts := time.Date(2025, 3, 2, 3, 30, 0, 0, time.UTC)
		assert.Equal(t, Date(2025, 3, 1), r.DateOf(ts))
	})

	t.Run("midday utc is same day", func(t *testing.T) {
		ts := time.Date(2025, 3, 2, 18, 0, 0, 0, time.UTC)
		assert.Equal(t, Date(2025, 3, 2), r.DateOf(ts))
	})
}

func TestResolver_ParseTimestamp(t *testing.T) {
	r, err := New("America/Chicago")
	require.NoError(t, err)

	t.Run("naive timestamp is utc", func(t *testing.T) {
		ts, err := r.ParseTimestamp("2025-07-04 02:00:00")
		require.NoError(t, err)
		assert.Equal(t, time.UTC, ts.Location())
		assert.Equal(t, Date(2025, 7, 3), r.DateOf(ts))
	})

	t.Run("zoned timestamp keeps offset", func(t *testing.T) {
		ts, err := r.ParseTimestamp("2025-07-04T02:00:00-05:00")
		require.NoError(t, err)
		assert.Equal(t, Date(2025, 7, 4), r.DateOf(ts))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := r.ParseTimestamp("yesterday")
		assert.Error(t, err)
	})
}

func TestResolver_TodayUsesClock(t *testing.T) {
	r, err := New("America/Chicago")
	require.NoError(t, err)
	r.WithNow(func() time.Time { return time.Date(2025, 1, 1, 5, 59, 0, 0, time.UTC) })
	assert.Equal(t, Date(2024, 12, 31), r.Today())
}

func TestUnknownTimezone(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	require.NoError(t, err)
	assert.True(t, SameDate(d, Date(2025, 2, 28)))

	_, err = ParseDate("02/28/2025")
	assert.Error(t, err)
}
