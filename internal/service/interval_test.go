package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

func window(start, end int) models.TimeWindow {
	return models.TimeWindow{StartMinute: start, EndMinute: end}
}

func TestMinutesOverlapHalfOpen(t *testing.T) {
	assert.True(t, minutesOverlap(540, 600, 570, 630))
	assert.True(t, minutesOverlap(540, 600, 540, 600))
	// Touching endpoints do not overlap.
	assert.False(t, minutesOverlap(540, 600, 600, 660))
	assert.False(t, minutesOverlap(600, 660, 540, 600))
	assert.False(t, minutesOverlap(540, 600, 700, 760))
}

func TestNormalizeWindowsMergesTouchingAndOverlapping(t *testing.T) {
	got := normalizeWindows([]models.TimeWindow{
		window(600, 660),
		window(540, 600),
		window(650, 700),
		window(900, 960),
	})
	assert.Equal(t, []models.TimeWindow{window(540, 700), window(900, 960)}, got)
}

func TestNormalizeWindowsDropsEmpty(t *testing.T) {
	assert.Nil(t, normalizeWindows([]models.TimeWindow{window(600, 600), window(700, 650)}))
	assert.Nil(t, normalizeWindows(nil))
}

func TestWindowsContain(t *testing.T) {
	windows := []models.TimeWindow{window(540, 600), window(600, 720)}
	// Adjacent windows merge, so a range spanning the seam is covered.
	assert.True(t, windowsContain(windows, 570, 660))
	assert.True(t, windowsContain(windows, 540, 720))
	assert.False(t, windowsContain(windows, 500, 560))
	assert.False(t, windowsContain(windows, 700, 760))
	assert.False(t, windowsContain(windows, 600, 600))
}

func TestSubtractWindowSplits(t *testing.T) {
	got := subtractWindow([]models.TimeWindow{window(540, 720)}, 600, 660)
	assert.Equal(t, []models.TimeWindow{window(540, 600), window(660, 720)}, got)

	got = subtractWindow([]models.TimeWindow{window(540, 720)}, 500, 560)
	assert.Equal(t, []models.TimeWindow{window(560, 720)}, got)

	got = subtractWindow([]models.TimeWindow{window(540, 720)}, 0, models.MinutesPerDay)
	assert.Empty(t, got)

	// No overlap leaves the window untouched.
	got = subtractWindow([]models.TimeWindow{window(540, 600)}, 600, 660)
	assert.Equal(t, []models.TimeWindow{window(540, 600)}, got)
}

func TestIntersectWindows(t *testing.T) {
	a := []models.TimeWindow{window(540, 720), window(780, 900)}
	b := []models.TimeWindow{window(600, 840)}
	assert.Equal(t, []models.TimeWindow{window(600, 720), window(780, 840)}, intersectWindows(a, b))

	assert.Empty(t, intersectWindows(a, []models.TimeWindow{window(720, 780)}))
	assert.Empty(t, intersectWindows(nil, b))
}

func TestParseClock(t *testing.T) {
	for raw, want := range map[string]int{
		"00:00": 0,
		"09:00": 540,
		"23:59": 1439,
		"24:00": 1440,
	} {
		got, err := parseClock(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"", "9", "24:01", "25:00", "12:60", "ab:cd", "-1:00"} {
		_, err := parseClock(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseCivilDate(t *testing.T) {
	date, err := parseCivilDate("2026-09-14")
	require.NoError(t, err)
	assert.Equal(t, 2026, date.Year())
	assert.Equal(t, "2026-09-14", date.Format("2006-01-02"))

	_, err = parseCivilDate("14/09/2026")
	assert.Error(t, err)
}
