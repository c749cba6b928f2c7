package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aozorajuku/scheduler-api/internal/models"
)

// Window algebra for the availability engine. All windows are half-open
// minute ranges [start, end); touching endpoints do not overlap.

func minutesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// declarationWindow converts a declaration into its concrete window. Empty
// declarations (full_day=false with no times) yield no window.
func declarationWindow(d models.AvailabilityDeclaration) (models.TimeWindow, bool) {
	if d.FullDay {
		return models.TimeWindow{StartMinute: 0, EndMinute: models.MinutesPerDay}, true
	}
	if d.StartMinute == nil || d.EndMinute == nil {
		return models.TimeWindow{}, false
	}
	if *d.StartMinute >= *d.EndMinute {
		return models.TimeWindow{}, false
	}
	return models.TimeWindow{StartMinute: *d.StartMinute, EndMinute: *d.EndMinute}, true
}

// normalizeWindows sorts and merges windows. Touching windows are merged so
// containment checks work across adjacent declarations.
func normalizeWindows(windows []models.TimeWindow) []models.TimeWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]models.TimeWindow, 0, len(windows))
	for _, w := range windows {
		if w.StartMinute < w.EndMinute {
			sorted = append(sorted, w)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].StartMinute == sorted[j].StartMinute {
			return sorted[i].EndMinute < sorted[j].EndMinute
		}
		return sorted[i].StartMinute < sorted[j].StartMinute
	})

	merged := []models.TimeWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if w.StartMinute <= last.EndMinute {
			if w.EndMinute > last.EndMinute {
				last.EndMinute = w.EndMinute
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

// windowsContain reports whether [start, end) is fully covered.
func windowsContain(windows []models.TimeWindow, start, end int) bool {
	if start >= end {
		return false
	}
	for _, w := range normalizeWindows(windows) {
		if w.StartMinute <= start && w.EndMinute >= end {
			return true
		}
	}
	return false
}

// subtractWindow removes [start, end) from every window, splitting as needed.
func subtractWindow(windows []models.TimeWindow, start, end int) []models.TimeWindow {
	if start >= end {
		return windows
	}
	var result []models.TimeWindow
	for _, w := range windows {
		if !minutesOverlap(w.StartMinute, w.EndMinute, start, end) {
			result = append(result, w)
			continue
		}
		if w.StartMinute < start {
			result = append(result, models.TimeWindow{StartMinute: w.StartMinute, EndMinute: start})
		}
		if w.EndMinute > end {
			result = append(result, models.TimeWindow{StartMinute: end, EndMinute: w.EndMinute})
		}
	}
	return result
}

// intersectWindows returns the pairwise intersection of two window sets.
func intersectWindows(a, b []models.TimeWindow) []models.TimeWindow {
	a = normalizeWindows(a)
	b = normalizeWindows(b)
	var result []models.TimeWindow
	for _, wa := range a {
		for _, wb := range b {
			start := wa.StartMinute
			if wb.StartMinute > start {
				start = wb.StartMinute
			}
			end := wa.EndMinute
			if wb.EndMinute < end {
				end = wb.EndMinute
			}
			if start < end {
				result = append(result, models.TimeWindow{StartMinute: start, EndMinute: end})
			}
		}
	}
	return normalizeWindows(result)
}

// parseClock converts an HH:MM value into minutes from midnight. 24:00 is
// accepted as the exclusive end of day.
func parseClock(raw string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	if hours < 0 || hours > 24 || mins < 0 || mins > 59 || (hours == 24 && mins != 0) {
		return 0, fmt.Errorf("time %q out of range", raw)
	}
	return hours*60 + mins, nil
}

func formatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// parseCivilDate parses a YYYY-MM-DD value into a timezone-naive UTC date.
func parseCivilDate(raw string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return date, nil
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
