package gcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(hour, minute int) time.Time {
	return time.Date(2025, 2, 18, hour, minute, 0, 0, time.UTC)
}

func TestFormatHour(t *testing.T) {
	assert.Equal(t, "8am", formatHour(day(8, 0)))
	assert.Equal(t, "12pm", formatHour(day(12, 0)))
	assert.Equal(t, "6pm", formatHour(day(18, 0)))
	assert.Equal(t, "12am", formatHour(day(0, 0)))
	assert.Equal(t, "9:30am", formatHour(day(9, 30)))
}

func TestFormatRange(t *testing.T) {
	// Shared meridiem collapses onto the end label
	assert.Equal(t, "12-6pm", formatRange(day(12, 0), day(18, 0)))
	assert.Equal(t, "8-11am", formatRange(day(8, 0), day(11, 0)))
	// Crossing noon keeps both labels
	assert.Equal(t, "11am-1pm", formatRange(day(11, 0), day(13, 0)))
}

func TestSubtractBusy(t *testing.T) {
	window := interval{start: day(8, 0), end: day(18, 0)}
	busy := []interval{
		{start: day(9, 0), end: day(10, 0)},
		{start: day(12, 0), end: day(13, 30)},
	}

	free := subtractBusy(window, busy)
	assert.Len(t, free, 3)
	assert.Equal(t, day(8, 0), free[0].start)
	assert.Equal(t, day(9, 0), free[0].end)
	assert.Equal(t, day(10, 0), free[1].start)
	assert.Equal(t, day(12, 0), free[1].end)
	assert.Equal(t, day(13, 30), free[2].start)
	assert.Equal(t, day(18, 0), free[2].end)
}

func TestSubtractBusyFullyBooked(t *testing.T) {
	window := interval{start: day(8, 0), end: day(18, 0)}
	busy := []interval{{start: day(7, 0), end: day(19, 0)}}

	free := subtractBusy(window, busy)
	assert.Empty(t, free)
}

func TestFormatFreeSlots(t *testing.T) {
	now := day(7, 0)
	busy := []interval{
		{start: day(8, 0), end: day(12, 0)},
	}

	summary := formatFreeSlots(now, 1, busy, time.UTC)
	assert.Equal(t, "2/18: 12-6pm", summary)
}

func TestFormatFreeSlotsSkipsShortGaps(t *testing.T) {
	now := day(7, 0)
	// Only a 15 minute gap remains before the next meeting
	busy := []interval{
		{start: day(8, 15), end: day(18, 0)},
	}

	summary := formatFreeSlots(now, 1, busy, time.UTC)
	assert.Empty(t, summary)
}

func TestFormatFreeSlotsTodayStartsFromNow(t *testing.T) {
	// At 4pm the morning hours are already gone
	now := day(16, 0)

	summary := formatFreeSlots(now, 1, nil, time.UTC)
	assert.Equal(t, "2/18: 4-6pm", summary)
}
