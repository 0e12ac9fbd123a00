package gcal

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/service"
)

// Working hours considered offerable, local to the user's timezone.
const (
	workDayStartHour = 8
	workDayEndHour   = 18
)

// minSlotLength filters out gaps too short to schedule anything in.
const minSlotLength = 30 * time.Minute

type calendarClient struct {
	client *calendar.Service
	logger *logger.Logger
}

func NewCalendarClient(accessToken string, logger *logger.Logger) (service.CalendarClient, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	calendarService, err := calendar.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &calendarClient{
		client: calendarService,
		logger: logger,
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

type interval struct {
	start time.Time
	end   time.Time
}

// FreeSlots returns the user's open working-hour blocks over the next
// daysAhead days as a compact human-readable summary for the drafter.
// Failures degrade to an empty string; availability is optional context,
// never a reason to stall a reply.
func (c *calendarClient) FreeSlots(ctx context.Context, userEmail string, daysAhead int, timezone string) string {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		location = time.UTC
	}

	now := time.Now().In(location)
	windowEnd := now.AddDate(0, 0, daysAhead)

	request := &calendar.FreeBusyRequest{
		TimeMin:  now.Format(time.RFC3339),
		TimeMax:  windowEnd.Format(time.RFC3339),
		TimeZone: timezone,
		Items:    []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}

	response, err := c.client.Freebusy.Query(request).Context(ctx).Do()
	if err != nil {
		c.logger.Error("Failed to query free/busy:", err)
		return ""
	}

	busy := collectBusy(response, location)
	summary := formatFreeSlots(now, daysAhead, busy, location)
	if summary == "" {
		return "I'm fully booked this week."
	}
	return summary
}

func collectBusy(response *calendar.FreeBusyResponse, location *time.Location) []interval {
	var busy []interval
	for _, cal := range response.Calendars {
		for _, period := range cal.Busy {
			start, err1 := time.Parse(time.RFC3339, period.Start)
			end, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, interval{start: start.In(location), end: end.In(location)})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })
	return busy
}

// formatFreeSlots walks each day's working window, subtracts busy periods
// and renders what remains, e.g. "2/18: 12-6pm".
func formatFreeSlots(now time.Time, daysAhead int, busy []interval, location *time.Location) string {
	var days []string

	for offset := 0; offset < daysAhead; offset++ {
		day := now.AddDate(0, 0, offset)
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), workDayStartHour, 0, 0, 0, location)
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), workDayEndHour, 0, 0, 0, location)

		// Today's window starts no earlier than now.
		if offset == 0 && now.After(dayStart) {
			dayStart = now
		}
		if !dayStart.Before(dayEnd) {
			continue
		}

		free := subtractBusy(interval{start: dayStart, end: dayEnd}, busy)

		var slots []string
		for _, slot := range free {
			if slot.end.Sub(slot.start) >= minSlotLength {
				slots = append(slots, formatRange(slot.start, slot.end))
			}
		}
		if len(slots) > 0 {
			days = append(days, fmt.Sprintf("%d/%d: %s", int(day.Month()), day.Day(), strings.Join(slots, ", ")))
		}
	}

	return strings.Join(days, "\n")
}

func subtractBusy(window interval, busy []interval) []interval {
	free := []interval{window}
	for _, b := range busy {
		var next []interval
		for _, f := range free {
			if b.end.Before(f.start) || b.start.After(f.end) {
				next = append(next, f)
				continue
			}
			if b.start.After(f.start) {
				next = append(next, interval{start: f.start, end: b.start})
			}
			if b.end.Before(f.end) {
				next = append(next, interval{start: b.end, end: f.end})
			}
		}
		free = next
	}
	return free
}

// formatRange renders a slot like "12-6pm" or "8am-1pm", dropping the
// meridiem on the start when both ends share it.
func formatRange(start, end time.Time) string {
	startLabel := formatHour(start)
	endLabel := formatHour(end)
	if strings.HasSuffix(startLabel, "am") == strings.HasSuffix(endLabel, "am") {
		startLabel = strings.TrimSuffix(strings.TrimSuffix(startLabel, "am"), "pm")
	}
	return startLabel + "-" + endLabel
}

func formatHour(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "am"
	if t.Hour() >= 12 {
		meridiem = "pm"
	}
	if t.Minute() == 0 {
		return fmt.Sprintf("%d%s", hour, meridiem)
	}
	return fmt.Sprintf("%d:%02d%s", hour, t.Minute(), meridiem)
}
