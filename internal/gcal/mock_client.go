package gcal

import "context"

// MockCalendarClient is a mock implementation of CalendarClient for testing
type MockCalendarClient struct {
	FreeSlotsFunc func(ctx context.Context, userEmail string, daysAhead int, timezone string) string
}

func NewMockCalendarClient() *MockCalendarClient {
	return &MockCalendarClient{}
}

func (m *MockCalendarClient) FreeSlots(ctx context.Context, userEmail string, daysAhead int, timezone string) string {
	if m.FreeSlotsFunc != nil {
		return m.FreeSlotsFunc(ctx, userEmail, daysAhead, timezone)
	}

	// Default mock behavior: no availability context
	return ""
}
