package model

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExtractAddress(t *testing.T) {
	assert.Equal(t, "alice@example.com", ExtractAddress("Alice Smith <alice@example.com>"))
	assert.Equal(t, "bob@example.com", ExtractAddress("bob@example.com"))
	assert.Equal(t, "carol@example.com", ExtractAddress("\"Carol, PhD\" <carol@example.com>"))
}

func TestReplySubject(t *testing.T) {
	assert.Equal(t, "Re: Lunch?", ReplySubject("Lunch?"))
	assert.Equal(t, "Re: Lunch?", ReplySubject("Re: Lunch?"))
	assert.Equal(t, "RE: Lunch?", ReplySubject("RE: Lunch?"))
}

func TestNewMessageTruncatesBody(t *testing.T) {
	body := strings.Repeat("x", MaxBodyChars+500)
	msg := NewMessage("id", "thread", "a@b.c", "subj", body, "snippet", false, time.Now())
	assert.Len(t, msg.Body, MaxBodyChars)
}

func TestTruncateKeepsRunesIntact(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	// "héllo" is 6 bytes; a 3-byte cap lands inside the 2-byte é and must
	// back off to the rune boundary.
	assert.Equal(t, "h", Truncate("héllo", 2))
	assert.Equal(t, "hé", Truncate("héllo", 3))

	long := strings.Repeat("日", MaxBodyChars)
	msg := NewMessage("id", "thread", "a@b.c", "subj", long, "snippet", false, time.Now())
	assert.True(t, utf8.ValidString(msg.Body))
	assert.LessOrEqual(t, len(msg.Body), MaxBodyChars)
}

func TestCalendarDaysClamped(t *testing.T) {
	c := Classification{NeedsCalendar: true}
	assert.Equal(t, DefaultCalendarDays, c.CalendarDays())

	c.CalendarDaysRequested = 120
	assert.Equal(t, MaxCalendarDays, c.CalendarDays())

	c.CalendarDaysRequested = -3
	assert.Equal(t, MinCalendarDays, c.CalendarDays())

	c.CalendarDaysRequested = 14
	assert.Equal(t, 14, c.CalendarDays())
}

func TestScheduleStateTally(t *testing.T) {
	state := &ScheduleState{}
	for _, action := range []string{ResultSent, ResultReview, ResultReview, ResultSkipped, ResultError} {
		state.Tally(&ProcessResult{Action: action})
	}

	assert.Equal(t, 1, state.SentCount)
	assert.Equal(t, 2, state.QueuedCount)
	assert.Equal(t, 1, state.SkippedCount)
	assert.Equal(t, 1, state.ErrorCount)
}

func TestAttachmentNames(t *testing.T) {
	names := AttachmentNames([]*Attachment{
		{Filename: "deck.pptx"},
		{Filename: "report.pdf"},
	})
	assert.Equal(t, []string{"deck.pptx", "report.pdf"}, names)
	assert.Empty(t, AttachmentNames(nil))
}
