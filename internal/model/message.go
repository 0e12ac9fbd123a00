package model

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxBodyChars bounds the plain-text body kept on a message so downstream
// prompts stay within a predictable size.
const MaxBodyChars = 4000

// Message is one inbox message as fetched from the mail source. It is
// immutable once built; the pipeline owns it for the duration of one
// processing call.
type Message struct {
	ID             string    `json:"id"`
	ThreadID       string    `json:"thread_id"`
	Sender         string    `json:"sender"` // "Name <addr>" or bare address
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	Snippet        string    `json:"snippet"`
	HasAttachments bool      `json:"has_attachments"`
	ThreadContext  string    `json:"thread_context,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

func NewMessage(id, threadID, sender, subject, body, snippet string, hasAttachments bool, receivedAt time.Time) *Message {
	body = Truncate(body, MaxBodyChars)
	return &Message{
		ID:             id,
		ThreadID:       threadID,
		Sender:         sender,
		Subject:        subject,
		Body:           body,
		Snippet:        snippet,
		HasAttachments: hasAttachments,
		ReceivedAt:     receivedAt,
	}
}

// SentMessage is a message from the user's sent mail, used only to bootstrap
// the voice profile and contact list.
type SentMessage struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Truncate caps s at max bytes without splitting a UTF-8 rune, so the
// result stays valid for prompts and JSON payloads.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

var addrPattern = regexp.MustCompile(`<([^>]+)>`)

// ExtractAddress pulls the bare address out of a "Name <addr>" header value.
func ExtractAddress(sender string) string {
	if match := addrPattern.FindStringSubmatch(sender); match != nil {
		return match[1]
	}
	return sender
}

// ReplySubject prefixes a subject with "Re: " unless it already is.
func ReplySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// SenderAddress extracts the bare address from the sender header.
func (m *Message) SenderAddress() string {
	return ExtractAddress(m.Sender)
}

// ReplySubject returns the subject prefixed with "Re: " unless it already is.
func (m *Message) ReplySubject() string {
	return ReplySubject(m.Subject)
}
