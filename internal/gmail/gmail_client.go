package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"inbox-autopilot/internal/logger"
	"inbox-autopilot/internal/model"
	"inbox-autopilot/internal/service"
)

// candidateQuery narrows polling to mail a human plausibly wrote. The
// automated Gmail categories are excluded at the source so they never
// reach classification.
const candidateQuery = "is:unread in:inbox -category:promotions -category:social -category:updates"

// threadContextLimit caps how many earlier thread messages are summarized
// for the classifier.
const threadContextLimit = 3

type gmailClient struct {
	client *gmail.Service
	logger *logger.Logger
}

func NewGmailClient(accessToken string, logger *logger.Logger) (service.MailClient, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
	}

	gmailService, err := gmail.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &gmailClient{
		client: gmailService,
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

func (g *gmailClient) FetchCandidates(ctx context.Context, userEmail string, maxResults int64, afterEpoch int64) ([]*model.Message, error) {
	user := "me" // Use 'me' to refer to the authenticated user

	query := candidateQuery
	if afterEpoch > 0 {
		query = fmt.Sprintf("%s after:%d", candidateQuery, afterEpoch)
	}

	list, err := g.client.Users.Messages.List(user).Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate messages: %w", err)
	}

	var messages []*model.Message

	for _, msg := range list.Messages {
		// Get the full message
		message, err := g.client.Users.Messages.Get(user, msg.Id).Format("full").Context(ctx).Do()
		if err != nil {
			g.logger.Error("Failed to get message:", err)
			continue
		}

		// The list query already excludes categories, but labels are the
		// source of truth when Gmail puts a message in more than one place.
		if hasCategoryLabel(message.LabelIds) {
			continue
		}

		from := ""
		subject := message.Snippet
		for _, header := range message.Payload.Headers {
			if header.Name == "Subject" {
				subject = header.Value
			} else if header.Name == "From" {
				from = header.Value
			}
		}

		body := g.extractBody(message.Payload)
		if strings.TrimSpace(body) == "" {
			// Nothing for the classifier to read
			continue
		}

		receivedAt := time.Unix(message.InternalDate/1000, 0)
		threadContext := g.fetchThreadContext(ctx, message.ThreadId, msg.Id)

		candidate := model.NewMessage(msg.Id, message.ThreadId, from, subject, body, message.Snippet, hasAttachmentPart(message.Payload), receivedAt)
		candidate.ThreadContext = threadContext
		messages = append(messages, candidate)
	}

	g.logger.Info("Fetched", len(messages), "candidate emails from Gmail")
	return messages, nil
}

func hasCategoryLabel(labelIDs []string) bool {
	for _, id := range labelIDs {
		switch id {
		case "CATEGORY_PROMOTIONS", "CATEGORY_SOCIAL", "CATEGORY_UPDATES", "CATEGORY_FORUMS":
			return true
		}
	}
	return false
}

func hasAttachmentPart(payload *gmail.MessagePart) bool {
	for _, part := range payload.Parts {
		if part.Filename != "" {
			return true
		}
		if len(part.Parts) > 0 && hasAttachmentPart(part) {
			return true
		}
	}
	return false
}

// fetchThreadContext summarizes the messages that preceded messageID in its
// thread. Best effort: an empty string just means the classifier sees the
// message standalone.
func (g *gmailClient) fetchThreadContext(ctx context.Context, threadID, messageID string) string {
	if threadID == "" {
		return ""
	}

	thread, err := g.client.Users.Threads.Get("me", threadID).Format("metadata").MetadataHeaders("From").Context(ctx).Do()
	if err != nil {
		g.logger.Error("Failed to get thread:", err)
		return ""
	}

	var lines []string
	for _, msg := range thread.Messages {
		if msg.Id == messageID || msg.Snippet == "" {
			continue
		}
		from := ""
		if msg.Payload != nil {
			for _, header := range msg.Payload.Headers {
				if header.Name == "From" {
					from = header.Value
				}
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %s", from, msg.Snippet))
	}
	if len(lines) > threadContextLimit {
		lines = lines[len(lines)-threadContextLimit:]
	}
	return strings.Join(lines, "\n")
}

func (g *gmailClient) extractBody(payload *gmail.MessagePart) string {
	if len(payload.Parts) > 0 {
		return g.extractMultipartBody(payload.Parts)
	}

	if payload.Body != nil && payload.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err != nil {
			g.logger.Error("Failed to decode email body:", err)
			return ""
		}
		return string(decoded)
	}

	return ""
}

// extractMultipartBody prefers text/plain since the body feeds language
// models, not a browser.
func (g *gmailClient) extractMultipartBody(parts []*gmail.MessagePart) string {
	var htmlBody string

	for _, part := range parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err != nil {
				g.logger.Error("Failed to decode text email body:", err)
				continue
			}
			return string(decoded)
		} else if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" && htmlBody == "" {
			decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err != nil {
				g.logger.Error("Failed to decode HTML email body:", err)
				continue
			}
			htmlBody = string(decoded)
		} else if len(part.Parts) > 0 {
			if nested := g.extractMultipartBody(part.Parts); nested != "" {
				return nested
			}
		}
	}

	return htmlBody
}

func (g *gmailClient) SendReply(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) error {
	raw := buildMIMEMessage(to, subject, body, attachments)

	message := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: threadID,
	}

	_, err := g.client.Users.Messages.Send("me", message).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	g.logger.Info("Sent reply to:", to)
	return nil
}

func (g *gmailClient) CreateDraft(ctx context.Context, userEmail, threadID, to, subject, body string, attachments []*model.Attachment) (string, error) {
	raw := buildMIMEMessage(to, subject, body, attachments)

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
			ThreadId: threadID,
		},
	}

	created, err := g.client.Users.Drafts.Create("me", draft).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create draft: %w", err)
	}

	g.logger.Info("Created draft for:", to)
	return created.Id, nil
}

// buildMIMEMessage assembles an RFC 822 message, multipart/mixed when
// attachments are present.
func buildMIMEMessage(to, subject, body string, attachments []*model.Attachment) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	sb.WriteString("MIME-Version: 1.0\r\n")

	if len(attachments) == 0 {
		sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
		sb.WriteString("\r\n")
		sb.WriteString(body)
		return sb.String()
	}

	const boundary = "autopilot-mixed-boundary"
	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=\"%s\"\r\n\r\n", boundary)

	fmt.Fprintf(&sb, "--%s\r\n", boundary)
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	for _, attachment := range attachments {
		mimeType := attachment.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		fmt.Fprintf(&sb, "--%s\r\n", boundary)
		fmt.Fprintf(&sb, "Content-Type: %s; name=\"%s\"\r\n", mimeType, attachment.Filename)
		fmt.Fprintf(&sb, "Content-Disposition: attachment; filename=\"%s\"\r\n", attachment.Filename)
		sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
		sb.WriteString(base64.StdEncoding.EncodeToString(attachment.Data))
		sb.WriteString("\r\n")
	}
	fmt.Fprintf(&sb, "--%s--\r\n", boundary)

	return sb.String()
}

func (g *gmailClient) MarkRead(ctx context.Context, userEmail, messageID string) error {
	modifyRequest := &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
		AddLabelIds:    []string{},
	}

	_, err := g.client.Users.Messages.Modify("me", messageID, modifyRequest).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to mark email as read: %w", err)
	}

	g.logger.Info("Marked email as read:", messageID)
	return nil
}

func (g *gmailClient) FetchSent(ctx context.Context, userEmail string, maxResults int64, since time.Duration, headersOnly bool) ([]*model.SentMessage, error) {
	user := "me"

	days := int(since.Hours() / 24)
	if days < 1 {
		days = 1
	}
	query := fmt.Sprintf("in:sent newer_than:%dd", days)

	list, err := g.client.Users.Messages.List(user).Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list sent messages: %w", err)
	}

	var sent []*model.SentMessage
	for _, msg := range list.Messages {
		format := "full"
		if headersOnly {
			format = "metadata"
		}
		call := g.client.Users.Messages.Get(user, msg.Id).Format(format)
		if headersOnly {
			call = call.MetadataHeaders("To", "Subject")
		}
		message, err := call.Context(ctx).Do()
		if err != nil {
			g.logger.Error("Failed to get sent message:", err)
			continue
		}

		item := &model.SentMessage{SentAt: time.Unix(message.InternalDate/1000, 0)}
		for _, header := range message.Payload.Headers {
			if header.Name == "To" {
				item.To = header.Value
			} else if header.Name == "Subject" {
				item.Subject = header.Value
			}
		}
		if !headersOnly {
			item.Body = g.extractBody(message.Payload)
		}
		sent = append(sent, item)
	}

	return sent, nil
}
