package model

// Attachment is a document resolved from the drive provider, ready to be
// attached to an outgoing reply. Binary data is never persisted; it is
// re-resolved whenever a queued item is actioned.
type Attachment struct {
	Filename string `json:"filename"`
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// AttachmentNames extracts just the filenames, for prompt context and for the
// classification snapshot stored with a queue item.
func AttachmentNames(attachments []*Attachment) []string {
	if len(attachments) == 0 {
		return nil
	}
	names := make([]string, len(attachments))
	for i, a := range attachments {
		names[i] = a.Filename
	}
	return names
}
