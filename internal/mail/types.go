package mail

import (
	"encoding/base64"
	"fmt"
	"time"
)

// EmailAddress is a Graph emailAddress resource.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Recipient wraps an email address, as Graph does for from and to fields.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Message is the subset of a Graph message resource the reports rely on.
type Message struct {
	ID             string       `json:"id"`
	Subject        string       `json:"subject"`
	SentDateTime   time.Time    `json:"sentDateTime"`
	From           Recipient    `json:"from"`
	HasAttachments bool         `json:"hasAttachments"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// Attachment is a Graph file attachment. ContentBytes holds the payload
// base64-encoded exactly as delivered.
type Attachment struct {
	ODataType    string `json:"@odata.type,omitempty"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	ContentBytes string `json:"contentBytes,omitempty"`
}

// FileAttachmentType is the OData type of attachments that carry their
// payload in contentBytes.
const FileAttachmentType = "#microsoft.graph.fileAttachment"

// Content decodes the attachment payload. Item and reference attachments
// have no payload and fail, as does a sized attachment without content.
func (a Attachment) Content() ([]byte, error) {
	if a.ODataType != "" && a.ODataType != FileAttachmentType {
		return nil, fmt.Errorf("attachment %q of type %s has no file content", a.Name, a.ODataType)
	}
	if a.ContentBytes == "" && a.Size > 0 {
		return nil, fmt.Errorf("attachment %q has no content", a.Name)
	}
	data, err := base64.StdEncoding.DecodeString(a.ContentBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment %q: %w", a.Name, err)
	}
	return data, nil
}

// FetchOptions selects and shapes the messages returned by a mailbox.
type FetchOptions struct {
	// Query filters messages; the zero Query matches everything.
	Query Query

	// OrderBy is an OData $orderby clause such as "sentDateTime desc".
	OrderBy string

	// Limit caps the number of messages returned; zero or less means no cap.
	Limit int

	// IncludeAttachments expands attachments, content included.
	IncludeAttachments bool
}
