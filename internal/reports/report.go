package reports

import (
	"maps"
	"slices"
	"strings"

	"github.com/teemow/graphreports/internal/mail"
)

// SubjectKey is the reserved mapping key holding the message subject.
const SubjectKey = "subject"

// Report holds the decoded attachments of one message, keyed by
// classification key.
type Report struct {
	Subject     string
	Attachments map[string][]byte
}

// Map returns the report as a single mapping: every attachment under its
// key plus the subject under SubjectKey. The subject is inserted last, so an
// attachment that classifies as "subject" is replaced by it.
func (r Report) Map() map[string]any {
	m := make(map[string]any, len(r.Attachments)+1)
	for k, v := range r.Attachments {
		m[k] = v
	}
	m[SubjectKey] = r.Subject
	return m
}

// Keys returns the sorted keys of Map.
func (r Report) Keys() []string {
	return slices.Sorted(maps.Keys(r.Map()))
}

// ClassificationKey derives an attachment's key from its file name: the text
// before the first underscore, or the whole name when there is none. A name
// starting with an underscore has no prefix and keeps its full name.
//
//	ClassificationKey("Region_Report.xlsx") // "Region"
//	ClassificationKey("Summary.pdf")        // "Summary.pdf"
func ClassificationKey(name string) string {
	i := strings.IndexByte(name, '_')
	if i <= 0 {
		return name
	}
	return name[:i]
}

// BuildReport decodes every attachment of msg in the order given. On a key
// collision the later attachment wins.
func BuildReport(msg mail.Message) (Report, error) {
	r := Report{
		Subject:     msg.Subject,
		Attachments: make(map[string][]byte, len(msg.Attachments)),
	}
	for _, a := range msg.Attachments {
		data, err := a.Content()
		if err != nil {
			return Report{}, &UnexpectedError{Op: "decode attachment", Err: err}
		}
		r.Attachments[ClassificationKey(a.Name)] = data
	}
	return r, nil
}
