package xsd

import (
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
)

// DecodeDocument decodes an instance document. name is only used to label
// the *ParseError returned for input that is not well-formed XML.
func DecodeDocument(name string, data []byte) (xmldom.Document, error) {
	doc, err := xmldom.NewDecoderFromBytes(data).Decode()
	if err != nil {
		return nil, &ParseError{Location: name, Err: err}
	}
	if doc == nil || doc.DocumentElement() == nil {
		return nil, &ParseError{Location: name, Err: fmt.Errorf("no root element")}
	}
	return doc, nil
}

// ReadDocument reads and decodes the instance document at path. It returns
// the raw bytes as well so callers can render source context.
func ReadDocument(path string) (xmldom.Document, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := DecodeDocument(path, data)
	if err != nil {
		return nil, data, err
	}
	return doc, data, nil
}

// IsValid reports whether doc satisfies the schema.
func (s *Schema) IsValid(doc xmldom.Document) bool {
	return len(NewValidator(s).Validate(doc)) == 0
}

// IterErrors returns the violations of doc in discovery order. Validation
// runs when the sequence is first iterated; each call yields a fresh
// sequence that is not meant to be replayed.
func (s *Schema) IterErrors(doc xmldom.Document) iter.Seq[Violation] {
	return func(yield func(Violation) bool) {
		for _, v := range NewValidator(s).Validate(doc) {
			if !yield(v) {
				return
			}
		}
	}
}

// String renders the violation on one line with everything known about it.
func (v Violation) String() string {
	var sb strings.Builder
	if v.Code != "" {
		sb.WriteString(v.Code)
		sb.WriteString(": ")
	}
	sb.WriteString(v.Message)

	var details []string
	if v.Path != "" {
		details = append(details, "path "+v.Path)
	}
	if v.Element != nil {
		if line, col, _ := v.Element.Position(); line > 0 {
			details = append(details, fmt.Sprintf("line %d, column %d", line, col))
		}
	}
	if v.Attribute != "" {
		details = append(details, "attribute "+v.Attribute)
	}
	if len(v.Expected) > 0 {
		details = append(details, "expected "+strings.Join(v.Expected, ", "))
	}
	if v.Actual != "" {
		details = append(details, fmt.Sprintf("actual %q", v.Actual))
	}
	if len(details) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(details, "; "))
		sb.WriteString(")")
	}
	return sb.String()
}
