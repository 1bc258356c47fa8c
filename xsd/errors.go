package xsd

import (
	"fmt"
	"strings"
)

// SyntaxError reports a schema document that is not well-formed XML.
type SyntaxError struct {
	Location string
	Err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// SemanticError reports a well-formed schema document that breaks XML Schema
// rules. Errs holds every rule violation found, in document order.
type SemanticError struct {
	Location string
	Errs     []error
}

func (e *SemanticError) Error() string {
	switch len(e.Errs) {
	case 0:
		return fmt.Sprintf("%s: invalid XSD schema", e.Location)
	case 1:
		return fmt.Sprintf("%s: %v", e.Location, e.Errs[0])
	}
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %d schema errors: %s", e.Location, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *SemanticError) Unwrap() []error { return e.Errs }

// ParseError reports an instance document that could not be decoded as XML.
type ParseError struct {
	Location string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
