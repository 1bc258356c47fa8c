package xsd

import (
	"fmt"
	"strings"

	"github.com/agentflare-ai/go-xmldom"
	"github.com/fatih/color"
)

// Diagnostic represents a rustc-style validation diagnostic
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Position  Position `json:"position"`
	Path      string   `json:"path,omitempty"`
	Tag       string   `json:"tag"`
	Attribute string   `json:"attribute,omitempty"`
	SpecRef   string   `json:"spec_ref,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// Severity represents the severity level of a diagnostic
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Position contains source position information for a node
type Position struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int64  `json:"offset"`
}

// DiagnosticConverter converts XSD violations to rustc-style diagnostics
type DiagnosticConverter struct {
	fileName string
}

// NewDiagnosticConverter creates a new converter
func NewDiagnosticConverter(fileName string) *DiagnosticConverter {
	return &DiagnosticConverter{fileName: fileName}
}

// ConvertOne converts a single violation to a diagnostic
func (dc *DiagnosticConverter) ConvertOne(v Violation) Diagnostic {
	return Diagnostic{
		Severity:  severityOf(v.Code),
		Code:      v.Code,
		Message:   formatMessage(v),
		Position:  dc.getPosition(v.Element, v.Attribute),
		Path:      v.Path,
		Tag:       tagOf(v.Element),
		Attribute: v.Attribute,
		SpecRef:   specRef(v.Code),
		Hints:     generateHints(v),
	}
}

func severityOf(code string) Severity {
	if strings.HasPrefix(code, "xsd-warn-") {
		return SeverityWarning
	}
	return SeverityError
}

// formatMessage creates a user-friendly message
func formatMessage(v Violation) string {
	switch v.Code {
	case "cvc-complex-type.2.4.a":
		if len(v.Expected) > 0 && v.Actual != "" {
			return fmt.Sprintf("Invalid element '%s'. Expected one of: %s",
				v.Actual, strings.Join(v.Expected, ", "))
		}
	case "cvc-id.1":
		if v.Actual != "" {
			return fmt.Sprintf("Referenced ID '%s' does not exist in document", v.Actual)
		}
	}
	return v.Message
}

// getPosition gets the position of an element or attribute
func (dc *DiagnosticConverter) getPosition(elem xmldom.Element, attrName string) Position {
	if elem == nil {
		return Position{File: dc.fileName}
	}

	if attrName != "" {
		if attr := elem.GetAttributeNode(xmldom.DOMString(attrName)); attr != nil {
			line, col, offset := attr.Position()
			if line > 0 {
				return Position{File: dc.fileName, Line: line, Column: col, Offset: offset}
			}
		}
	}

	line, col, offset := elem.Position()
	return Position{File: dc.fileName, Line: line, Column: col, Offset: offset}
}

func tagOf(elem xmldom.Element) string {
	if elem == nil {
		return ""
	}
	return string(elem.LocalName())
}

// specRef names the XML Schema 1.1 rule family a code belongs to
func specRef(code string) string {
	switch {
	case strings.HasPrefix(code, "cvc-"):
		return "XML Schema 1.1 Part 1, validation rule " + code
	case strings.HasPrefix(code, "src-"), strings.HasPrefix(code, "sch-props-"):
		return "XML Schema 1.1 Part 1, schema representation constraint " + code
	}
	return ""
}

// generateHints creates helpful hints based on the violation
func generateHints(v Violation) []string {
	var hints []string

	switch v.Code {
	case "cvc-complex-type.3.2.2":
		if len(v.Expected) > 0 {
			hints = append(hints, fmt.Sprintf("Did you mean: %s?", strings.Join(v.Expected, " or ")))
		}
	case "cvc-complex-type.2.4.a":
		if len(v.Expected) > 0 {
			hints = append(hints, fmt.Sprintf("Valid children are: %s", strings.Join(v.Expected, ", ")))
		}
	case "cvc-id.1":
		hints = append(hints,
			fmt.Sprintf("Ensure there is an element with id='%s' in the document", v.Actual),
			"IDs are case-sensitive")
	case "cvc-id.2":
		hints = append(hints, "Each id attribute value must be unique within the document")
	case "cvc-complex-type.4":
		if len(v.Expected) == 1 {
			hints = append(hints, fmt.Sprintf("Add required attribute: %s=\"...\"", v.Expected[0]))
		}
	case "cvc-enumeration-valid":
		if len(v.Expected) > 0 {
			hints = append(hints, fmt.Sprintf("Valid values are: %s", strings.Join(v.Expected, ", ")))
		}
	}

	if len(hints) == 0 && len(v.Expected) > 0 {
		hints = append(hints, fmt.Sprintf("Expected: %s", strings.Join(v.Expected, ", ")))
	}

	return hints
}

// ErrorFormatter provides rustc-style error formatting
type ErrorFormatter struct {
	Color        bool
	ContextLines int // source lines shown above the offending line
}

func (ef *ErrorFormatter) paint(c *color.Color, s string) string {
	if !ef.Color {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}

// Format formats a diagnostic in rustc style
func (ef *ErrorFormatter) Format(diag Diagnostic, source string) string {
	var sb strings.Builder

	severity := string(diag.Severity)
	switch diag.Severity {
	case SeverityError:
		severity = ef.paint(color.New(color.FgRed, color.Bold), severity)
	case SeverityWarning:
		severity = ef.paint(color.New(color.FgYellow, color.Bold), severity)
	case SeverityInfo:
		severity = ef.paint(color.New(color.FgCyan, color.Bold), severity)
	}

	if diag.Code != "" {
		fmt.Fprintf(&sb, "%s[%s]: %s\n", severity, diag.Code, diag.Message)
	} else {
		fmt.Fprintf(&sb, "%s: %s\n", severity, diag.Message)
	}

	fmt.Fprintf(&sb, " --> %s:%d:%d\n", diag.Position.File, diag.Position.Line, diag.Position.Column)

	if source != "" && diag.Position.Line > 0 {
		lines := strings.Split(source, "\n")
		if diag.Position.Line <= len(lines) {
			first := max(diag.Position.Line-ef.ContextLines, 1)
			for n := first; n <= diag.Position.Line; n++ {
				fmt.Fprintf(&sb, "%4d | %s\n", n, strings.TrimRight(lines[n-1], "\r"))
			}

			sb.WriteString("     | ")
			if diag.Position.Column > 0 {
				sb.WriteString(strings.Repeat(" ", diag.Position.Column-1))
				marker := "^" + strings.Repeat("~", len(diag.Attribute))
				sb.WriteString(ef.paint(color.New(color.FgRed, color.Bold), marker))
			}
			sb.WriteString("\n")
		}
	}

	if diag.Path != "" {
		sb.WriteString("     = at: " + diag.Path + "\n")
	}
	if len(diag.Hints) > 0 {
		sb.WriteString("     |\n")
		for _, hint := range diag.Hints {
			sb.WriteString("     = help: " + hint + "\n")
		}
	}
	if diag.SpecRef != "" {
		sb.WriteString("     = note: see " + diag.SpecRef + "\n")
	}

	return sb.String()
}
