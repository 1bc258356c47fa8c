package xsd

import (
	"strings"
	"testing"
)

func TestErrorFormatterFormat(t *testing.T) {
	diag := Diagnostic{
		Severity:  SeverityError,
		Code:      "cvc-complex-type.4",
		Message:   "Required attribute 'name' is missing",
		Position:  Position{File: "plan.xml", Line: 2, Column: 3},
		Path:      "/plan/step",
		Attribute: "name",
		SpecRef:   "XML Schema 1.1 Part 1, validation rule cvc-complex-type.4",
		Hints:     []string{`Add required attribute: name="..."`},
	}
	source := "<plan>\n  <step/>\n</plan>\n"

	got := (&ErrorFormatter{ContextLines: 1}).Format(diag, source)

	want := strings.Join([]string{
		"error[cvc-complex-type.4]: Required attribute 'name' is missing",
		" --> plan.xml:2:3",
		"   1 | <plan>",
		"   2 |   <step/>",
		"     |   ^~~~~",
		"     = at: /plan/step",
		"     |",
		`     = help: Add required attribute: name="..."`,
		"     = note: see XML Schema 1.1 Part 1, validation rule cvc-complex-type.4",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Format mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestErrorFormatterWithoutSource(t *testing.T) {
	diag := Diagnostic{Severity: SeverityWarning, Message: "tolerated", Position: Position{File: "plan.xsd"}}

	got := (&ErrorFormatter{}).Format(diag, "")

	want := "warning: tolerated\n --> plan.xsd:0:0\n"
	if got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestErrorFormatterColor(t *testing.T) {
	diag := Diagnostic{Severity: SeverityError, Message: "bad", Position: Position{File: "a.xml"}}

	got := (&ErrorFormatter{Color: true}).Format(diag, "")

	if !strings.Contains(got, "\x1b[") {
		t.Errorf("expected ANSI escapes in %q", got)
	}
}

func TestConvertOne(t *testing.T) {
	conv := NewDiagnosticConverter("plan.xml")

	tests := []struct {
		name     string
		v        Violation
		severity Severity
		message  string
		hints    []string
		specRef  string
	}{
		{
			name:     "unexpected child",
			v:        Violation{Code: "cvc-complex-type.2.4.a", Message: "raw", Expected: []string{"step"}, Actual: "bogus"},
			severity: SeverityError,
			message:  "Invalid element 'bogus'. Expected one of: step",
			hints:    []string{"Valid children are: step"},
			specRef:  "XML Schema 1.1 Part 1, validation rule cvc-complex-type.2.4.a",
		},
		{
			name:     "missing required attribute",
			v:        Violation{Code: "cvc-complex-type.4", Message: "Required attribute 'name' is missing", Expected: []string{"name"}},
			severity: SeverityError,
			message:  "Required attribute 'name' is missing",
			hints:    []string{`Add required attribute: name="..."`},
			specRef:  "XML Schema 1.1 Part 1, validation rule cvc-complex-type.4",
		},
		{
			name:     "engine warning",
			v:        Violation{Code: "xsd-warn-lax", Message: "skipped"},
			severity: SeverityWarning,
			message:  "skipped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := conv.ConvertOne(tt.v)
			if d.Severity != tt.severity {
				t.Errorf("Severity = %s, want %s", d.Severity, tt.severity)
			}
			if d.Message != tt.message {
				t.Errorf("Message = %q, want %q", d.Message, tt.message)
			}
			if strings.Join(d.Hints, "|") != strings.Join(tt.hints, "|") {
				t.Errorf("Hints = %v, want %v", d.Hints, tt.hints)
			}
			if d.SpecRef != tt.specRef {
				t.Errorf("SpecRef = %q, want %q", d.SpecRef, tt.specRef)
			}
			if d.Position.File != "plan.xml" {
				t.Errorf("Position.File = %q, want plan.xml", d.Position.File)
			}
		})
	}
}

func TestConvertUsesElementPosition(t *testing.T) {
	schema := compilePlanSchema(t)
	doc, err := DecodeDocument("plan.xml", []byte("<plan>\n  <step>boot</step>\n</plan>"))
	if err != nil {
		t.Fatal(err)
	}

	conv := NewDiagnosticConverter("plan.xml")
	var diags []Diagnostic
	for v := range schema.IterErrors(doc) {
		diags = append(diags, conv.ConvertOne(v))
	}
	if len(diags) == 0 {
		t.Fatal("got no diagnostics")
	}
	if diags[0].Tag != "plan" || diags[0].Path != "/plan" {
		t.Errorf("first diagnostic = (%s, %s), want (plan, /plan)", diags[0].Tag, diags[0].Path)
	}
}
