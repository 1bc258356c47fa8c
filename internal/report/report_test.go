package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPrinter(colored bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &Printer{Out: &out, Err: &errOut, Color: colored}, &out, &errOut
}

func TestStatusLines(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.Valid("a.xml")
	p.Invalid("b.xml", 3)
	p.Failed("c.xml")

	assert.Equal(t, "a.xml is valid\n"+
		"b.xml failed validation with 3 errors\n"+
		"c.xml could not be validated due to error\n", out.String())
}

func TestMessage(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.Message("Required attribute 'name' is missing", "/plan")
	p.Message("Document has no root element", "")
	p.Detail("cvc-elt.1: Cannot find declaration for element 'other' (path /other)")

	assert.Equal(t, "   Required attribute 'name' is missing\n"+
		"  at /plan\n"+
		"   Document has no root element\n"+
		"   cvc-elt.1: Cannot find declaration for element 'other' (path /other)\n", out.String())
}

func TestSummary(t *testing.T) {
	tests := []struct {
		name                          string
		total, valid, invalid, failed int
		want                          string
	}{
		{"all valid", 2, 2, 0, 0, "2 files checked, 2 valid\n"},
		{"invalid only", 3, 1, 2, 0, "3 files checked, 1 valid\n   2 files invalid\n"},
		{"errors only", 2, 1, 0, 1, "2 files checked, 1 valid\n   1 could not be validated\n"},
		{"mixed", 4, 1, 2, 1, "4 files checked, 1 valid\n   2 files invalid\n   1 could not be validated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out, _ := newTestPrinter(false)
			p.Summary(tt.total, tt.valid, tt.invalid, tt.failed)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestHeaders(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.SchemaHeader("plan.xsd")
	p.Validating("a.xml")

	assert.Equal(t, "Validating against schema plan.xsd\nValidating a.xml\n", out.String())
}

func TestErrorfGoesToErr(t *testing.T) {
	p, out, errOut := newTestPrinter(false)

	p.Errorf("XML parse error for %s: %s", "bad.xml", "unexpected EOF")

	assert.Empty(t, out.String())
	assert.Equal(t, "XML parse error for bad.xml: unexpected EOF\n", errOut.String())
}

func TestColor(t *testing.T) {
	p, out, _ := newTestPrinter(true)

	p.Valid("a.xml")

	assert.Contains(t, out.String(), "\x1b[")
	assert.Contains(t, out.String(), "is valid")
}

func TestUseColor(t *testing.T) {
	var buf bytes.Buffer

	assert.True(t, UseColor("always", &buf))
	assert.False(t, UseColor("never", &buf))
	assert.False(t, UseColor("auto", &buf), "a buffer is not a terminal")
}

func TestNilOutDiscards(t *testing.T) {
	p := &Printer{}
	assert.NotPanics(t, func() { p.Valid("a.xml") })
}
