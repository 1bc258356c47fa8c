// Package report writes the user-facing lines of a validation run.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer owns stdout and stderr for a run. Status lines go to Out,
// failure diagnostics to Err.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Color bool
}

// New returns a Printer. mode is "auto", "always" or "never"; auto colors
// output only when out is a terminal.
func New(out, errOut io.Writer, mode string) *Printer {
	return &Printer{Out: out, Err: errOut, Color: UseColor(mode, out)}
}

// UseColor resolves a color mode for w.
func UseColor(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) paint(s string, attrs ...color.Attribute) string {
	if !p.Color {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func (p *Printer) out() io.Writer {
	if p.Out == nil {
		return io.Discard
	}
	return p.Out
}

func (p *Printer) errOut() io.Writer {
	if p.Err == nil {
		return os.Stderr
	}
	return p.Err
}

// SchemaHeader announces the schema in verbose runs.
func (p *Printer) SchemaHeader(path string) {
	fmt.Fprintf(p.out(), "Validating against schema %s\n", path)
}

// Validating announces a document in verbose runs.
func (p *Printer) Validating(path string) {
	fmt.Fprintf(p.out(), "Validating %s\n", path)
}

// Valid prints the status line of a valid document.
func (p *Printer) Valid(path string) {
	fmt.Fprintf(p.out(), "%s %s\n", path, p.paint("is valid", color.FgGreen))
}

// Invalid prints the status line of a document with count violations.
func (p *Printer) Invalid(path string, count int) {
	status := fmt.Sprintf("failed validation with %d errors", count)
	fmt.Fprintf(p.out(), "%s %s\n", path, p.paint(status, color.FgYellow))
}

// Failed prints the status line of a document that could not be processed.
func (p *Printer) Failed(path string) {
	status := "could not be validated due to error"
	fmt.Fprintf(p.out(), "%s %s\n", path, p.paint(status, color.FgRed, color.Bold))
}

// Message prints one violation, followed by its location when known.
func (p *Printer) Message(text, location string) {
	fmt.Fprintf(p.out(), "   %s\n", text)
	if location != "" {
		fmt.Fprintf(p.out(), "  at %s\n", location)
	}
}

// Detail prints one violation in full.
func (p *Printer) Detail(text string) {
	fmt.Fprintf(p.out(), "   %s\n", text)
}

// Block prints preformatted text such as a rendered diagnostic.
func (p *Printer) Block(text string) {
	io.WriteString(p.out(), text)
}

// Summary prints the totals of a multi-document run. The invalid and
// error lines are omitted when zero.
func (p *Printer) Summary(total, valid, invalid, failed int) {
	w := p.out()
	fmt.Fprintf(w, "%d files checked, %d valid\n", total, valid)
	if invalid > 0 {
		fmt.Fprintf(w, "   %d files invalid\n", invalid)
	}
	if failed > 0 {
		fmt.Fprintf(w, "   %d could not be validated\n", failed)
	}
}

// Errorf writes a one-line diagnostic to Err.
func (p *Printer) Errorf(format string, args ...any) {
	fmt.Fprintf(p.errOut(), format+"\n", args...)
}
