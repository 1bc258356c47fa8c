// Package check validates a single document against a compiled schema and
// reduces the result to an Outcome.
package check

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/agentflare-ai/go-xmldom"

	"github.com/agentflare-ai/xsdgate/internal/report"
	"github.com/agentflare-ai/xsdgate/xsd"
)

// Mode selects how much a Checker reports.
type Mode int

const (
	// Diagnostic enumerates and prints every violation.
	Diagnostic Mode = iota
	// Silent only decides validity.
	Silent
)

func (m Mode) String() string {
	if m == Silent {
		return "silent"
	}
	return "diagnostic"
}

// Options configure a Checker.
type Options struct {
	Mode    Mode
	Verbose bool
	// Pretty renders violations with source context instead of plain lines.
	Pretty bool
	// Timeout bounds each document; zero means no deadline.
	Timeout time.Duration
}

// Kind is the category of an Outcome.
type Kind int

const (
	Valid Kind = iota
	Invalid
	Error
)

func (k Kind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	}
	return "error"
}

// Cause tells why an Outcome is Error.
type Cause int

const (
	NoCause Cause = iota
	// CauseParse: the document is not well-formed XML.
	CauseParse
	// CauseValidation: reading or validating failed unexpectedly.
	CauseValidation
	// CauseTimeout: the per-document deadline expired.
	CauseTimeout
	// CauseCanceled: the run was interrupted.
	CauseCanceled
)

func (c Cause) String() string {
	switch c {
	case CauseParse:
		return "parse"
	case CauseValidation:
		return "validation"
	case CauseTimeout:
		return "timeout"
	case CauseCanceled:
		return "canceled"
	}
	return ""
}

// Message is one violation as reported to the user.
type Message struct {
	Text string
	// Location is the element path, empty when unknown.
	Location string
}

// Outcome is the terminal result for one document.
type Outcome struct {
	Kind Kind
	// ErrorCount and Messages are set for Invalid.
	ErrorCount int
	Messages   []Message
	// Reason and Cause are set for Error.
	Reason string
	Cause  Cause
}

func (o Outcome) String() string {
	switch o.Kind {
	case Invalid:
		return fmt.Sprintf("invalid (%d errors)", o.ErrorCount)
	case Error:
		return fmt.Sprintf("error (%s): %s", o.Cause, o.Reason)
	}
	return "valid"
}

// Canceled is the Outcome of a document that was never validated because
// the run was interrupted.
func Canceled(err error) Outcome {
	return Outcome{Kind: Error, Cause: CauseCanceled, Reason: err.Error()}
}

// Checker validates documents against one schema. It is not safe for
// concurrent use because output is written as violations are found.
type Checker struct {
	Schema  *xsd.Schema
	Options Options
	Printer *report.Printer
}

// New returns a Checker.
func New(schema *xsd.Schema, opts Options, printer *report.Printer) *Checker {
	return &Checker{Schema: schema, Options: opts, Printer: printer}
}

// event carries one violation, or a failure, from the validation worker.
type event struct {
	violation xsd.Violation
	// pretty is the violation rendered against its source line, set only
	// when pretty output is on.
	pretty string
	err    error
}

// Check validates the document at path. It never panics; every failure is
// folded into an Error outcome.
func (c *Checker) Check(ctx context.Context, path string) (out Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("document check panicked", "path", path, "panic", r, "stack", string(debug.Stack()))
			out = c.unexpected(path, fmt.Errorf("%v", r))
		}
		slog.Debug("document checked", "path", path, "outcome", out.Kind, "errors", out.ErrorCount, "elapsed", time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		return c.interrupted(path, err)
	}

	if c.Options.Verbose && c.Options.Mode == Diagnostic {
		c.Printer.Validating(path)
	}

	var cancel context.CancelFunc
	if c.Options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.Options.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if c.Options.Mode == Silent {
		return c.checkSilent(ctx, path)
	}
	return c.checkDiagnostic(ctx, path)
}

func (c *Checker) checkSilent(ctx context.Context, path string) Outcome {
	events := c.start(ctx, path, func(doc xmldom.Document, _ []byte) iter.Seq[event] {
		return func(yield func(event) bool) {
			if !c.Schema.IsValid(doc) {
				yield(event{})
			}
		}
	})
	select {
	case ev, ok := <-events:
		switch {
		case !ok:
			return Outcome{Kind: Valid}
		case ev.err != nil:
			return c.failure(path, ev.err)
		}
		// Silent mode does not enumerate violations.
		return Outcome{Kind: Invalid, ErrorCount: 1}
	case <-ctx.Done():
		return c.interrupted(path, ctx.Err())
	}
}

func (c *Checker) checkDiagnostic(ctx context.Context, path string) Outcome {
	pretty := c.Options.Pretty && !c.Options.Verbose
	events := c.start(ctx, path, func(doc xmldom.Document, source []byte) iter.Seq[event] {
		conv := xsd.NewDiagnosticConverter(path)
		formatter := &xsd.ErrorFormatter{Color: c.Printer.Color, ContextLines: 1}
		return func(yield func(event) bool) {
			for v := range c.Schema.IterErrors(doc) {
				ev := event{violation: v}
				if pretty {
					ev.pretty = formatter.Format(conv.ConvertOne(v), string(source))
				}
				if !yield(ev) {
					return
				}
			}
		}
	})

	var messages []Message
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if len(messages) == 0 {
					return Outcome{Kind: Valid}
				}
				return Outcome{Kind: Invalid, ErrorCount: len(messages), Messages: messages}
			}
			if ev.err != nil {
				return c.failure(path, ev.err)
			}
			messages = append(messages, c.report(ev))
		case <-ctx.Done():
			return c.interrupted(path, ctx.Err())
		}
	}
}

// report prints a violation as soon as it is found and returns its Message.
func (c *Checker) report(ev event) Message {
	v := ev.violation
	if c.Options.Verbose {
		msg := Message{Text: v.String()}
		c.Printer.Detail(msg.Text)
		return msg
	}
	msg := Message{Text: v.Message, Location: v.Path}
	if ev.pretty != "" {
		c.Printer.Block(ev.pretty)
	} else {
		c.Printer.Message(msg.Text, msg.Location)
	}
	return msg
}

// start reads and decodes path on a worker goroutine, then streams the
// events produced by validate in order. Reading counts against the deadline
// like validation does. The worker exits at its next send once ctx is done.
func (c *Checker) start(ctx context.Context, path string, validate func(doc xmldom.Document, source []byte) iter.Seq[event]) <-chan event {
	events := make(chan event)
	send := func(ev event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				slog.Debug("validation panicked", "path", path, "panic", r, "stack", string(debug.Stack()))
				send(event{err: fmt.Errorf("%v", r)})
			}
		}()
		doc, source, err := xsd.ReadDocument(path)
		if err != nil {
			send(event{err: err})
			return
		}
		for ev := range validate(doc, source) {
			if !send(ev) {
				return
			}
		}
	}()
	return events
}

// failure turns an error from the worker into an Outcome.
func (c *Checker) failure(path string, err error) Outcome {
	var parseErr *xsd.ParseError
	if errors.As(err, &parseErr) {
		return c.parseFailure(path, parseErr)
	}
	return c.unexpected(path, err)
}

func (c *Checker) parseFailure(path string, err *xsd.ParseError) Outcome {
	if c.Options.Mode == Silent {
		c.Printer.Errorf("%s could not be parsed as XML", path)
	} else {
		c.Printer.Errorf("XML parse error for %s: %v", path, err.Err)
	}
	return Outcome{Kind: Error, Cause: CauseParse, Reason: fmt.Sprintf("could not be parsed as XML: %v", err.Err)}
}

func (c *Checker) unexpected(path string, err error) Outcome {
	c.Printer.Errorf("Unknown error while validating %s: %v", path, err)
	return Outcome{Kind: Error, Cause: CauseValidation, Reason: err.Error()}
}

func (c *Checker) interrupted(path string, err error) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		c.Printer.Errorf("Timed out validating %s after %s", path, c.Options.Timeout)
		return Outcome{Kind: Error, Cause: CauseTimeout, Reason: fmt.Sprintf("timed out after %s", c.Options.Timeout)}
	}
	c.Printer.Errorf("Validation of %s canceled", path)
	return Canceled(err)
}
