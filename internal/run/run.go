// Package run drives a validation run: it loads the schema once, checks
// every document in order and derives the exit status.
package run

import (
	"context"
	"time"

	"github.com/agentflare-ai/xsdgate/internal/check"
	"github.com/agentflare-ai/xsdgate/internal/loader"
	"github.com/agentflare-ai/xsdgate/internal/report"
)

// Exit statuses.
const (
	ExitValid   = 0
	ExitInvalid = 1
	ExitError   = 2
	// ExitSchema is returned when the schema cannot be loaded.
	ExitSchema = 1
)

// Summary counts document outcomes. Valid+Invalid+Errors always equals Total.
type Summary struct {
	Total   int
	Valid   int
	Invalid int
	Errors  int
}

// Add records one outcome.
func (s *Summary) Add(out check.Outcome) {
	s.Total++
	switch out.Kind {
	case check.Valid:
		s.Valid++
	case check.Invalid:
		s.Invalid++
	default:
		s.Errors++
	}
}

// ExitCode derives the process status: errors outrank invalid documents.
func (s Summary) ExitCode() int {
	switch {
	case s.Errors > 0:
		return ExitError
	case s.Invalid > 0:
		return ExitInvalid
	}
	return ExitValid
}

// Options configure a run.
type Options struct {
	Silent  bool
	Verbose bool
	Pretty  bool
	Timeout time.Duration
}

// Controller runs validation over a list of documents.
type Controller struct {
	Loader  *loader.Loader
	Options Options
	Printer *report.Printer
}

// Run validates documents against the schema at schemaPath in input order.
// A schema that fails to load ends the run with ExitSchema before any
// document is read.
func (c *Controller) Run(ctx context.Context, schemaPath string, documents []string) (Summary, int) {
	var summary Summary

	schema, err := c.Loader.Load(schemaPath)
	if err != nil {
		return summary, ExitSchema
	}
	if c.Options.Verbose && !c.Options.Silent {
		c.Printer.SchemaHeader(schemaPath)
	}

	mode := check.Diagnostic
	if c.Options.Silent {
		mode = check.Silent
	}
	checker := check.New(schema, check.Options{
		Mode:    mode,
		Verbose: c.Options.Verbose,
		Pretty:  c.Options.Pretty,
		Timeout: c.Options.Timeout,
	}, c.Printer)

	for _, doc := range documents {
		var out check.Outcome
		if err := ctx.Err(); err != nil {
			out = check.Canceled(err)
		} else {
			out = checker.Check(ctx, doc)
		}
		summary.Add(out)
		if !c.Options.Silent {
			c.status(doc, out)
		}
	}

	if len(documents) > 1 && !c.Options.Silent {
		c.Printer.Summary(summary.Total, summary.Valid, summary.Invalid, summary.Errors)
	}
	return summary, summary.ExitCode()
}

func (c *Controller) status(doc string, out check.Outcome) {
	switch out.Kind {
	case check.Valid:
		c.Printer.Valid(doc)
	case check.Invalid:
		c.Printer.Invalid(doc, out.ErrorCount)
	default:
		c.Printer.Failed(doc)
	}
}
