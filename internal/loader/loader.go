// Package loader compiles the schema a run validates against and classifies
// load failures.
package loader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/agentflare-ai/xsdgate/xsd"
)

// Kind classifies a schema load failure.
type Kind int

const (
	// Syntax means the schema, or a document it includes, is not well-formed XML.
	Syntax Kind = iota
	// Semantic means the schema is well-formed but breaks XML Schema rules.
	Semantic
	// Unknown covers everything else, such as I/O failures.
	Unknown
)

func (k Kind) String() string {
	switch k {
	case Syntax:
		return "syntax"
	case Semantic:
		return "semantic"
	}
	return "unknown"
}

// Error is returned by Loader.Load for every failure.
type Error struct {
	Kind Kind
	Path string
	// TypeName is the Go type of the underlying failure, set for Unknown.
	TypeName string
	// Detail is the human-readable cause.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case Syntax:
		return fmt.Sprintf("XML parse error reading schema %s: %s", e.Path, e.Detail)
	case Semantic:
		return fmt.Sprintf("Error reading schema %s: %s", e.Path, e.Detail)
	}
	return fmt.Sprintf("Error of type %s reading schema %s: %s", e.TypeName, e.Path, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Loader compiles schemas, through Cache when one is set.
type Loader struct {
	Cache   *xsd.SchemaCache
	Options xsd.CompileOptions
	// Err receives the one-line failure diagnostic. Defaults to os.Stderr.
	Err io.Writer
}

// Load compiles the schema at path. Any failure is returned as *Error after
// its diagnostic line has been written to l.Err.
func (l *Loader) Load(path string) (schema *xsd.Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("schema load panicked", "path", path, "panic", r, "stack", string(debug.Stack()))
			schema = nil
			err = l.fail(&Error{
				Kind:     Unknown,
				Path:     path,
				TypeName: fmt.Sprintf("%T", r),
				Detail:   fmt.Sprint(r),
				Err:      fmt.Errorf("panic: %v", r),
			})
		}
	}()

	if l.Cache != nil {
		schema, err = l.Cache.Get(path, l.Options)
	} else {
		schema, err = xsd.Compile(path, l.Options)
	}
	if err != nil {
		return nil, l.fail(classify(path, err))
	}
	for _, w := range schema.Warnings {
		slog.Debug("schema loaded with warning", "path", path, "warning", w)
	}
	return schema, nil
}

func (l *Loader) fail(e *Error) error {
	w := l.Err
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintln(w, e.Error())
	return e
}

func classify(path string, err error) *Error {
	var syntaxErr *xsd.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &Error{Kind: Syntax, Path: path, Detail: detail(path, syntaxErr.Location, syntaxErr.Err, err), Err: err}
	}
	var semanticErr *xsd.SemanticError
	if errors.As(err, &semanticErr) {
		return &Error{Kind: Semantic, Path: path, Detail: detail(path, semanticErr.Location, semanticErr, err), Err: err}
	}
	return &Error{Kind: Unknown, Path: path, TypeName: typeName(err), Detail: err.Error(), Err: err}
}

// detail drops the location prefix when the failure is in the top-level
// schema itself, which the diagnostic line already names.
func detail(path, location string, inner, full error) string {
	if abs, err := filepath.Abs(path); err == nil && abs == location {
		if se, ok := inner.(*xsd.SemanticError); ok {
			return semanticDetail(se)
		}
		return inner.Error()
	}
	return full.Error()
}

func semanticDetail(se *xsd.SemanticError) string {
	switch len(se.Errs) {
	case 0:
		return "invalid XSD schema"
	case 1:
		return se.Errs[0].Error()
	}
	return fmt.Sprintf("%v (and %d more)", se.Errs[0], len(se.Errs)-1)
}

// typeName names the first error in the chain that is not a plain
// fmt.Errorf wrapper.
func typeName(err error) string {
	for {
		name := fmt.Sprintf("%T", err)
		next := errors.Unwrap(err)
		if next == nil || name != "*fmt.wrapError" {
			return name
		}
		err = next
	}
}
