package xsd

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/agentflare-ai/go-xmldom"
)

// Mode selects how schema-level rule violations are assessed.
type Mode int

const (
	// Lax tolerates meta-schema violations that do not stop the schema from
	// being built; they are recorded in Schema.Warnings.
	Lax Mode = iota
	// Strict rejects a schema with any meta-schema violation.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lax"
}

// ParseMode parses "lax" or "strict". The empty string is Lax.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return Lax, nil
	case "strict":
		return Strict, nil
	}
	return Lax, fmt.Errorf("unknown schema mode %q (want lax or strict)", s)
}

// SchemaLoader handles loading schemas with import/include support
type SchemaLoader struct {
	// Base directory for resolving relative paths
	BaseDir string

	// Assessment mode for every loaded schema document
	Mode Mode

	// Whether to allow remote schema loading
	AllowRemote bool

	// Map of loaded schemas by location
	loaded map[string]*Schema

	// Load order of the keys in loaded; merging follows it so the combined
	// schema does not depend on map iteration order.
	order []string

	// Map of schemas being loaded (for cycle detection)
	loading map[string]bool

	// Combined schema with all imports/includes merged
	combined *Schema

	// Meta-schema violations tolerated in lax mode
	warnings []error

	httpClient *http.Client

	mu sync.Mutex
}

// NewSchemaLoader creates a new schema loader
func NewSchemaLoader(baseDir string) *SchemaLoader {
	return &SchemaLoader{
		BaseDir:     baseDir,
		Mode:        Lax,
		AllowRemote: false, // Disabled by default for security
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// LoadSchemaWithImports loads a schema and all its imports/includes.
// A document that is not well-formed XML fails with *SyntaxError; one that
// breaks XML Schema rules fails with *SemanticError.
func (sl *SchemaLoader) LoadSchemaWithImports(location string) (*Schema, error) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.loaded = make(map[string]*Schema)
	sl.loading = make(map[string]bool)
	sl.order = nil
	sl.warnings = nil

	// Initialize combined schema
	sl.combined = &Schema{
		ElementDecls:       make(map[QName]*ElementDecl),
		TypeDefs:           make(map[QName]Type),
		AttributeGroups:    make(map[QName]*AttributeGroup),
		Groups:             make(map[QName]*ModelGroup),
		ImportedSchemas:    make(map[string]*Schema),
		SubstitutionGroups: make(map[QName][]QName),
	}

	// Load the main schema
	mainSchema, err := sl.loadSchemaRecursive(location)
	if err != nil {
		return nil, err
	}

	sl.combined.TargetNamespace = mainSchema.TargetNamespace
	sl.combined.doc = mainSchema.doc

	for _, loc := range sl.order {
		sl.mergeSchema(sl.loaded[loc], loc)
	}

	sl.combined.resolveReferences()
	sl.combined.Warnings = sl.warnings

	return sl.combined, nil
}

// loadSchemaRecursive loads a schema and processes its imports/includes
func (sl *SchemaLoader) loadSchemaRecursive(location string) (*Schema, error) {
	absLocation, err := sl.resolveLocation(location)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve location %s: %w", location, err)
	}

	if schema, ok := sl.loaded[absLocation]; ok {
		return schema, nil
	}

	if sl.loading[absLocation] {
		return nil, fmt.Errorf("circular dependency detected: %s", absLocation)
	}

	sl.loading[absLocation] = true
	defer delete(sl.loading, absLocation)

	doc, err := sl.loadDocument(absLocation)
	if err != nil {
		return nil, err
	}

	if problems := NewSchemaValidator().ValidateSchema(doc); len(problems) > 0 {
		if sl.Mode == Strict {
			return nil, &SemanticError{Location: absLocation, Errs: problems}
		}
		for _, p := range problems {
			slog.Warn("schema rule violation tolerated", "location", absLocation, "error", p)
			sl.warnings = append(sl.warnings, fmt.Errorf("%s: %w", absLocation, p))
		}
	}

	schema, err := Parse(doc)
	if err != nil {
		return nil, &SemanticError{Location: absLocation, Errs: []error{err}}
	}

	sl.loaded[absLocation] = schema
	sl.order = append(sl.order, absLocation)

	// Import failures are non-fatal: the importing schema may only reference
	// the namespace through wildcards.
	for _, imp := range schema.Imports {
		if imp.SchemaLocation == "" {
			continue
		}
		impLocation := sl.resolveRelative(imp.SchemaLocation, absLocation)
		if _, err := sl.loadSchemaRecursive(impLocation); err != nil {
			slog.Warn("failed to load imported schema", "location", impLocation, "namespace", imp.Namespace, "error", err)
		}
	}

	for _, includeLocation := range sl.findIncludes(doc) {
		incLocation := sl.resolveRelative(includeLocation, absLocation)
		if _, err := sl.loadSchemaRecursive(incLocation); err != nil {
			return nil, fmt.Errorf("failed to include %s: %w", includeLocation, err)
		}
	}

	return schema, nil
}

// findIncludes finds all xs:include elements in the document
func (sl *SchemaLoader) findIncludes(doc xmldom.Document) []string {
	var includes []string

	root := doc.DocumentElement()
	if root == nil {
		return includes
	}

	children := root.Children()
	for i := uint(0); i < children.Length(); i++ {
		child := children.Item(i)
		if child == nil {
			continue
		}

		if string(child.NamespaceURI()) == XSDNamespace &&
			string(child.LocalName()) == "include" {
			if location := child.GetAttribute("schemaLocation"); location != "" {
				includes = append(includes, string(location))
			}
		}
	}

	return includes
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// resolveLocation resolves a location to an absolute path or URL
func (sl *SchemaLoader) resolveLocation(location string) (string, error) {
	if filepath.IsAbs(location) {
		return location, nil
	}

	if isRemote(location) {
		if !sl.AllowRemote {
			return "", fmt.Errorf("remote schema loading is disabled")
		}
		return location, nil
	}

	if sl.BaseDir != "" {
		return filepath.Abs(filepath.Join(sl.BaseDir, location))
	}

	return filepath.Abs(location)
}

// resolveRelative resolves a relative location based on a base location
func (sl *SchemaLoader) resolveRelative(relative, base string) string {
	if filepath.IsAbs(relative) || isRemote(relative) {
		return relative
	}

	if isRemote(base) {
		baseURL, err := url.Parse(base)
		if err != nil {
			return relative
		}
		relURL, err := baseURL.Parse(relative)
		if err != nil {
			return relative
		}
		return relURL.String()
	}

	return filepath.Join(filepath.Dir(base), relative)
}

// loadDocument loads an XML document from a location. Decoding failures are
// reported as *SyntaxError; transport failures are returned as is.
func (sl *SchemaLoader) loadDocument(location string) (xmldom.Document, error) {
	var reader io.ReadCloser

	if isRemote(location) {
		resp, err := sl.httpClient.Get(location)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", location, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, location)
		}
		reader = resp.Body
	} else {
		file, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		reader = file
	}
	defer reader.Close()

	doc, err := xmldom.Decode(reader)
	if err != nil {
		return nil, &SyntaxError{Location: location, Err: err}
	}

	return doc, nil
}

// mergeSchema merges a loaded schema document into the combined schema
func (sl *SchemaLoader) mergeSchema(source *Schema, location string) {
	sl.combined.ImportedSchemas[location] = source

	// Components keep their own namespace, so xs:include and xs:import merge
	// the same way; cross-namespace lookups go through ImportedSchemas.
	mergeComponents(source, sl.combined)
}

// mergeComponents copies schema components into target; the first
// definition of a name wins.
func mergeComponents(source, target *Schema) {
	for qname, elem := range source.ElementDecls {
		if _, exists := target.ElementDecls[qname]; !exists {
			target.ElementDecls[qname] = elem
		}
	}

	for qname, typ := range source.TypeDefs {
		if _, exists := target.TypeDefs[qname]; !exists {
			target.TypeDefs[qname] = typ
		}
	}

	for qname, ag := range source.AttributeGroups {
		if _, exists := target.AttributeGroups[qname]; !exists {
			target.AttributeGroups[qname] = ag
		}
	}

	for qname, mg := range source.Groups {
		if _, exists := target.Groups[qname]; !exists {
			target.Groups[qname] = mg
		}
	}

	// Transitive imports
	target.Imports = append(target.Imports, source.Imports...)
}

// CompileOptions configures Compile.
type CompileOptions struct {
	Mode        Mode
	AllowRemote bool
}

// Compile loads the schema at location together with everything it imports
// or includes, resolving relative locations against its directory.
func Compile(location string, opts CompileOptions) (*Schema, error) {
	if !isRemote(location) {
		abs, err := filepath.Abs(location)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve location %s: %w", location, err)
		}
		location = abs
	}
	sl := NewSchemaLoader(filepath.Dir(location))
	sl.Mode = opts.Mode
	sl.AllowRemote = opts.AllowRemote
	return sl.LoadSchemaWithImports(location)
}
