package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentflare-ai/xsdgate/xsd"
)

const planSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="plan">
    <xs:complexType>
      <xs:sequence>
        <xs:element name="step" type="xs:string" maxOccurs="unbounded"/>
      </xs:sequence>
      <xs:attribute name="name" type="xs:string" use="required"/>
    </xs:complexType>
  </xs:element>
</xs:schema>`

// duplicateIDSchema breaks a meta-schema rule that does not stop compilation.
const duplicateIDSchema = `<?xml version="1.0"?>
<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema">
  <xs:element name="plan" id="decl" type="xs:string"/>
  <xs:element name="note" id="decl" type="xs:string"/>
</xs:schema>`

func writeSchema(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Success(t *testing.T) {
	var stderr bytes.Buffer
	l := &Loader{Err: &stderr}

	schema, err := l.Load(writeSchema(t, "plan.xsd", planSchema))
	require.NoError(t, err)
	require.NotNil(t, schema)
	assert.Contains(t, schema.ElementDecls, xsd.QName{Local: "plan"})
	assert.Empty(t, stderr.String())
}

func TestLoad_Failures(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		options  xsd.CompileOptions
		kind     Kind
		prefix   string
		typeName string
	}{
		{
			name:    "malformed xml",
			content: `<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"><xs:element name="plan"></xs:schema>`,
			kind:    Syntax,
			prefix:  "XML parse error reading schema ",
		},
		{
			name:    "root is not xs:schema",
			content: `<plan name="demo"/>`,
			kind:    Semantic,
			prefix:  "Error reading schema ",
		},
		{
			name:    "meta-schema violation in strict mode",
			content: duplicateIDSchema,
			options: xsd.CompileOptions{Mode: xsd.Strict},
			kind:    Semantic,
			prefix:  "Error reading schema ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			l := &Loader{Options: tt.options, Err: &stderr}
			path := writeSchema(t, "schema.xsd", tt.content)

			schema, err := l.Load(path)
			assert.Nil(t, schema)

			var loadErr *Error
			require.True(t, errors.As(err, &loadErr), "want *loader.Error, got %T", err)
			assert.Equal(t, tt.kind, loadErr.Kind)
			assert.Equal(t, path, loadErr.Path)

			line := stderr.String()
			assert.True(t, strings.HasPrefix(line, tt.prefix+path+": "), "stderr: %q", line)
			assert.Equal(t, 1, strings.Count(line, "\n"), "exactly one diagnostic line")
		})
	}
}

func TestLoad_LaxToleratesMetaSchemaViolations(t *testing.T) {
	var stderr bytes.Buffer
	l := &Loader{Err: &stderr}

	schema, err := l.Load(writeSchema(t, "dup.xsd", duplicateIDSchema))
	require.NoError(t, err)
	assert.NotEmpty(t, schema.Warnings)
	assert.Empty(t, stderr.String())
}

func TestLoad_MissingFileIsUnknown(t *testing.T) {
	var stderr bytes.Buffer
	l := &Loader{Err: &stderr}
	path := filepath.Join(t.TempDir(), "absent.xsd")

	_, err := l.Load(path)

	var loadErr *Error
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, Unknown, loadErr.Kind)
	assert.Equal(t, "*fs.PathError", loadErr.TypeName)
	assert.True(t, strings.HasPrefix(stderr.String(), "Error of type *fs.PathError reading schema "+path+": "))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_UsesCache(t *testing.T) {
	cache, err := xsd.NewSchemaCache(4)
	require.NoError(t, err)
	l := &Loader{Cache: cache, Err: &bytes.Buffer{}}
	path := writeSchema(t, "plan.xsd", planSchema)

	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, cache.Len())
}

func TestTypeName(t *testing.T) {
	_, statErr := os.Stat(filepath.Join(t.TempDir(), "nope"))

	assert.Equal(t, "*fs.PathError", typeName(statErr))
	assert.Equal(t, "*fs.PathError", typeName(fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", statErr))))
	assert.Equal(t, "*errors.joinError", typeName(errors.Join(errors.New("a"), errors.New("b"))))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "syntax", Syntax.String())
	assert.Equal(t, "semantic", Semantic.String())
	assert.Equal(t, "unknown", Unknown.String())
}
