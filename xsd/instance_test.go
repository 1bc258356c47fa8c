package xsd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func compilePlanSchema(t *testing.T) *Schema {
	t.Helper()
	path := writeTestFile(t, t.TempDir(), "plan.xsd", planSchemaDoc)
	schema, err := Compile(path, CompileOptions{})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	return schema
}

func TestDecodeDocumentParseError(t *testing.T) {
	_, err := DecodeDocument("broken.xml", []byte(`<plan><step></plan>`))

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("want *ParseError, got %T: %v", err, err)
	}
	if parseErr.Location != "broken.xml" {
		t.Errorf("Location = %q, want broken.xml", parseErr.Location)
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "plan.xml", `<plan name="demo"><step>boot</step></plan>`)

	doc, source, err := ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc.DocumentElement() == nil {
		t.Error("missing root element")
	}
	if !strings.Contains(string(source), "boot") {
		t.Error("source bytes not returned")
	}

	_, _, err = ReadDocument(filepath.Join(dir, "absent.xml"))
	var parseErr *ParseError
	if err == nil || errors.As(err, &parseErr) {
		t.Errorf("a missing file should fail without *ParseError, got %v", err)
	}
}

func TestIterErrorsOrderAndPaths(t *testing.T) {
	schema := compilePlanSchema(t)
	doc, err := DecodeDocument("plan.xml", []byte(`<plan color="red"><step>boot</step><bogus/></plan>`))
	if err != nil {
		t.Fatal(err)
	}

	type want struct{ code, path string }
	expected := []want{
		{"cvc-complex-type.3.2.2", "/plan"},
		{"cvc-complex-type.4", "/plan"},
		{"cvc-complex-type.2.4.d", "/plan/bogus"},
	}

	var got []Violation
	for v := range schema.IterErrors(doc) {
		got = append(got, v)
	}
	if len(got) != len(expected) {
		t.Fatalf("got %d violations, want %d: %v", len(got), len(expected), got)
	}
	for i, w := range expected {
		if got[i].Code != w.code || got[i].Path != w.path {
			t.Errorf("violation %d = (%s, %s), want (%s, %s)", i, got[i].Code, got[i].Path, w.code, w.path)
		}
	}

	if schema.IsValid(doc) {
		t.Error("IsValid reported an invalid document as valid")
	}
}

func TestIterErrorsStopsEarly(t *testing.T) {
	schema := compilePlanSchema(t)
	doc, err := DecodeDocument("plan.xml", []byte(`<plan color="red"><step>boot</step><bogus/></plan>`))
	if err != nil {
		t.Fatal(err)
	}

	n := 0
	for range schema.IterErrors(doc) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("yielded %d violations after break, want 1", n)
	}
}

func TestIsValid(t *testing.T) {
	schema := compilePlanSchema(t)
	doc, err := DecodeDocument("plan.xml", []byte(`<plan name="demo"><step>boot</step><step>run</step></plan>`))
	if err != nil {
		t.Fatal(err)
	}

	if !schema.IsValid(doc) {
		for v := range schema.IterErrors(doc) {
			t.Errorf("unexpected violation: %s", v)
		}
	}
}

func TestViolationPathsIndexRepeatedSiblings(t *testing.T) {
	schema := compilePlanSchema(t)
	doc, err := DecodeDocument("other.xml", []byte(`<other><item/><item/><note/></other>`))
	if err != nil {
		t.Fatal(err)
	}

	var paths []string
	for v := range schema.IterErrors(doc) {
		paths = append(paths, v.Path)
	}

	want := []string{"/other", "/other/item[1]", "/other/item[2]", "/other/note"}
	if strings.Join(paths, " ") != strings.Join(want, " ") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestViolationString(t *testing.T) {
	tests := []struct {
		name string
		v    Violation
		want string
	}{
		{
			name: "message only",
			v:    Violation{Message: "Document has no root element"},
			want: "Document has no root element",
		},
		{
			name: "full detail",
			v: Violation{
				Code:      "cvc-enumeration-valid",
				Message:   "value not in enumeration",
				Path:      "/plan/step[2]",
				Attribute: "kind",
				Expected:  []string{"a", "b"},
				Actual:    "c",
			},
			want: `cvc-enumeration-valid: value not in enumeration (path /plan/step[2]; attribute kind; expected a, b; actual "c")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
