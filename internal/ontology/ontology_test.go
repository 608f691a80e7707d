package ontology

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const testOBO = `format-version: 1.2
default-namespace: MS

[Term]
id: MS:0000000
name: Proteomics Standards Initiative Mass Spectrometry Vocabularies
def: "Proteomics Standards Initiative Mass Spectrometry Vocabularies." [PSI:MS]

[Term]
id: MS:1000016
name: scan start time
xref: value-type:xsd\:float "The allowed value-type for this CV term."
is_a: MS:1000503 ! scan attribute

[Term]
id: MS:1000041 ! with comment
name: charge state
xref: value-type:xsd\:integer "The allowed value-type for this CV term."

[Term]
id: MS:1000747
name: completion time
xref: value-type:xsd\:date "The allowed value-type for this CV term."

[Term]
id: MS:1000001
name: sample number
is_obsolete: true
xref: value-type:xsd\:string "The allowed value-type for this CV term."

[Term]
id: MS:1002222
name: SRM transition attribute
xref: value-type:xsd\:boolean "The allowed value-type for this CV term."

[Typedef]
id: part_of
name: part_of
is_transitive: true
`

func TestLoadOBO(t *testing.T) {
	terms, err := LoadOBO(strings.NewReader(testOBO))
	if err != nil {
		t.Fatalf("LoadOBO: %v", err)
	}
	want := []Term{
		{ID: "MS:0000000", Name: "Proteomics Standards Initiative Mass Spectrometry Vocabularies"},
		{ID: "MS:1000016", Name: "scan start time", ValueType: ValueDecimal},
		{ID: "MS:1000041", Name: "charge state", ValueType: ValueInteger},
		{ID: "MS:1000747", Name: "completion time", ValueType: ValueDate},
		{ID: "MS:1000001", Name: "sample number", Obsolete: true, ValueType: ValueString},
		{ID: "MS:1002222", Name: "SRM transition attribute", ValueType: ValueBoolean},
	}
	if diff := cmp.Diff(want, terms); diff != "" {
		t.Errorf("LoadOBO mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOBOErrors(t *testing.T) {
	_, err := LoadOBO(strings.NewReader("format-version: 1.2\n"))
	if !errors.Is(err, ErrNoTerms) {
		t.Errorf("empty OBO: error %v, want ErrNoTerms", err)
	}
	_, err = LoadOBO(strings.NewReader("[Term]\nname: nameless\n"))
	if !errors.Is(err, ErrMalformedStanza) {
		t.Errorf("stanza without id: error %v, want ErrMalformedStanza", err)
	}
}

func TestValueTypeNames(t *testing.T) {
	for _, name := range []string{"xsd:integer", "xsd:nonNegativeInteger", "xsd:double", "xsd:date", "xsd:anyURI"} {
		vt, ok := ParseValueType(name)
		if !ok {
			t.Errorf("ParseValueType(%q) not recognized", name)
			continue
		}
		if vt == ValueNone {
			t.Errorf("ParseValueType(%q) = none", name)
		}
	}
	if !ValuePositiveInteger.IsInteger() || ValueDecimal.IsInteger() {
		t.Errorf("IsInteger gives wrong answer")
	}
	if ValueBoolean.String() != "xsd:boolean" {
		t.Errorf("String: %q", ValueBoolean.String())
	}
}

func TestMemStore(t *testing.T) {
	s, err := LoadOBOStore(strings.NewReader(testOBO))
	if err != nil {
		t.Fatalf("LoadOBOStore: %v", err)
	}
	if s.Len() != 6 {
		t.Errorf("Len = %d, want 6", s.Len())
	}
	term, ok := s.Term("MS:1000041")
	if !ok || term.Name != "charge state" {
		t.Errorf("Term(MS:1000041) = %+v %v", term, ok)
	}
	if _, ok := s.Term("MS:9999999"); ok {
		t.Errorf("Term(MS:9999999) found")
	}
	if s.Terms()[0].ID != "MS:0000000" {
		t.Errorf("Terms not sorted: %v", s.Terms()[0].ID)
	}
}

func TestSQLiteStore(t *testing.T) {
	terms, err := LoadOBO(strings.NewReader(testOBO))
	if err != nil {
		t.Fatalf("LoadOBO: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cv.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Import(terms); err != nil {
		t.Fatalf("Import: %v", err)
	}
	s.Close()

	// Reopen to check that the cache persists
	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite (reopen): %v", err)
	}
	defer s.Close()
	n, err := s.Len()
	if err != nil || n != len(terms) {
		t.Errorf("Len = %d, %v; want %d", n, err, len(terms))
	}
	for _, want := range terms {
		got, ok := s.Term(want.ID)
		if !ok {
			t.Errorf("Term(%s) not found", want.ID)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Term(%s) mismatch (-want +got):\n%s", want.ID, diff)
		}
	}
	if _, ok := s.Term("MOD:00000"); ok {
		t.Errorf("Term(MOD:00000) found")
	}
}
