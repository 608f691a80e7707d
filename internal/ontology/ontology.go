// Package ontology holds controlled vocabulary terms and the stores that
// look them up by accession.
package ontology

import (
	"errors"
	"sort"
)

// ValueType is the declared type of the value a CV term may carry
type ValueType int

const (
	ValueNone ValueType = iota
	ValueString
	ValueInteger
	ValueNegativeInteger
	ValuePositiveInteger
	ValueNonNegativeInteger
	ValueNonPositiveInteger
	ValueDecimal
	ValueDate
	ValueBoolean
	ValueAnyURI
)

var valueTypeNames = [...]string{
	ValueNone:               "none",
	ValueString:             "xsd:string",
	ValueInteger:            "xsd:integer",
	ValueNegativeInteger:    "xsd:negativeInteger",
	ValuePositiveInteger:    "xsd:positiveInteger",
	ValueNonNegativeInteger: "xsd:nonNegativeInteger",
	ValueNonPositiveInteger: "xsd:nonPositiveInteger",
	ValueDecimal:            "xsd:decimal",
	ValueDate:               "xsd:date",
	ValueBoolean:            "xsd:boolean",
	ValueAnyURI:             "xsd:anyURI",
}

// Several XSD names collapse onto one value type
var xsdValueTypes = map[string]ValueType{
	"xsd:string":             ValueString,
	"xsd:integer":            ValueInteger,
	"xsd:int":                ValueInteger,
	"xsd:negativeInteger":    ValueNegativeInteger,
	"xsd:positiveInteger":    ValuePositiveInteger,
	"xsd:nonNegativeInteger": ValueNonNegativeInteger,
	"xsd:nonPositiveInteger": ValueNonPositiveInteger,
	"xsd:decimal":            ValueDecimal,
	"xsd:float":              ValueDecimal,
	"xsd:double":             ValueDecimal,
	"xsd:date":               ValueDate,
	"xsd:dateTime":           ValueDate,
	"xsd:boolean":            ValueBoolean,
	"xsd:anyURI":             ValueAnyURI,
}

func (v ValueType) String() string {
	if v >= 0 && int(v) < len(valueTypeNames) {
		return valueTypeNames[v]
	}
	return "unknown"
}

// IsInteger reports whether v belongs to the integer family
func (v ValueType) IsInteger() bool {
	switch v {
	case ValueInteger, ValueNegativeInteger, ValuePositiveInteger,
		ValueNonNegativeInteger, ValueNonPositiveInteger:
		return true
	}
	return false
}

// ParseValueType maps an XSD type name onto a ValueType
func ParseValueType(xsd string) (ValueType, bool) {
	v, ok := xsdValueTypes[xsd]
	return v, ok
}

// Term is a single CV term
type Term struct {
	ID        string
	Name      string
	Obsolete  bool
	ValueType ValueType
}

// Store looks up CV terms by accession
type Store interface {
	Term(accession string) (Term, bool)
}

var (
	// ErrNoTerms means an ontology source did not contain any term
	ErrNoTerms = errors.New("ontology: no terms found")
	// ErrMalformedStanza means a term stanza lacks its id
	ErrMalformedStanza = errors.New("ontology: term stanza without id")
)

// MemStore is a map backed Store
type MemStore struct {
	terms map[string]Term
}

// NewMemStore returns a store holding the given terms
func NewMemStore(terms ...Term) *MemStore {
	s := &MemStore{terms: make(map[string]Term, len(terms))}
	for _, t := range terms {
		s.Add(t)
	}
	return s
}

// Add inserts or replaces a term
func (s *MemStore) Add(t Term) {
	s.terms[t.ID] = t
}

// Term implements Store
func (s *MemStore) Term(accession string) (Term, bool) {
	t, ok := s.terms[accession]
	return t, ok
}

// Len returns the number of terms
func (s *MemStore) Len() int {
	return len(s.terms)
}

// Terms returns all terms ordered by accession
func (s *MemStore) Terms() []Term {
	terms := make([]Term, 0, len(s.terms))
	for _, t := range s.terms {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
	return terms
}
