package cv

import (
	"strconv"
	"strings"
	"time"

	"github.com/524D/qcml/internal/ontology"
)

// Terms with an accession starting with one of these prefixes may carry
// a value even when the ontology declares no value type.
var valueExemptPrefixes = []string{"PATO:"}

// Accepted layouts for xsd:date values
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// Validator checks CV annotations against an ontology snapshot. It never
// changes the ontology or the model, so one Validator can be shared.
type Validator struct {
	store ontology.Store
}

// New returns a validator that looks terms up in store
func New(store ontology.Store) *Validator {
	return &Validator{store: store}
}

// Validate checks a single CV annotation found inside parentTag. It
// returns the warnings for the term and whether the annotation should
// still be routed into the model.
func (v *Validator) Validate(accession, parentTag, name, value string) ([]Warning, bool) {
	term, ok := v.store.Term(accession)
	if !ok {
		// Samples are commonly annotated with terms of external CVs
		if parentTag == "sample" {
			return nil, true
		}
		return []Warning{{Code: UnknownTerm, Accession: accession, Name: name, Tag: parentTag}}, false
	}

	var ws []Warning
	warn := func(c Code, expected string) {
		ws = append(ws, Warning{Code: c, Accession: accession, Name: name, Tag: parentTag,
			Value: value, Expected: expected})
	}

	if term.Obsolete {
		warn(ObsoleteTerm, "")
	}
	if strings.TrimSpace(term.Name) != strings.TrimSpace(name) {
		warn(NameMismatch, strings.TrimSpace(term.Name))
	}

	if value == "" {
		if term.ValueType != ontology.ValueNone && term.ValueType != ontology.ValueString {
			warn(MissingValue, term.ValueType.String())
			return ws, false
		}
		return ws, true
	}

	vt := term.ValueType
	switch {
	case vt == ontology.ValueNone:
		if !hasExemptPrefix(accession) {
			warn(UnexpectedValue, "")
		}
	case vt == ontology.ValueString:
	case vt.IsInteger():
		if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
			warn(TypeMismatch, "integer")
			return ws, false
		}
	case vt == ontology.ValueDecimal:
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			warn(TypeMismatch, "decimal")
			return ws, false
		}
	case vt == ontology.ValueDate:
		if !isDate(value) {
			warn(TypeMismatch, "date")
			return ws, false
		}
	default:
		warn(TypeMismatch, vt.String())
	}
	return ws, true
}

func hasExemptPrefix(accession string) bool {
	for _, p := range valueExemptPrefixes {
		if strings.HasPrefix(accession, p) {
			return true
		}
	}
	return false
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
