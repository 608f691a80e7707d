package ontology

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LoadOBO reads the [Term] stanzas of an OBO file. Only the tags needed
// for validating CV annotations are kept: id, name, is_obsolete and the
// value-type xref.
//
// Example stanza (psi-ms.obo):
//
//	[Term]
//	id: MS:1000016
//	name: scan start time
//	xref: value-type:xsd\:float "The allowed value-type for this CV term."
//	is_a: MS:1000503 ! scan attribute
func LoadOBO(r io.Reader) ([]Term, error) {
	var terms []Term
	var cur *Term
	inTerm := false
	lineNr := 0

	flush := func() error {
		if cur == nil {
			return nil
		}
		if cur.ID == "" {
			return fmt.Errorf("%w (before line %d)", ErrMalformedStanza, lineNr)
		}
		terms = append(terms, *cur)
		cur = nil
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lineNr++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			if err := flush(); err != nil {
				return nil, err
			}
			inTerm = line == "[Term]"
			if inTerm {
				cur = &Term{}
			}
			continue
		}
		if !inTerm {
			continue
		}
		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch tag {
		case "id":
			cur.ID = stripComment(value)
		case "name":
			cur.Name = value
		case "is_obsolete":
			cur.Obsolete = stripComment(value) == "true"
		case "xref":
			if vt, ok := parseValueTypeXref(value); ok {
				cur.ValueType = vt
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, ErrNoTerms
	}
	return terms, nil
}

// LoadOBOStore reads an OBO file into a new MemStore
func LoadOBOStore(r io.Reader) (*MemStore, error) {
	terms, err := LoadOBO(r)
	if err != nil {
		return nil, err
	}
	return NewMemStore(terms...), nil
}

// stripComment removes a trailing "! comment" and modifiers
func stripComment(s string) string {
	if i := strings.Index(s, " !"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, " {"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// parseValueTypeXref handles xrefs of the form
// value-type:xsd\:integer "The allowed value-type for this CV term."
func parseValueTypeXref(xref string) (ValueType, bool) {
	const prefix = "value-type:"
	if !strings.HasPrefix(xref, prefix) {
		return ValueNone, false
	}
	v := xref[len(prefix):]
	if i := strings.IndexAny(v, " \t\""); i >= 0 {
		v = v[:i]
	}
	v = strings.ReplaceAll(v, `\:`, ":")
	return ParseValueType(v)
}
