// Package cv validates controlled vocabulary annotations against an
// ontology and defines the warnings raised while reading and writing
// qcML reports.
package cv

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Code classifies a warning
type Code string

const (
	// UnknownTerm means the accession is not in the ontology
	UnknownTerm Code = "UnknownTerm"
	// ObsoleteTerm means the ontology marks the term as obsolete
	ObsoleteTerm Code = "ObsoleteTerm"
	// NameMismatch means the declared name differs from the ontology name
	NameMismatch Code = "NameMismatch"
	// TypeMismatch means the value does not parse as the declared type
	TypeMismatch Code = "TypeMismatch"
	// MissingValue means the term requires a value but none was given
	MissingValue Code = "MissingValue"
	// UnexpectedValue means a value was given for a term that takes none
	UnexpectedValue Code = "UnexpectedValue"
	// UnhandledAnnotation means no routing rule matches the element context
	UnhandledAnnotation Code = "UnhandledAnnotation"
	// NoGrandparent means a user parameter appeared without two levels
	// of enclosing elements
	NoGrandparent Code = "NoGrandparent"
	// DroppedIntensity means a feature intensity could not be placed in
	// the quant layer because its map index has no assay
	DroppedIntensity Code = "DroppedIntensity"
)

// Warning is a single non-fatal finding. It implements error so it can
// be returned or wrapped where convenient.
type Warning struct {
	Code      Code   `json:"code"`
	Accession string `json:"accession,omitempty"`
	Name      string `json:"name,omitempty"`
	Tag       string `json:"tag,omitempty"`
	Value     string `json:"value,omitempty"`
	// Expected holds the expected name or value type
	Expected string `json:"expected,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

func (w Warning) Error() string {
	var b strings.Builder
	b.WriteString(string(w.Code))
	if w.Accession != "" {
		fmt.Fprintf(&b, " %s", w.Accession)
	}
	if w.Name != "" {
		fmt.Fprintf(&b, " %q", w.Name)
	}
	if w.Tag != "" {
		fmt.Fprintf(&b, " in <%s>", w.Tag)
	}
	if w.Value != "" {
		fmt.Fprintf(&b, " value %q", w.Value)
	}
	if w.Expected != "" {
		fmt.Fprintf(&b, ", expected %s", w.Expected)
	}
	if w.Detail != "" {
		fmt.Fprintf(&b, ": %s", w.Detail)
	}
	return b.String()
}

// Fields returns structured log fields for the warning
func (w Warning) Fields() []zap.Field {
	fields := []zap.Field{zap.String("code", string(w.Code))}
	add := func(key, val string) {
		if val != "" {
			fields = append(fields, zap.String(key, val))
		}
	}
	add("accession", w.Accession)
	add("name", w.Name)
	add("tag", w.Tag)
	add("value", w.Value)
	add("expected", w.Expected)
	add("detail", w.Detail)
	return fields
}

// Sink logs warnings and keeps them for later inspection. A sink belongs
// to one read or write and is not safe for concurrent use.
type Sink struct {
	log      *zap.Logger
	warnings []Warning
}

// NewSink returns a sink that logs to log. A nil logger discards the
// log output, warnings are still collected.
func NewSink(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{log: log}
}

// Warn records the given warnings
func (s *Sink) Warn(ws ...Warning) {
	if len(ws) == 0 {
		return
	}
	for _, w := range ws {
		s.log.Warn(w.Error(), w.Fields()...)
		s.warnings = append(s.warnings, w)
	}
}

// Warnings returns a copy of the collected warnings
func (s *Sink) Warnings() []Warning {
	out := make([]Warning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Count returns the number of collected warnings with the given code
func (s *Sink) Count(code Code) int {
	n := 0
	for _, w := range s.warnings {
		if w.Code == code {
			n++
		}
	}
	return n
}
