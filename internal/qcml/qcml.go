// Package qcml reads and writes quantification reports in the qcML
// dialect. The writer assembles the document from a
// quant.MSQuantifications, synthesizing cross references between its
// sections. The reader walks the document, validates every CV annotation
// and routes annotations into the model by their element context.
package qcml

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/524D/qcml/internal/uid"
)

var (
	// ErrNoOntology means no ontology store was given to the reader
	ErrNoOntology = errors.New("qcml: no ontology to validate CV terms against")
	// ErrInvalidQuantType means the document or model carries a
	// quantitation type that is not recognized
	ErrInvalidQuantType = errors.New("qcml: invalid quantitation type")
	// ErrNilModel means Write was called without a model
	ErrNilModel = errors.New("qcml: no quantification model to write")
	// ErrUnknownPolicy means a policy name is not recognized
	ErrUnknownPolicy = errors.New("qcml: unknown policy")
)

// RatioFill selects how the ratio quant layer handles consensus features
// that lack a ratio for some column
type RatioFill int

const (
	// FillOmit writes only the ratios a feature has, packed in column
	// key order
	FillOmit RatioFill = iota
	// FillSentinel writes a sentinel value in the column of each
	// absent ratio
	FillSentinel
)

// DefaultRatioSentinel is written for absent ratios with FillSentinel
const DefaultRatioSentinel = "-1"

// ParseRatioFill maps "omit" or "sentinel" onto a RatioFill
func ParseRatioFill(s string) (RatioFill, error) {
	switch s {
	case "", "omit":
		return FillOmit, nil
	case "sentinel":
		return FillSentinel, nil
	}
	return FillOmit, fmt.Errorf("%w: ratio fill %q", ErrUnknownPolicy, s)
}

func (f RatioFill) String() string {
	if f == FillSentinel {
		return "sentinel"
	}
	return "omit"
}

// ActionPolicy selects what the reader does with processing action
// names it does not know
type ActionPolicy int

const (
	// DropUnknownActions ignores unknown action names
	DropUnknownActions ActionPolicy = iota
	// RecordUnknownActions stores them as quant.ActionUnknown
	RecordUnknownActions
)

// ParseActionPolicy maps "drop" or "record" onto an ActionPolicy
func ParseActionPolicy(s string) (ActionPolicy, error) {
	switch s {
	case "", "drop":
		return DropUnknownActions, nil
	case "record":
		return RecordUnknownActions, nil
	}
	return DropUnknownActions, fmt.Errorf("%w: unknown action policy %q", ErrUnknownPolicy, s)
}

func (p ActionPolicy) String() string {
	if p == RecordUnknownActions {
		return "record"
	}
	return "drop"
}

// CV list identifiers
const (
	cvPSIMS  = "PSI-MS"
	cvPSIMOD = "PSI-MOD"
	cvUO     = "UO"
)

// cvRefFor returns the CV list id for an accession
func cvRefFor(accession string) string {
	switch {
	case strings.HasPrefix(accession, "MOD:"):
		return cvPSIMOD
	case strings.HasPrefix(accession, "UO:"):
		return cvUO
	}
	return cvPSIMS
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// assayRef returns the reference for an assay identifier given without
// prefix, as used by ratios
func assayRef(id string) uid.Ref {
	return uid.Ref(string(uid.Assay) + id)
}

// stripPrefix removes p from ref, if present
func stripPrefix(ref string, p uid.Prefix) string {
	return strings.TrimPrefix(ref, string(p))
}
