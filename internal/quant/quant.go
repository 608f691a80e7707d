// Package quant contains the in-memory quantification model that is
// written to and read from qcML reports.
package quant

import (
	"sort"
	"strconv"
	"strings"
)

// MSQuantifications holds a complete quantification result: the analysis
// summary, the processing that produced it, the assays (channels) and the
// consensus maps with their features and ratios.
type MSQuantifications struct {
	Summary        AnalysisSummary  `json:"summary"`
	DataProcessing []DataProcessing `json:"data_processing,omitempty"`
	Assays         []Assay          `json:"assays,omitempty"`
	ConsensusMaps  []ConsensusMap   `json:"consensus_maps,omitempty"`
}

// AnalysisSummary carries the document wide quantitation type
type AnalysisSummary struct {
	QuantType  QuantType `json:"quant_type"`
	UserParams MetaInfo  `json:"user_params,omitempty"`
}

// CVTerm is a controlled vocabulary annotation. An empty Value means
// the term carries no value.
type CVTerm struct {
	Accession string `json:"accession"`
	Name      string `json:"name"`
	CVRef     string `json:"cv_ref,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Software that performed a data processing step
type Software struct {
	Name    string   `json:"name"`
	Version string   `json:"version,omitempty"`
	CVTerms []CVTerm `json:"cv_terms,omitempty"`
	Meta    MetaInfo `json:"meta,omitempty"`
}

// SortedCVTerms returns the CV terms ordered by accession. Terms with
// the same accession keep their relative order.
func (s *Software) SortedCVTerms() []CVTerm {
	terms := make([]CVTerm, len(s.CVTerms))
	copy(terms, s.CVTerms)
	sort.SliceStable(terms, func(i, j int) bool {
		return terms[i].Accession < terms[j].Accession
	})
	return terms
}

// DataProcessing is one step in the processing chain. Order is the
// 1-based position of the step, as written in the report.
type DataProcessing struct {
	Software Software  `json:"software"`
	Actions  ActionSet `json:"actions,omitempty"`
	Meta     MetaInfo  `json:"meta,omitempty"`
	Order    int       `json:"order,omitempty"`
}

// LabelMod is a label modification of an assay, e.g. a SILAC heavy
// label ("Lys8", 8.014) or an iTRAQ reporter ("114", 114).
type LabelMod struct {
	Name      string  `json:"name"`
	MassDelta float64 `json:"mass_delta"`
}

// RawFile is an MS data file that an assay was measured in
type RawFile struct {
	Path string `json:"path"`
}

// Assay is one labeled measurement channel. A zero UID means the writer
// allocates one.
type Assay struct {
	UID      uint64     `json:"uid,omitempty"`
	Mods     []LabelMod `json:"mods,omitempty"`
	RawFiles []RawFile  `json:"raw_files,omitempty"`
}

// FeatureHandle references a single-run feature that is part of a
// consensus feature
type FeatureHandle struct {
	MapIndex  uint64  `json:"map_index"`
	UniqueID  uint64  `json:"unique_id"`
	RT        float64 `json:"rt"`
	MZ        float64 `json:"mz"`
	Charge    int     `json:"charge"`
	Intensity float64 `json:"intensity"`
	Width     float64 `json:"width"`
}

// Ratio of two data layers. NumeratorRef and DenominatorRef identify the
// assays (without reference prefix).
type Ratio struct {
	NumeratorRef   string   `json:"numerator_ref"`
	DenominatorRef string   `json:"denominator_ref"`
	Value          float64  `json:"value"`
	Description    []string `json:"description,omitempty"`
}

// Key is the deduplication key of a ratio
func (r *Ratio) Key() string {
	return r.NumeratorRef + r.DenominatorRef
}

// PeptideHit is a single peptide sequence match
type PeptideHit struct {
	Sequence string `json:"sequence"`
}

// UnmodifiedSequence strips modification annotations such as
// "(Oxidation)", "[+16.0]" or ".(Acetyl)" from the sequence, leaving
// only the amino acid letters.
func (h *PeptideHit) UnmodifiedSequence() string {
	var b strings.Builder
	depth := 0
	for _, r := range h.Sequence {
		switch {
		case r == '(' || r == '[' || r == '{':
			depth++
		case r == ')' || r == ']' || r == '}':
			if depth > 0 {
				depth--
			}
		case depth == 0 && r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PeptideIdentification groups the hits for one identification run
type PeptideIdentification struct {
	Identifier string       `json:"identifier"`
	Hits       []PeptideHit `json:"hits,omitempty"`
}

// SearchParameters of a protein identification run
type SearchParameters struct {
	DB        string `json:"db,omitempty"`
	DBVersion string `json:"db_version,omitempty"`
}

// ProteinIdentification describes a protein identification run
type ProteinIdentification struct {
	Identifier       string           `json:"identifier"`
	SearchParameters SearchParameters `json:"search_parameters"`
}

// ConsensusFeature groups features of several maps (runs/channels)
// that were aligned onto each other
type ConsensusFeature struct {
	RT         float64                 `json:"rt"`
	MZ         float64                 `json:"mz"`
	Charge     int                     `json:"charge"`
	Handles    []FeatureHandle         `json:"handles,omitempty"`
	Ratios     []Ratio                 `json:"ratios,omitempty"`
	PeptideIDs []PeptideIdentification `json:"peptide_ids,omitempty"`
}

// SortedHandles returns the feature handles ordered by map index and
// unique id.
func (c *ConsensusFeature) SortedHandles() []FeatureHandle {
	h := make([]FeatureHandle, len(c.Handles))
	copy(h, c.Handles)
	sort.SliceStable(h, func(i, j int) bool {
		if h[i].MapIndex != h[j].MapIndex {
			return h[i].MapIndex < h[j].MapIndex
		}
		return h[i].UniqueID < h[j].UniqueID
	})
	return h
}

// ConsensusMap is a collection of consensus features
type ConsensusMap struct {
	Features   []ConsensusFeature      `json:"features,omitempty"`
	ProteinIDs []ProteinIdentification `json:"protein_ids,omitempty"`
}

// ValueKind is the type of a MetaValue
type ValueKind int

const (
	KindText ValueKind = iota
	KindInt
	KindFloat
)

// MetaValue is a typed user parameter value
type MetaValue struct {
	Kind  ValueKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Int   int64     `json:"int,omitempty"`
	Float float64   `json:"float,omitempty"`
}

// TextValue returns a string MetaValue
func TextValue(s string) MetaValue { return MetaValue{Kind: KindText, Text: s} }

// IntValue returns an integer MetaValue
func IntValue(i int64) MetaValue { return MetaValue{Kind: KindInt, Int: i} }

// FloatValue returns a floating point MetaValue
func FloatValue(f float64) MetaValue { return MetaValue{Kind: KindFloat, Float: f} }

func (v MetaValue) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	}
	return v.Text
}

// XSDType returns the XML schema type name that matches the kind
func (v MetaValue) XSDType() string {
	switch v.Kind {
	case KindInt:
		return "xsd:integer"
	case KindFloat:
		return "xsd:double"
	}
	return "xsd:string"
}

// MetaInfo holds named user parameters
type MetaInfo map[string]MetaValue

// Keys returns the parameter names in lexical order
func (m MetaInfo) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores a value, allocating the map when needed
func (m *MetaInfo) Set(name string, v MetaValue) {
	if *m == nil {
		*m = make(MetaInfo)
	}
	(*m)[name] = v
}
