package qcml

import (
	"encoding/xml"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/ontology"
	"github.com/524D/qcml/internal/quant"
	"github.com/524D/qcml/internal/uid"
)

// ReaderOptions configures Read and NewSession
type ReaderOptions struct {
	// Ontology to validate CV annotations against. Required.
	Ontology       ontology.Store
	UnknownActions ActionPolicy
	// RatioSentinel marks absent ratios in ratio quant layers. Empty
	// means every value is taken as a ratio.
	RatioSentinel string
	Logger        *zap.Logger
}

type frame struct {
	name string
	id   string
}

type stepAcc struct {
	softwareRef string
	order       int
	actions     quant.ActionSet
}

type assayAcc struct {
	id       string
	groupRef string
	mods     []quant.LabelMod
}

type consensusAcc struct {
	id          string
	charge      int
	featureRefs []string
	idRefs      []string
	sequence    string
}

// Session holds the state of a single parse: the stack of open elements
// and the accumulators of the entities under construction, keyed by the
// id of their element. A Session must not be reused.
type Session struct {
	opts      ReaderOptions
	log       *zap.Logger
	validator *cv.Validator
	sink      *cv.Sink
	msq       *quant.MSQuantifications

	stack        []frame
	text         strings.Builder
	quantTypeSet bool

	software map[string]*quant.Software
	step     *stepAcc
	groups   map[string][]quant.RawFile
	groupRef string
	assay    *assayAcc
	ratios   map[string]*quant.Ratio

	features     map[string]*quant.FeatureHandle
	featureOrder []string

	layer     string
	colIndex  int
	colTypes  []string
	columns   []string
	rowRef    string
	ms2Rows   map[string][]float64
	ratioRows map[string][]quant.Ratio

	lists     [][]*consensusAcc
	consensus *consensusAcc

	idFile    string
	dbVersion string
	hasDB     bool
}

// NewSession returns a session for one document
func NewSession(opts ReaderOptions) (*Session, error) {
	if opts.Ontology == nil {
		return nil, ErrNoOntology
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		opts:      opts,
		log:       log,
		validator: cv.New(opts.Ontology),
		sink:      cv.NewSink(log),
		msq: &quant.MSQuantifications{
			Summary: quant.AnalysisSummary{QuantType: quant.QuantUnset},
		},
		software:  make(map[string]*quant.Software),
		groups:    make(map[string][]quant.RawFile),
		ratios:    make(map[string]*quant.Ratio),
		features:  make(map[string]*quant.FeatureHandle),
		ms2Rows:   make(map[string][]float64),
		ratioRows: make(map[string][]quant.Ratio),
	}, nil
}

// Warnings returns the warnings raised so far
func (s *Session) Warnings() []cv.Warning {
	return s.sink.Warnings()
}

// ancestor returns the name of the open element n levels above the
// innermost one, or "" if there is none
func (s *Session) ancestor(n int) string {
	i := len(s.stack) - 1 - n
	if i < 0 {
		return ""
	}
	return s.stack[i].name
}

// currentID returns the id of the innermost open element that has one
func (s *Session) currentID() string {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].id != "" {
			return s.stack[i].id
		}
	}
	return ""
}

func attr(se xml.StartElement, name string) string {
	v, _ := lookupAttr(se, name)
	return v
}

// lookupAttr reports whether the attribute is present, even if empty
func lookupAttr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (s *Session) floatAttr(se xml.StartElement, name string) float64 {
	v := attr(se, name)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Name: name, Tag: se.Name.Local, Value: v, Expected: "decimal"})
	}
	return f
}

func (s *Session) intAttr(se xml.StartElement, name string) int {
	v := attr(se, name)
	if v == "" {
		return 0
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Name: name, Tag: se.Name.Local, Value: v, Expected: "integer"})
	}
	return i
}

// StartElement handles an element start event
func (s *Session) StartElement(se xml.StartElement) {
	name := se.Name.Local
	id := attr(se, "id")
	switch name {
	case "cvParam":
		s.cvParam(s.ancestor(1), s.ancestor(0), attr(se, "accession"), attr(se, "name"), attr(se, "value"))
	case "userParam":
		typ := attr(se, "type")
		if typ == "" {
			typ = attr(se, "unitName")
		}
		value, hasValue := lookupAttr(se, "value")
		s.userParam(s.ancestor(1), s.ancestor(0), attr(se, "name"), typ, value, hasValue)
	case "Software":
		if id == "" {
			s.sink.Warn(cv.Warning{Code: cv.UnhandledAnnotation, Tag: name,
				Detail: "software without id cannot be referenced"})
		}
		s.software[id] = &quant.Software{Version: attr(se, "version")}
	case "DataProcessing":
		s.step = &stepAcc{softwareRef: attr(se, "software_ref"), order: s.intAttr(se, "order")}
	case "RawFilesGroup":
		s.groupRef = id
		if _, ok := s.groups[id]; !ok {
			s.groups[id] = nil
		}
	case "RawFile":
		s.groups[s.groupRef] = append(s.groups[s.groupRef], quant.RawFile{Path: attr(se, "location")})
	case "IdentificationFile":
		s.idFile = attr(se, "location")
	case "SearchDatabase":
		s.dbVersion = attr(se, "location")
		s.hasDB = true
	case "Assay":
		s.assay = &assayAcc{id: id, groupRef: attr(se, "rawFilesGroup_ref")}
	case "Ratio":
		s.ratios[id] = &quant.Ratio{
			NumeratorRef:   stripPrefix(attr(se, "numerator_ref"), uid.Assay),
			DenominatorRef: stripPrefix(attr(se, "denominator_ref"), uid.Assay),
		}
	case "Feature":
		s.features[id] = &quant.FeatureHandle{
			RT:     s.floatAttr(se, "rt"),
			MZ:     s.floatAttr(se, "mz"),
			Charge: s.intAttr(se, "charge"),
		}
		s.featureOrder = append(s.featureOrder, id)
	case "FeatureQuantLayer", "MS2AssayQuantLayer", "RatioQuantLayer":
		s.layer = name
		s.colIndex = 0
		s.colTypes = nil
		s.columns = nil
	case "Column":
		s.colIndex = s.intAttr(se, "index")
	case "Row":
		s.rowRef = attr(se, "object_ref")
	case "PeptideConsensusList":
		s.lists = append(s.lists, nil)
	case "PeptideConsensus":
		s.consensus = &consensusAcc{id: id, charge: s.intAttr(se, "charge")}
	case "EvidenceRef":
		if s.consensus != nil {
			if ref := attr(se, "feature_ref"); ref != "" {
				s.consensus.featureRefs = append(s.consensus.featureRefs, ref)
			}
			if ids := attr(se, "id_refs"); ids != "" {
				s.consensus.idRefs = append(s.consensus.idRefs, strings.Fields(ids)...)
			}
		}
	}
	s.stack = append(s.stack, frame{name: name, id: id})
	s.text.Reset()
}

// CharData handles character data
func (s *Session) CharData(cd []byte) {
	s.text.Write(cd)
}

// EndElement handles an element end event. The text of leaf elements is
// the character data collected since their start.
func (s *Session) EndElement(name string) {
	text := s.text.String()
	switch name {
	case "DataProcessing":
		s.flushStep()
	case "Assay":
		s.flushAssay()
	case "ColumnIndex":
		s.columns = strings.Fields(text)
	case "Row":
		s.flushRow(text)
	case "PeptideSequence":
		if s.consensus != nil {
			s.consensus.sequence = strings.TrimSpace(text)
		}
	case "PeptideConsensus":
		if s.consensus != nil {
			if len(s.lists) == 0 {
				s.lists = append(s.lists, nil)
			}
			last := len(s.lists) - 1
			s.lists[last] = append(s.lists[last], s.consensus)
			s.consensus = nil
		}
	case "FeatureQuantLayer", "MS2AssayQuantLayer", "RatioQuantLayer":
		s.layer = ""
	}
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
	s.text.Reset()
}

func (s *Session) flushStep() {
	if s.step == nil {
		return
	}
	dp := quant.DataProcessing{Actions: s.step.actions, Order: s.step.order}
	if sw, ok := s.software[s.step.softwareRef]; ok {
		dp.Software = *sw
	}
	s.msq.DataProcessing = append(s.msq.DataProcessing, dp)
	s.step = nil
}

func (s *Session) flushAssay() {
	if s.assay == nil {
		return
	}
	a := quant.Assay{Mods: s.assay.mods, RawFiles: s.groups[s.assay.groupRef]}
	if u, err := strconv.ParseUint(stripPrefix(s.assay.id, uid.Assay), 10, 64); err == nil {
		a.UID = u
	}
	s.msq.Assays = append(s.msq.Assays, a)
	s.assay = nil
}

func (s *Session) parseValues(fields []string) []float64 {
	vals := make([]float64, 0, len(fields))
	for _, tok := range fields {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Tag: "Row", Value: tok, Expected: "decimal",
				Detail: "row " + s.rowRef})
		}
		vals = append(vals, v)
	}
	return vals
}

// flushRow applies one data matrix row to the object it references
func (s *Session) flushRow(text string) {
	fields := strings.Fields(text)
	switch s.layer {
	case "FeatureQuantLayer":
		f, ok := s.features[s.rowRef]
		if !ok {
			s.sink.Warn(cv.Warning{Code: cv.UnhandledAnnotation, Tag: "Row", Detail: "unknown feature " + s.rowRef})
			return
		}
		for i, v := range s.parseValues(fields) {
			if i >= len(s.colTypes) {
				break
			}
			switch s.colTypes[i] {
			case termPrecursorInt.accession:
				f.Intensity = v
			case termFWHM.accession:
				f.Width = v
			}
		}
	case "MS2AssayQuantLayer":
		s.ms2Rows[s.rowRef] = s.parseValues(fields)
	case "RatioQuantLayer":
		if len(fields) != len(s.columns) {
			s.log.Debug("ratio row does not cover all columns, values not assigned",
				zap.String("row", s.rowRef), zap.Int("values", len(fields)), zap.Int("columns", len(s.columns)))
			return
		}
		for j, col := range s.columns {
			if s.opts.RatioSentinel != "" && fields[j] == s.opts.RatioSentinel {
				continue
			}
			tmpl, ok := s.ratios[col]
			if !ok {
				continue
			}
			v, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Tag: "Row", Value: fields[j], Expected: "decimal",
					Detail: "row " + s.rowRef})
				continue
			}
			r := *tmpl
			r.Description = append([]string(nil), tmpl.Description...)
			r.Value = v
			s.ratioRows[s.rowRef] = append(s.ratioRows[s.rowRef], r)
		}
	}
}

// consensusFromFeature builds a consensus feature from a single Feature
// element. With an MS2 quant layer row the row values become the handle
// intensities, one handle per assay column.
func (s *Session) consensusFromFeature(ref string) quant.ConsensusFeature {
	f := s.features[ref]
	cf := quant.ConsensusFeature{RT: f.RT, MZ: f.MZ, Charge: f.Charge}
	if vals, ok := s.ms2Rows[ref]; ok {
		for j, v := range vals {
			cf.Handles = append(cf.Handles, quant.FeatureHandle{
				MapIndex: uint64(j), RT: f.RT, MZ: f.MZ, Charge: f.Charge, Intensity: v,
			})
		}
		return cf
	}
	cf.Handles = []quant.FeatureHandle{*f}
	return cf
}

func (s *Session) buildConsensus(ca *consensusAcc, claimed map[string]bool) quant.ConsensusFeature {
	var cf quant.ConsensusFeature
	if s.msq.Summary.QuantType == quant.QuantMS2Label && len(ca.featureRefs) > 0 {
		if _, ok := s.features[ca.featureRefs[0]]; ok {
			cf = s.consensusFromFeature(ca.featureRefs[0])
		}
		for _, ref := range ca.featureRefs {
			claimed[ref] = true
		}
	} else {
		for _, ref := range ca.featureRefs {
			if f, ok := s.features[ref]; ok {
				cf.Handles = append(cf.Handles, *f)
				claimed[ref] = true
			}
		}
	}
	cf.Charge = ca.charge
	cf.Ratios = s.ratioRows[ca.id]
	if len(ca.idRefs) > 0 || ca.sequence != "" {
		var pid quant.PeptideIdentification
		if len(ca.idRefs) > 0 {
			pid.Identifier = ca.idRefs[0]
		}
		if ca.sequence != "" {
			pid.Hits = []quant.PeptideHit{{Sequence: ca.sequence}}
		}
		cf.PeptideIDs = append(cf.PeptideIDs, pid)
	}
	return cf
}

// Finish builds the model from the accumulators. Features that no
// peptide consensus refers to end up in a consensus map of their own,
// except in MS2 reports where they join the first map.
func (s *Session) Finish() (*quant.MSQuantifications, error) {
	claimed := make(map[string]bool)
	for _, list := range s.lists {
		var cm quant.ConsensusMap
		for _, ca := range list {
			cm.Features = append(cm.Features, s.buildConsensus(ca, claimed))
		}
		s.msq.ConsensusMaps = append(s.msq.ConsensusMaps, cm)
	}
	var rest []quant.ConsensusFeature
	for _, ref := range s.featureOrder {
		if !claimed[ref] {
			rest = append(rest, s.consensusFromFeature(ref))
		}
	}
	switch {
	case len(rest) == 0:
	case s.msq.Summary.QuantType == quant.QuantMS2Label && len(s.msq.ConsensusMaps) > 0:
		// MS2 reports describe a single consensus map, unidentified
		// features belong to it too
		s.msq.ConsensusMaps[0].Features = append(s.msq.ConsensusMaps[0].Features, rest...)
	default:
		s.msq.ConsensusMaps = append(s.msq.ConsensusMaps, quant.ConsensusMap{Features: rest})
	}

	if s.hasDB {
		if len(s.msq.ConsensusMaps) == 0 {
			s.msq.ConsensusMaps = append(s.msq.ConsensusMaps, quant.ConsensusMap{})
		}
		s.msq.ConsensusMaps[0].ProteinIDs = append(s.msq.ConsensusMaps[0].ProteinIDs,
			quant.ProteinIdentification{SearchParameters: quant.SearchParameters{DBVersion: s.dbVersion}})
	}
	if s.idFile != "" {
		for i := range s.msq.DataProcessing {
			dp := &s.msq.DataProcessing[i]
			if dp.Software.Name != swIDMapper {
				continue
			}
			if _, ok := dp.Meta[metaIDFile]; !ok {
				dp.Meta.Set(metaIDFile, quant.TextValue(s.idFile))
			}
			break
		}
	}

	if s.msq.Summary.QuantType == quant.QuantInvalid {
		return s.msq, ErrInvalidQuantType
	}
	s.log.Debug("qcML report read",
		zap.Stringer("quant_type", s.msq.Summary.QuantType),
		zap.Int("assays", len(s.msq.Assays)),
		zap.Int("consensus_maps", len(s.msq.ConsensusMaps)),
		zap.Int("warnings", len(s.sink.Warnings())))
	return s.msq, nil
}
