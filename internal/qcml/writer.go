package qcml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/quant"
	"github.com/524D/qcml/internal/uid"
)

// WriterOptions configures a Writer
type WriterOptions struct {
	RatioFill RatioFill
	// RatioSentinel is written for absent ratios with FillSentinel.
	// Empty means DefaultRatioSentinel.
	RatioSentinel string
	// IDSource provides the numeric part of generated references. Nil
	// uses the process-wide generator.
	IDSource uid.Source
	Logger   *zap.Logger
}

// Writer serializes quantification models as qcML reports
type Writer struct {
	opts  WriterOptions
	alloc *uid.Allocator
	log   *zap.Logger
	sink  *cv.Sink
}

// NewWriter returns a Writer
func NewWriter(opts WriterOptions) *Writer {
	if opts.RatioSentinel == "" {
		opts.RatioSentinel = DefaultRatioSentinel
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{
		opts:  opts,
		alloc: uid.NewAllocator(opts.IDSource),
		log:   log,
		sink:  cv.NewSink(log),
	}
}

// Warnings returns the warnings raised by Write so far
func (w *Writer) Warnings() []cv.Warning {
	return w.sink.Warnings()
}

// Write writes msq as a qcML document to out. The document is encoded as
// ISO-8859-1; characters outside that set become character references.
func (w *Writer) Write(out io.Writer, msq *quant.MSQuantifications) error {
	if msq == nil {
		return ErrNilModel
	}
	// The quantitation type is read once, all sections branch on qt
	qt := msq.Summary.QuantType
	if !qt.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidQuantType, int(qt))
	}
	e := &emission{w: w, msq: msq, qt: qt, alloc: w.alloc}
	doc := e.document()

	enc := encoding.HTMLEscapeUnsupported(charmap.ISO8859_1.NewEncoder())
	b, err := enc.Bytes(doc)
	if err != nil {
		return fmt.Errorf("qcml: encode report: %w", err)
	}
	if _, err := out.Write(b); err != nil {
		return fmt.Errorf("qcml: write report: %w", err)
	}
	w.log.Debug("qcML report written",
		zap.Stringer("quant_type", qt),
		zap.Int("assays", len(msq.Assays)),
		zap.Int("consensus_maps", len(msq.ConsensusMaps)),
		zap.Int("ratios", len(e.ratioKeys)),
		zap.Int("bytes", len(b)))
	return nil
}

type rawFileRef struct {
	ref  uid.Ref
	path string
}

type rawFileGroup struct {
	ref   uid.Ref
	files []rawFileRef
}

// consensusRefs holds the references allocated for one consensus
// feature in the feature pass, for use in the peptide pass
type consensusRefs struct {
	feature *quant.ConsensusFeature
	// MS1: peptide consensus ref and one feature ref per handle
	ref        uid.Ref
	handles    []quant.FeatureHandle
	handleRefs []uid.Ref
	// MS2: one feature ref for the whole consensus feature
	featureRef uid.Ref
}

type ms1Row struct {
	ref              uid.Ref
	intensity, width float64
}

type ms2Row struct {
	ref    uid.Ref
	values []float64
}

// emission is the state of a single Write call
type emission struct {
	w     *Writer
	msq   *quant.MSQuantifications
	qt    quant.QuantType
	alloc *uid.Allocator

	summary        bytes.Buffer
	inputFiles     bytes.Buffer
	idFiles        bytes.Buffer
	software       bytes.Buffer
	dataProcessing bytes.Buffer
	assays         bytes.Buffer
	studyVars      bytes.Buffer
	ratios         bytes.Buffer
	peptides       bytes.Buffer
	features       bytes.Buffer

	idFileRef   uid.Ref
	searchDBRef uid.Ref

	ratioKeys []string
	ratioRefs map[string]uid.Ref
	ratioTmpl map[string]quant.Ratio

	assayRefs []uid.Ref
	groups    []*rawFileGroup
	lastGroup uid.Ref

	maps [][]consensusRefs
	ms1  []ms1Row
	ms2  []ms2Row
}

// document runs the passes in dependency order and joins the sections in
// document order
func (e *emission) document() []byte {
	e.writeSummary()
	e.writeProcessing()
	e.writeRatios()
	e.writeAssays()
	e.writeFeatures()
	e.writePeptides()

	var doc bytes.Buffer
	doc.WriteString(docHeader)
	doc.WriteString(docStylesheet)
	doc.WriteString(docCvList)
	for _, section := range []*bytes.Buffer{
		&e.summary,
		&e.inputFiles,
		&e.software,
		&e.dataProcessing,
		&e.assays,
		&e.studyVars,
		&e.ratios,
		&e.peptides,
		&e.features,
	} {
		doc.Write(section.Bytes())
	}
	doc.WriteString(docFooter)
	return doc.Bytes()
}

func (e *emission) writeSummary() {
	b := &e.summary
	b.WriteString("\t<AnalysisSummary>\n")
	switch e.qt {
	case quant.QuantMS1Label, quant.QuantMS2Label:
		for _, p := range summaryTerms[e.qt] {
			writeCV(b, 2, p)
		}
		writeUserParam(b, 2, "QuantType", e.qt.String())
	case quant.QuantLabelFree:
		// No CV terms defined for label-free analysis
		writeUserParam(b, 2, "QuantType", e.qt.String())
	case quant.QuantUnset:
	}
	meta := make(quant.MetaInfo, len(e.msq.Summary.UserParams))
	for k, v := range e.msq.Summary.UserParams {
		if k != "QuantType" {
			meta[k] = v
		}
	}
	writeUserParams(b, 2, meta)
	b.WriteString("\t</AnalysisSummary>\n")
}

func (e *emission) hasProteinIDs() bool {
	return len(e.msq.ConsensusMaps) > 0 && len(e.msq.ConsensusMaps[0].ProteinIDs) > 0
}

func (e *emission) writeProcessing() {
	sw, dp := &e.software, &e.dataProcessing
	sw.WriteString("\t<SoftwareList>\n")
	dp.WriteString("\t<DataProcessingList>\n")
	for i := range e.msq.DataProcessing {
		step := &e.msq.DataProcessing[i]
		if step.Software.Name == swIDMapper && e.idFileRef == "" && e.hasProteinIDs() {
			e.writeIdentificationFiles(step)
		}

		swRef := e.alloc.Allocate(uid.Software)
		fmt.Fprintf(sw, "\t\t<Software id=\"%s\" version=\"%s\">\n", swRef, esc(step.Software.Version))
		terms := step.Software.SortedCVTerms()
		for _, t := range terms {
			writeCVTerm(sw, 3, t)
		}
		if len(terms) == 0 && step.Software.Name != "" {
			writeUserParam(sw, 3, step.Software.Name, "")
		}
		if step.Software.Name == swITRAQAnalyzer {
			writeCV(sw, 3, termITRAQAnalyzer)
		}
		writeUserParams(sw, 3, step.Software.Meta)
		sw.WriteString("\t\t</Software>\n")

		fmt.Fprintf(dp, "\t\t<DataProcessing id=\"%s\" software_ref=\"%s\" order=\"%d\">\n",
			e.alloc.Allocate(uid.DataProcessing), swRef, i+1)
		for j, a := range step.Actions.Sorted() {
			fmt.Fprintf(dp, "\t\t\t<ProcessingMethod order=\"%d\">\n", j+1)
			writeUserParam(dp, 4, a.String(), step.Software.Name)
			dp.WriteString("\t\t\t</ProcessingMethod>\n")
		}
		dp.WriteString("\t\t</DataProcessing>\n")
	}
	dp.WriteString("\t</DataProcessingList>\n")
	sw.WriteString("\t</SoftwareList>\n")
}

// writeIdentificationFiles emits the identification file and search
// database that the identification mapping step used
func (e *emission) writeIdentificationFiles(step *quant.DataProcessing) {
	e.searchDBRef = e.alloc.Allocate(uid.SearchDatabase)
	e.idFileRef = e.alloc.Allocate(uid.IdentificationFile)
	name := ""
	if v, ok := step.Meta[metaIDFile]; ok {
		name = v.String()
	}
	dbVersion := e.msq.ConsensusMaps[0].ProteinIDs[0].SearchParameters.DBVersion

	b := &e.idFiles
	b.WriteString("\t\t<IdentificationFiles>\n")
	fmt.Fprintf(b, "\t\t\t<IdentificationFile id=\"%s\" name=\"%s\" location=\"%s\" searchDatabase_ref=\"%s\"/>\n",
		e.idFileRef, esc(name), esc(name), e.searchDBRef)
	b.WriteString("\t\t</IdentificationFiles>\n")
	fmt.Fprintf(b, "\t\t<SearchDatabase id=\"%s\" location=\"%s\">\n", e.searchDBRef, esc(dbVersion))
	b.WriteString("\t\t\t<DatabaseName>\n")
	writeUserParam(b, 4, "db_version", dbVersion)
	b.WriteString("\t\t\t</DatabaseName>\n")
	b.WriteString("\t\t</SearchDatabase>\n")
}

func (e *emission) writeRatios() {
	e.ratioRefs = make(map[string]uid.Ref)
	e.ratioTmpl = make(map[string]quant.Ratio)
	switch e.qt {
	case quant.QuantMS1Label:
		e.writeRatioList()
	case quant.QuantMS2Label, quant.QuantLabelFree, quant.QuantUnset:
		// Ratios are only reported for MS1 label-based quantitation
	}
}

func (e *emission) writeRatioList() {
	for mi := range e.msq.ConsensusMaps {
		cm := &e.msq.ConsensusMaps[mi]
		for ci := range cm.Features {
			for _, r := range cm.Features[ci].Ratios {
				k := r.Key()
				if _, ok := e.ratioRefs[k]; ok {
					continue
				}
				e.ratioRefs[k] = e.alloc.Allocate(uid.Ratio)
				e.ratioTmpl[k] = r
				e.ratioKeys = append(e.ratioKeys, k)
			}
		}
	}
	sort.Strings(e.ratioKeys)

	b := &e.ratios
	b.WriteString("\t<RatioList>\n")
	for _, k := range e.ratioKeys {
		r := e.ratioTmpl[k]
		fmt.Fprintf(b, "\t\t<Ratio id=\"%s\" numerator_ref=\"%s\" denominator_ref=\"%s\">\n",
			e.ratioRefs[k], esc(string(assayRef(r.NumeratorRef))), esc(string(assayRef(r.DenominatorRef))))
		b.WriteString("\t\t\t<RatioCalculation>\n")
		for _, d := range r.Description {
			writeUserParam(b, 4, d, "")
		}
		writeCV(b, 4, termSimpleRatio)
		b.WriteString("\t\t\t</RatioCalculation>\n")
		b.WriteString("\t\t\t<NumeratorDataType>\n")
		writeCV(b, 4, termReporterIntens)
		b.WriteString("\t\t\t</NumeratorDataType>\n")
		b.WriteString("\t\t\t<DenominatorDataType>\n")
		writeCV(b, 4, termReporterIntens)
		b.WriteString("\t\t\t</DenominatorDataType>\n")
		b.WriteString("\t\t</Ratio>\n")
	}
	b.WriteString("\t</RatioList>\n")
}

// refForAssay returns the reference of an assay. Assays without UID get
// a fresh one.
func (e *emission) refForAssay(a *quant.Assay) uid.Ref {
	if a.UID == 0 {
		return e.alloc.Allocate(uid.Assay)
	}
	return uid.Format(uid.Assay, a.UID)
}

// groupFor returns the raw-file group of an assay. A group that already
// holds one of the assay's files is reused, otherwise a new group is
// created. Files not seen before are added to the group.
func (e *emission) groupFor(a *quant.Assay, seen map[string]*rawFileGroup) *rawFileGroup {
	var g *rawFileGroup
	for _, f := range a.RawFiles {
		if sg, ok := seen[f.Path]; ok {
			g = sg
			break
		}
	}
	if g == nil {
		g = &rawFileGroup{ref: e.alloc.Allocate(uid.RawFilesGroup)}
		e.groups = append(e.groups, g)
		e.lastGroup = g.ref
	}
	for _, f := range a.RawFiles {
		if _, ok := seen[f.Path]; ok {
			continue
		}
		seen[f.Path] = g
		g.files = append(g.files, rawFileRef{ref: e.alloc.Allocate(uid.RawFile), path: f.Path})
	}
	return g
}

func (e *emission) writeAssays() {
	seen := make(map[string]*rawFileGroup)
	a, v := &e.assays, &e.studyVars
	a.WriteString("\t<AssayList id=\"assaylist1\">\n")
	v.WriteString("\t<StudyVariableList>\n")
	for i := range e.msq.Assays {
		assay := &e.msq.Assays[i]
		ref := e.refForAssay(assay)
		e.assayRefs = append(e.assayRefs, ref)
		g := e.groupFor(assay, seen)

		fmt.Fprintf(a, "\t\t<Assay id=\"%s\" rawFilesGroup_ref=\"%s\">\n", ref, g.ref)
		a.WriteString("\t\t\t<Label>\n")
		e.writeLabel(a, assay)
		a.WriteString("\t\t\t</Label>\n")
		a.WriteString("\t\t</Assay>\n")

		fmt.Fprintf(v, "\t\t<StudyVariable id=\"%s\" name=\"noname\">\n", e.alloc.Allocate(uid.StudyVariable))
		fmt.Fprintf(v, "\t\t\t<Assay_refs>%s</Assay_refs>\n", ref)
		v.WriteString("\t\t</StudyVariable>\n")
	}
	a.WriteString("\t</AssayList>\n")
	v.WriteString("\t</StudyVariableList>\n")

	in := &e.inputFiles
	in.WriteString("\t<InputFiles>\n")
	for _, g := range e.groups {
		fmt.Fprintf(in, "\t\t<RawFilesGroup id=\"%s\">\n", g.ref)
		for _, f := range g.files {
			fmt.Fprintf(in, "\t\t\t<RawFile id=\"%s\" location=\"%s\"/>\n", f.ref, esc(f.path))
		}
		in.WriteString("\t\t</RawFilesGroup>\n")
	}
	in.Write(e.idFiles.Bytes())
	in.WriteString("\t</InputFiles>\n")
}

func (e *emission) writeLabel(b *bytes.Buffer, a *quant.Assay) {
	switch e.qt {
	case quant.QuantMS1Label:
		for _, m := range a.Mods {
			p := ms1LabelTerm(m.MassDelta)
			p.value = m.Name
			fmt.Fprintf(b, "\t\t\t\t<Modification massDelta=\"%s\">\n", formatFloat(m.MassDelta))
			writeCV(b, 5, p)
			b.WriteString("\t\t\t\t</Modification>\n")
		}
	case quant.QuantMS2Label:
		for _, m := range a.Mods {
			p := ms2ReporterTerm(m.MassDelta)
			p.value = m.Name
			fmt.Fprintf(b, "\t\t\t\t<Modification massDelta=\"%s\">\n", itraqTagMass)
			writeCV(b, 5, p)
			b.WriteString("\t\t\t\t</Modification>\n")
		}
	case quant.QuantLabelFree, quant.QuantUnset:
		b.WriteString("\t\t\t\t<Modification massDelta=\"0\">\n")
		fmt.Fprintf(b, "\t\t\t\t\t<cvParam name=\"%s\"/>\n", noLabelName)
		b.WriteString("\t\t\t\t</Modification>\n")
	}
}

func (e *emission) writeFeatures() {
	b := &e.features
	b.WriteString("\t<FeatureList id=\"featurelist1\"")
	if e.lastGroup != "" {
		fmt.Fprintf(b, " rawFilesGroup_ref=\"%s\"", e.lastGroup)
	}
	b.WriteString(">\n")

	e.maps = make([][]consensusRefs, len(e.msq.ConsensusMaps))
	for mi := range e.msq.ConsensusMaps {
		cm := &e.msq.ConsensusMaps[mi]
		for ci := range cm.Features {
			cf := &cm.Features[ci]
			switch e.qt {
			case quant.QuantMS1Label:
				e.maps[mi] = append(e.maps[mi], e.writeMS1Feature(b, cf))
			case quant.QuantMS2Label:
				e.maps[mi] = append(e.maps[mi], e.writeMS2Feature(b, cf))
			case quant.QuantLabelFree, quant.QuantUnset:
			}
		}
	}

	switch e.qt {
	case quant.QuantMS1Label:
		e.writeFeatureQuantLayer(b)
	case quant.QuantMS2Label:
		e.writeAssayQuantLayer(b)
	case quant.QuantLabelFree, quant.QuantUnset:
	}
	b.WriteString("\t</FeatureList>\n")
}

// writeMS1Feature emits one Feature per feature handle
func (e *emission) writeMS1Feature(b *bytes.Buffer, cf *quant.ConsensusFeature) consensusRefs {
	cr := consensusRefs{feature: cf, ref: e.alloc.Allocate(uid.PeptideConsensus)}
	for _, h := range cf.SortedHandles() {
		ref := e.alloc.Allocate(uid.Feature)
		cr.handles = append(cr.handles, h)
		cr.handleRefs = append(cr.handleRefs, ref)
		e.ms1 = append(e.ms1, ms1Row{ref: ref, intensity: h.Intensity, width: h.Width})

		fmt.Fprintf(b, "\t\t<Feature id=\"%s\" rt=\"%s\" mz=\"%s\" charge=\"%d\">\n",
			ref, formatFloat(h.RT), formatFloat(h.MZ), h.Charge)
		writeUserParam(b, 3, "map_index", strconv.FormatUint(h.MapIndex, 10))
		writeUserParam(b, 3, "feature_index", strconv.FormatUint(h.UniqueID, 10))
		b.WriteString("\t\t</Feature>\n")
	}
	return cr
}

// writeMS2Feature emits one Feature per consensus feature and collects
// the reporter intensities of its handles, one column per assay
func (e *emission) writeMS2Feature(b *bytes.Buffer, cf *quant.ConsensusFeature) consensusRefs {
	ref := e.alloc.Allocate(uid.Feature)
	fmt.Fprintf(b, "\t\t<Feature id=\"%s\" rt=\"%s\" mz=\"%s\" charge=\"%d\"/>\n",
		ref, formatFloat(cf.RT), formatFloat(cf.MZ), cf.Charge)

	row := ms2Row{ref: ref, values: make([]float64, len(e.assayRefs))}
	for _, h := range cf.SortedHandles() {
		if h.MapIndex >= uint64(len(row.values)) {
			e.w.sink.Warn(cv.Warning{
				Code:   cv.DroppedIntensity,
				Tag:    "Feature",
				Value:  formatFloat(h.Intensity),
				Detail: fmt.Sprintf("map index %d but only %d assays", h.MapIndex, len(e.assayRefs)),
			})
			continue
		}
		row.values[h.MapIndex] = h.Intensity
	}
	e.ms2 = append(e.ms2, row)
	return consensusRefs{feature: cf, featureRef: ref}
}

func (e *emission) writeFeatureQuantLayer(b *bytes.Buffer) {
	fmt.Fprintf(b, "\t\t<FeatureQuantLayer id=\"%s\">\n", e.alloc.Allocate(uid.QuantLayer))
	b.WriteString("\t\t\t<ColumnDefinition>\n")
	for i, p := range []cvParam{termPrecursorInt, termFWHM} {
		fmt.Fprintf(b, "\t\t\t\t<Column index=\"%d\">\n", i)
		b.WriteString("\t\t\t\t\t<DataType>\n")
		writeCV(b, 6, p)
		b.WriteString("\t\t\t\t\t</DataType>\n")
		b.WriteString("\t\t\t\t</Column>\n")
	}
	b.WriteString("\t\t\t</ColumnDefinition>\n")

	refs := make([]uid.Ref, len(e.ms1))
	for i, r := range e.ms1 {
		refs[i] = r.ref
	}
	dm := newDataMatrix(refs, 2)
	for i, r := range e.ms1 {
		dm.set(i, 0, r.intensity)
		dm.set(i, 1, r.width)
	}
	b.WriteString("\t\t\t<DataMatrix>\n")
	dm.write(b, 4)
	b.WriteString("\t\t\t</DataMatrix>\n")
	b.WriteString("\t\t</FeatureQuantLayer>\n")
}

func (e *emission) writeAssayQuantLayer(b *bytes.Buffer) {
	fmt.Fprintf(b, "\t\t<MS2AssayQuantLayer id=\"%s\">\n", e.alloc.Allocate(uid.QuantLayer))
	b.WriteString("\t\t\t<DataType>\n")
	writeCV(b, 4, termReporterIntens)
	b.WriteString("\t\t\t</DataType>\n")
	fmt.Fprintf(b, "\t\t\t<ColumnIndex>%s</ColumnIndex>\n", joinRefs(e.assayRefs))

	refs := make([]uid.Ref, len(e.ms2))
	for i, r := range e.ms2 {
		refs[i] = r.ref
	}
	dm := newDataMatrix(refs, len(e.assayRefs))
	for i, r := range e.ms2 {
		for j, v := range r.values {
			dm.set(i, j, v)
		}
	}
	b.WriteString("\t\t\t<DataMatrix>\n")
	dm.write(b, 4)
	b.WriteString("\t\t\t</DataMatrix>\n")
	b.WriteString("\t\t</MS2AssayQuantLayer>\n")
}

func (e *emission) writePeptides() {
	switch e.qt {
	case quant.QuantMS1Label:
		for _, crs := range e.maps {
			e.writeMS1Peptides(crs)
		}
	case quant.QuantMS2Label:
		e.writeMS2Peptides()
	case quant.QuantLabelFree, quant.QuantUnset:
	}
}

// evidenceAssay returns the assay a feature handle was measured in: the
// assay at its map index, or else the assay at the handle's position.
func (e *emission) evidenceAssay(h quant.FeatureHandle, pos int) (uid.Ref, bool) {
	if h.MapIndex < uint64(len(e.assayRefs)) {
		return e.assayRefs[h.MapIndex], true
	}
	if pos < len(e.assayRefs) {
		return e.assayRefs[pos], true
	}
	return "", false
}

func (e *emission) writeMS1Peptides(crs []consensusRefs) {
	b := &e.peptides
	fmt.Fprintf(b, "\t<PeptideConsensusList finalResult=\"true\" id=\"%s\">\n", e.alloc.Allocate(uid.PeptideConsensusList))
	for _, cr := range crs {
		fmt.Fprintf(b, "\t\t<PeptideConsensus id=\"%s\" charge=\"%d\">\n", cr.ref, cr.feature.Charge)
		for j, h := range cr.handles {
			fmt.Fprintf(b, "\t\t\t<EvidenceRef feature_ref=\"%s\"", cr.handleRefs[j])
			if ref, ok := e.evidenceAssay(h, j); ok {
				fmt.Fprintf(b, " assay_refs=\"%s\"", ref)
			}
			b.WriteString("/>\n")
		}
		b.WriteString("\t\t</PeptideConsensus>\n")
	}

	fmt.Fprintf(b, "\t\t<RatioQuantLayer id=\"%s\">\n", e.alloc.Allocate(uid.QuantLayer))
	b.WriteString("\t\t\t<DataType>\n")
	writeCV(b, 4, termPeptideRatio)
	b.WriteString("\t\t\t</DataType>\n")
	cols := make([]uid.Ref, len(e.ratioKeys))
	for i, k := range e.ratioKeys {
		cols[i] = e.ratioRefs[k]
	}
	fmt.Fprintf(b, "\t\t\t<ColumnIndex>%s</ColumnIndex>\n", joinRefs(cols))
	b.WriteString("\t\t\t<DataMatrix>\n")
	for _, cr := range crs {
		fmt.Fprintf(b, "\t\t\t\t<Row object_ref=\"%s\">%s</Row>\n", cr.ref, strings.Join(e.ratioRow(cr.feature), " "))
	}
	b.WriteString("\t\t\t</DataMatrix>\n")
	b.WriteString("\t\t</RatioQuantLayer>\n")
	b.WriteString("\t</PeptideConsensusList>\n")
}

// ratioRow returns the ratio values of a consensus feature in column
// order. The first ratio for a pair wins.
func (e *emission) ratioRow(cf *quant.ConsensusFeature) []string {
	values := make(map[string]float64, len(cf.Ratios))
	for _, r := range cf.Ratios {
		if _, ok := values[r.Key()]; !ok {
			values[r.Key()] = r.Value
		}
	}
	row := make([]string, 0, len(e.ratioKeys))
	for _, k := range e.ratioKeys {
		v, ok := values[k]
		switch {
		case ok:
			row = append(row, formatFloat(v))
		case e.w.opts.RatioFill == FillSentinel:
			row = append(row, e.w.opts.RatioSentinel)
		}
	}
	return row
}

func (e *emission) writeMS2Peptides() {
	if e.idFileRef == "" {
		e.w.log.Debug("no identification file, peptide consensus list not written")
		return
	}
	if len(e.maps) != 1 {
		e.w.log.Warn("peptide consensus list requires exactly one consensus map, not written",
			zap.Int("consensus_maps", len(e.maps)))
		return
	}
	assays := joinRefs(e.assayRefs)
	b := &e.peptides
	fmt.Fprintf(b, "\t<PeptideConsensusList finalResult=\"false\" id=\"%s\">\n", e.alloc.Allocate(uid.PeptideConsensusList))
	for _, cr := range e.maps[0] {
		cf := cr.feature
		if len(cf.PeptideIDs) == 0 {
			continue
		}
		pid := cf.PeptideIDs[0]
		fmt.Fprintf(b, "\t\t<PeptideConsensus id=\"%s\" charge=\"%d\" searchDatabase_ref=\"%s\">\n",
			e.alloc.Allocate(uid.PeptideConsensus), cf.Charge, e.searchDBRef)
		if len(pid.Hits) > 0 {
			fmt.Fprintf(b, "\t\t\t<PeptideSequence>%s</PeptideSequence>\n", esc(pid.Hits[0].UnmodifiedSequence()))
		}
		fmt.Fprintf(b, "\t\t\t<EvidenceRef feature_ref=\"%s\" assay_refs=\"%s\" id_refs=\"%s\" identificationFile_ref=\"%s\"/>\n",
			cr.featureRef, assays, esc(pid.Identifier), e.idFileRef)
		b.WriteString("\t\t</PeptideConsensus>\n")
	}
	b.WriteString("\t</PeptideConsensusList>\n")
}

func indent(n int) string {
	return strings.Repeat("\t", n)
}

func esc(s string) string {
	var b strings.Builder
	// strings.Builder does not return write errors
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func joinRefs(refs []uid.Ref) string {
	s := make([]string, len(refs))
	for i, r := range refs {
		s[i] = string(r)
	}
	return strings.Join(s, " ")
}

func writeCV(b *bytes.Buffer, n int, p cvParam) {
	fmt.Fprintf(b, "%s<cvParam cvRef=\"%s\" accession=\"%s\" name=\"%s\"", indent(n), cvRefFor(p.accession), p.accession, esc(p.name))
	if p.value != "" {
		fmt.Fprintf(b, " value=\"%s\"", esc(p.value))
	}
	b.WriteString("/>\n")
}

func writeCVTerm(b *bytes.Buffer, n int, t quant.CVTerm) {
	ref := t.CVRef
	if ref == "" {
		ref = cvRefFor(t.Accession)
	}
	fmt.Fprintf(b, "%s<cvParam cvRef=\"%s\" accession=\"%s\" name=\"%s\"", indent(n), esc(ref), esc(t.Accession), esc(t.Name))
	if t.Value != "" {
		fmt.Fprintf(b, " value=\"%s\"", esc(t.Value))
	}
	b.WriteString("/>\n")
}

func writeUserParam(b *bytes.Buffer, n int, name, value string) {
	fmt.Fprintf(b, "%s<userParam name=\"%s\"", indent(n), esc(name))
	if value != "" {
		fmt.Fprintf(b, " value=\"%s\"", esc(value))
	}
	b.WriteString("/>\n")
}

// writeUserParams writes typed user parameters in key order
func writeUserParams(b *bytes.Buffer, n int, m quant.MetaInfo) {
	for _, k := range m.Keys() {
		v := m[k]
		fmt.Fprintf(b, "%s<userParam name=\"%s\" type=\"%s\" value=\"%s\"/>\n", indent(n), esc(k), v.XSDType(), esc(v.String()))
	}
}
