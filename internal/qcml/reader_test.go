package qcml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/antchfx/xmlquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/quant"
	"github.com/524D/qcml/internal/uid"
)

func roundTrip(t *testing.T, msq *quant.MSQuantifications, wopts WriterOptions, ropts ReaderOptions) (*quant.MSQuantifications, []cv.Warning) {
	t.Helper()
	if wopts.IDSource == nil {
		wopts.IDSource = uid.NewSequence(1)
	}
	if ropts.Ontology == nil {
		ropts.Ontology = testOntology()
	}
	var buf bytes.Buffer
	require.NoError(t, NewWriter(wopts).Write(&buf, msq))
	got, warnings, err := Read(&buf, ropts)
	require.NoError(t, err)
	return got, warnings
}

func assertNoneOf(t *testing.T, ws []cv.Warning, unwanted ...cv.Code) {
	t.Helper()
	for _, w := range ws {
		for _, c := range unwanted {
			assert.NotEqual(t, c, w.Code, "%v", w)
		}
	}
}

func TestRoundTripMS1(t *testing.T) {
	handles := []quant.FeatureHandle{
		{MapIndex: 0, UniqueID: 11, RT: 1830.25, MZ: 500.5, Charge: 2, Intensity: 1e6, Width: 2.5},
		{MapIndex: 1, UniqueID: 12, RT: 1831, MZ: 504.51, Charge: 2, Intensity: 5e5, Width: 3},
	}
	msq := &quant.MSQuantifications{
		Summary: quant.AnalysisSummary{
			QuantType: quant.QuantMS1Label,
			UserParams: quant.MetaInfo{
				"experiment": quant.TextValue("silac"),
				"replicates": quant.IntValue(3),
				"fdr":        quant.FloatValue(0.01),
			},
		},
		DataProcessing: []quant.DataProcessing{{
			Software: quant.Software{Name: "FeatureFinderMultiplex", Version: "2.0", Meta: quant.MetaInfo{"threads": quant.IntValue(4)}},
			Actions:  quant.ActionSet{quant.ActionPeakPicking, quant.ActionQuantitation},
			Order:    1,
		}},
		Assays: []quant.Assay{
			{UID: 1, Mods: []quant.LabelMod{{Name: "Arg0", MassDelta: 0}}, RawFiles: []quant.RawFile{{Path: "Ångström light.mzML"}}},
			{UID: 2, Mods: []quant.LabelMod{{Name: "Arg10", MassDelta: 10.008}}, RawFiles: []quant.RawFile{{Path: "heavy.mzML"}}},
		},
		ConsensusMaps: []quant.ConsensusMap{{
			Features: []quant.ConsensusFeature{{
				RT: 1830.5, MZ: 502.5, Charge: 2,
				Handles: []quant.FeatureHandle{handles[1], handles[0]},
				Ratios:  []quant.Ratio{{NumeratorRef: "1", DenominatorRef: "2", Value: 2, Description: []string{"light/heavy"}}},
			}},
		}},
	}

	got, warnings := roundTrip(t, msq, WriterOptions{}, ReaderOptions{})
	assertNoneOf(t, warnings, cv.UnknownTerm, cv.NameMismatch, cv.TypeMismatch, cv.NoGrandparent)

	assert.Equal(t, quant.QuantMS1Label, got.Summary.QuantType)
	assert.Equal(t, msq.Summary.UserParams, got.Summary.UserParams)
	assert.Equal(t, msq.DataProcessing, got.DataProcessing)

	// Label modifications of MS1 assays are not read back
	require.Len(t, got.Assays, 2)
	for i, a := range got.Assays {
		assert.Equal(t, msq.Assays[i].UID, a.UID)
		assert.Equal(t, msq.Assays[i].RawFiles, a.RawFiles)
		assert.Empty(t, a.Mods)
	}

	require.Len(t, got.ConsensusMaps, 1)
	require.Len(t, got.ConsensusMaps[0].Features, 1)
	cf := got.ConsensusMaps[0].Features[0]
	assert.Equal(t, 2, cf.Charge)
	if diff := cmp.Diff(handles, cf.Handles); diff != "" {
		t.Errorf("handles mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, msq.ConsensusMaps[0].Features[0].Ratios, cf.Ratios)
}

func TestRoundTripMS2(t *testing.T) {
	msq := ms2Model()
	got, warnings := roundTrip(t, msq, WriterOptions{}, ReaderOptions{})
	assertNoneOf(t, warnings, cv.UnknownTerm, cv.NameMismatch, cv.TypeMismatch, cv.NoGrandparent)

	assert.Equal(t, quant.QuantMS2Label, got.Summary.QuantType)
	assert.Equal(t, msq.Assays, got.Assays)

	require.Len(t, got.DataProcessing, 2)
	assert.Equal(t, "ITRAQAnalyzer", got.DataProcessing[0].Software.Name)
	assert.Equal(t, quant.ActionSet{quant.ActionQuantitation}, got.DataProcessing[0].Actions)
	assert.Equal(t, "IDMapper", got.DataProcessing[1].Software.Name)
	assert.Equal(t, quant.MetaInfo{"parameter: id": quant.TextValue("search.idXML")}, got.DataProcessing[1].Meta)

	// Identified and unidentified features share the single map
	require.Len(t, got.ConsensusMaps, 1)
	cm := got.ConsensusMaps[0]
	assert.Equal(t, []quant.ProteinIdentification{{SearchParameters: quant.SearchParameters{DBVersion: "2012_05"}}}, cm.ProteinIDs)
	require.Len(t, cm.Features, 2)
	cf := cm.Features[0]
	assert.Equal(t, 1200.0, cf.RT)
	assert.Equal(t, 650.5, cf.MZ)
	assert.Equal(t, 2, cf.Charge)
	var intensities []float64
	for j, h := range cf.Handles {
		assert.Equal(t, uint64(j), h.MapIndex)
		intensities = append(intensities, h.Intensity)
	}
	assert.Equal(t, []float64{10, 20, 30, 40}, intensities)
	assert.Equal(t, []quant.PeptideIdentification{{
		Identifier: "run1",
		Hits:       []quant.PeptideHit{{Sequence: "PEPMTIDER"}},
	}}, cf.PeptideIDs)

	rest := cm.Features[1]
	assert.Equal(t, 3, rest.Charge)
	assert.Empty(t, rest.PeptideIDs)
	require.Len(t, rest.Handles, 4)
	assert.Equal(t, 5.0, rest.Handles[0].Intensity)
	assert.Zero(t, rest.Handles[3].Intensity)

	// Writing the model again keeps the peptide consensus list
	var buf bytes.Buffer
	require.NoError(t, NewWriter(WriterOptions{IDSource: uid.NewSequence(1)}).Write(&buf, got))
	doc, err := xmlquery.Parse(&buf)
	require.NoError(t, err)
	assert.Len(t, xmlquery.Find(doc, "//PeptideConsensusList/PeptideConsensus"), 1)
	assert.Len(t, xmlquery.Find(doc, "//FeatureList/Feature"), 2)
}

func TestRoundTripSoftwareMeta(t *testing.T) {
	msq := ms1Model()
	msq.DataProcessing = []quant.DataProcessing{{
		Software: quant.Software{
			Name:    "Tool",
			Version: "1.0",
			Meta:    quant.MetaInfo{"note": quant.TextValue(""), "threads": quant.IntValue(2)},
		},
		Actions: quant.ActionSet{quant.ActionQuantitation},
		Order:   1,
	}}
	got, _ := roundTrip(t, msq, WriterOptions{}, ReaderOptions{})
	if diff := cmp.Diff(msq.DataProcessing, got.DataProcessing); diff != "" {
		t.Errorf("data processing mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripRatioSentinel(t *testing.T) {
	ratiosOf := func(msq *quant.MSQuantifications) [][]float64 {
		var out [][]float64
		for _, cf := range msq.ConsensusMaps[0].Features {
			var vals []float64
			for _, r := range cf.Ratios {
				vals = append(vals, r.Value)
			}
			out = append(out, vals)
		}
		return out
	}

	got, _ := roundTrip(t, ratioModel(), WriterOptions{RatioFill: FillSentinel}, ReaderOptions{RatioSentinel: DefaultRatioSentinel})
	assert.Equal(t, [][]float64{{1.5, 2}, {0.5, 3}, {4}}, ratiosOf(got))

	got, _ = roundTrip(t, ratioModel(), WriterOptions{RatioFill: FillSentinel}, ReaderOptions{})
	assert.Equal(t, [][]float64{{1.5, 2}, {0.5, 3}, {-1, 4}}, ratiosOf(got))

	// Short rows cannot be matched to their columns
	got, _ = roundTrip(t, ratioModel(), WriterOptions{}, ReaderOptions{})
	assert.Equal(t, [][]float64{{1.5, 2}, {0.5, 3}, nil}, ratiosOf(got))
}

func TestReadErrors(t *testing.T) {
	_, _, err := Read(strings.NewReader("<qcMLType/>"), ReaderOptions{})
	assert.ErrorIs(t, err, ErrNoOntology)

	_, _, err = Read(strings.NewReader("<qcMLType><AnalysisSummary></qcMLType>"), ReaderOptions{Ontology: testOntology()})
	assert.Error(t, err)

	doc := `<?xml version="1.0" encoding="ISO-8859-1"?>
<qcMLType>
	<AnalysisSummary>
		<userParam name="QuantType" value="SRM"/>
	</AnalysisSummary>
</qcMLType>`
	msq, _, err := Read(strings.NewReader(doc), ReaderOptions{Ontology: testOntology()})
	assert.ErrorIs(t, err, ErrInvalidQuantType)
	assert.Nil(t, msq)
}

func TestReadLabelFree(t *testing.T) {
	msq := ms1Model()
	msq.Summary.QuantType = quant.QuantLabelFree
	got, warnings := roundTrip(t, msq, WriterOptions{}, ReaderOptions{})
	assert.Equal(t, quant.QuantLabelFree, got.Summary.QuantType)
	assert.Empty(t, got.ConsensusMaps)
	require.Len(t, got.Assays, 1)
	assert.Equal(t, uint64(7), got.Assays[0].UID)
	// The "no label" modification carries no accession and is not
	// looked up
	assert.NotContains(t, codes(warnings), cv.UnknownTerm)
	assert.Empty(t, got.Assays[0].Mods)
}
