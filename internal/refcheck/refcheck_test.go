package refcheck

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolved = `<?xml version="1.0" encoding="ISO-8859-1"?>
<qcMLType>
	<InputFiles>
		<RawFilesGroup id="rfg_1">
			<RawFile id="rf_2" location="a.mzML"/>
		</RawFilesGroup>
	</InputFiles>
	<AssayList id="assaylist1">
		<Assay id="a_1" rawFilesGroup_ref="rfg_1"/>
		<Assay id="a_2" rawFilesGroup_ref="rfg_1"/>
	</AssayList>
	<StudyVariableList>
		<StudyVariable id="v_3" name="noname">
			<Assay_refs>a_1 a_2</Assay_refs>
		</StudyVariable>
	</StudyVariableList>
	<PeptideConsensusList id="m_4" finalResult="true">
		<PeptideConsensus id="c_5" charge="2">
			<EvidenceRef feature_ref="f_6" assay_refs="a_1 a_2" id_refs="run1"/>
		</PeptideConsensus>
	</PeptideConsensusList>
	<FeatureList id="featurelist1" rawFilesGroup_ref="rfg_1">
		<Feature id="f_6" rt="1" mz="2" charge="2"/>
		<MS2AssayQuantLayer id="q_7">
			<ColumnIndex>a_1 a_2</ColumnIndex>
			<DataMatrix>
				<Row object_ref="f_6">1 2</Row>
			</DataMatrix>
		</MS2AssayQuantLayer>
	</FeatureList>
</qcMLType>`

func TestCheckResolved(t *testing.T) {
	rep, err := Check(strings.NewReader(resolved))
	require.NoError(t, err)
	assert.True(t, rep.OK())
	assert.Equal(t, 11, rep.IDs)
	// rawFilesGroup_ref x3, Assay_refs x2, feature_ref, assay_refs x2,
	// ColumnIndex x2, object_ref
	assert.Equal(t, 11, rep.Refs)
	assert.Empty(t, rep.Dangling)
	assert.Equal(t, []Problem{{Element: "EvidenceRef", Attr: "feature_ref", Ref: "f_6"}}, rep.Forward)
}

func TestCheckProblems(t *testing.T) {
	doc := `<qcMLType>
	<AssayList id="assaylist1">
		<Assay id="a_1" rawFilesGroup_ref="rfg_9"/>
		<Assay id="a_1"/>
	</AssayList>
	<StudyVariableList>
		<StudyVariable id="v_2">
			<Assay_refs>a_1 a_3</Assay_refs>
		</StudyVariable>
	</StudyVariableList>
</qcMLType>`
	rep, err := Check(strings.NewReader(doc))
	require.NoError(t, err)
	assert.False(t, rep.OK())
	assert.Equal(t, []Problem{
		{Element: "Assay", Attr: "rawFilesGroup_ref", Ref: "rfg_9"},
		{Element: "Assay_refs", Ref: "a_3"},
	}, rep.Dangling)
	assert.Equal(t, []Problem{{Element: "Assay", Attr: "id", Ref: "a_1"}}, rep.Duplicates)
	assert.Equal(t, `<Assay rawFilesGroup_ref="rfg_9">`, rep.Dangling[0].String())
	assert.Equal(t, `<Assay_refs> a_3`, rep.Dangling[1].String())
}

func TestCheckMalformed(t *testing.T) {
	_, err := Check(strings.NewReader("<qcMLType><AssayList></qcMLType>"))
	assert.Error(t, err)
}
