package qcml

import (
	"math"

	"github.com/524D/qcml/internal/quant"
)

type cvParam struct {
	accession string
	name      string
	value     string
}

// MS1 label mass shifts, keyed by the mass delta rounded to the nearest
// integer
var ms1LabelTerms = map[int]cvParam{
	6:  {"MOD:00544", "6x(13)C labeled residue", ""},
	8:  {"MOD:00582", "6x(13)C,2x(15)N labeled L-lysine", ""},
	10: {"MOD:00587", "6x(13)C,4x(15)N labeled L-arginine", ""},
}

var ms1Unlabeled = cvParam{"MS:1002038", "unlabeled sample", ""}

// iTRAQ reporter fragments, keyed by the truncated reporter mass
var ms2ReporterTerms = map[int]cvParam{
	114: {"MOD:01522", "iTRAQ4plex-114 reporter fragment", ""},
	115: {"MOD:01523", "iTRAQ4plex-115 reporter fragment", ""},
	116: {"MOD:01524", "iTRAQ4plex-116 reporter fragment", ""},
	117: {"MOD:01525", "iTRAQ4plex-117, mTRAQ heavy, reporter fragment", ""},
}

var ms2GenericReporter = cvParam{"MOD:00564", "Applied Biosystems iTRAQ(TM) multiplexed quantitation chemistry", ""}

// Mass delta of the iTRAQ 4plex tag
const itraqTagMass = "145"

// Name of the accession-less term marking an unlabeled assay
const noLabelName = "no label"

// ms1LabelTerm maps a SILAC mass shift onto its CV term
func ms1LabelTerm(delta float64) cvParam {
	if p, ok := ms1LabelTerms[int(math.Floor(delta+0.5))]; ok {
		return p
	}
	return ms1Unlabeled
}

// ms2ReporterTerm maps a reporter mass onto its CV term
func ms2ReporterTerm(mass float64) cvParam {
	if p, ok := ms2ReporterTerms[int(mass)]; ok {
		return p
	}
	return ms2GenericReporter
}

// Reporter labels recognized when reading an assay Label
var labelAccessions = map[string]quant.LabelMod{
	"MOD:01522": {Name: "114", MassDelta: 114},
	"MOD:01523": {Name: "115", MassDelta: 115},
	"MOD:01524": {Name: "116", MassDelta: 116},
	"MOD:01525": {Name: "117", MassDelta: 117},
}

// Analysis summary terms per quantitation type
var summaryTerms = map[quant.QuantType][]cvParam{
	quant.QuantMS1Label: {
		{"MS:1002018", "MS1 label-based analysis", ""},
		{"MS:1001837", "SILAC quantitation analysis", ""},
		{"MS:1002001", "MS1 label-based raw feature quantitation", "true"},
		{"MS:1002002", "MS1 label-based peptide level quantitation", "true"},
		{"MS:1002003", "MS1 label-based protein level quantitation", "false"},
		{"MS:1002004", "MS1 label-based proteingroup level quantitation", "false"},
	},
	quant.QuantMS2Label: {
		{"MS:1002023", "MS2 tag-based analysis", ""},
		{"MS:1002024", "MS2 tag-based analysis feature level quantitation", "true"},
		{"MS:1002025", "MS2 tag-based peptide level quantitation", "true"},
		{"MS:1002026", "MS2 tag-based analysis protein level quantitation", "false"},
		{"MS:1002027", "MS2 tag-based analysis protein group level quantitation", "false"},
	},
}

// Fixed terms used in the ratio, feature and peptide sections
var (
	termSimpleRatio    = cvParam{"MS:1001848", "simple ratio of two values", ""}
	termReporterIntens = cvParam{"MS:1001847", "reporter ion intensity", ""}
	termPrecursorInt   = cvParam{"MS:1001141", "intensity of precursor ion", ""}
	termFWHM           = cvParam{"MS:1000086", "full width at half-maximum", ""}
	termPeptideRatio   = cvParam{"MS:1001132", "peptide ratio", ""}
	termITRAQAnalyzer  = cvParam{"MS:1001831", "ITRAQAnalyzer", ""}
)

// Software names with special treatment
const (
	swIDMapper      = "IDMapper"
	swITRAQAnalyzer = "ITRAQAnalyzer"
)

// Step metadata key holding the identification file name
const metaIDFile = "parameter: id"

// Floating point and integer XSD type names for user parameters
var (
	userParamFloatTypes = map[string]bool{
		"xsd:double": true,
		"xsd:float":  true,
	}
	userParamIntTypes = map[string]bool{
		"xsd:byte":               true,
		"xsd:decimal":            true,
		"xsd:int":                true,
		"xsd:integer":            true,
		"xsd:long":               true,
		"xsd:negativeInteger":    true,
		"xsd:nonNegativeInteger": true,
		"xsd:nonPositiveInteger": true,
		"xsd:positiveInteger":    true,
		"xsd:short":              true,
		"xsd:unsignedByte":       true,
		"xsd:unsignedInt":        true,
		"xsd:unsignedLong":       true,
		"xsd:unsignedShort":      true,
	}
)
