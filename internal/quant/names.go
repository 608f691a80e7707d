package quant

import (
	"errors"
	"fmt"
	"sort"
)

// QuantType selects the quantitation strategy of a report
type QuantType int

const (
	QuantMS1Label QuantType = iota
	QuantMS2Label
	QuantLabelFree
	QuantUnset
	// QuantInvalid results from a quantitation type name that is not
	// recognized. Callers must reject it.
	QuantInvalid QuantType = -1
)

// Names as used in the AnalysisSummary "QuantType" user parameter
var quantTypeNames = map[QuantType]string{
	QuantMS1Label:  "MS1LABEL",
	QuantMS2Label:  "MS2LABEL",
	QuantLabelFree: "LABELFREE",
}

var (
	// ErrUnknownQuantType means a quantitation type name is not recognized
	ErrUnknownQuantType = errors.New("quant: unknown quantitation type")
	// ErrUnknownAction means a processing action name is not recognized
	ErrUnknownAction = errors.New("quant: unknown processing action")
)

// ParseQuantType maps a quantitation type name onto its QuantType.
// Names that are not in the table give QuantInvalid.
func ParseQuantType(name string) QuantType {
	for qt, n := range quantTypeNames {
		if n == name {
			return qt
		}
	}
	return QuantInvalid
}

func (q QuantType) String() string {
	if n, ok := quantTypeNames[q]; ok {
		return n
	}
	if q == QuantUnset {
		return "UNSET"
	}
	return "INVALID"
}

// Valid reports whether q is one of the four defined quantitation types
func (q QuantType) Valid() bool {
	return q >= QuantMS1Label && q <= QuantUnset
}

// MarshalText implements encoding.TextMarshaler
func (q QuantType) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, ErrUnknownQuantType
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty name or
// "UNSET" gives QuantUnset.
func (q *QuantType) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "UNSET" {
		*q = QuantUnset
		return nil
	}
	qt := ParseQuantType(s)
	if qt == QuantInvalid {
		return fmt.Errorf("%w: %q", ErrUnknownQuantType, s)
	}
	*q = qt
	return nil
}

// ProcessingAction is a kind of data processing that was applied
type ProcessingAction int

const (
	ActionDataProcessing ProcessingAction = iota
	ActionChargeDeconvolution
	ActionDeisotoping
	ActionSmoothing
	ActionChargeCalculation
	ActionPrecursorRecalculation
	ActionBaselineReduction
	ActionPeakPicking
	ActionAlignment
	ActionCalibration
	ActionNormalization
	ActionFiltering
	ActionQuantitation
	ActionFeatureGrouping
	ActionIdentificationMapping
	ActionFormatConversion
	ActionConversionMzData
	ActionConversionMzML
	ActionConversionMzXML
	ActionConversionDTA
	// ActionUnknown records an action whose name was not recognized
	ActionUnknown ProcessingAction = -1
)

var processingActionNames = [...]string{
	ActionDataProcessing:         "Data processing action",
	ActionChargeDeconvolution:    "Charge deconvolution",
	ActionDeisotoping:            "Deisotoping",
	ActionSmoothing:              "Smoothing",
	ActionChargeCalculation:      "Charge calculation",
	ActionPrecursorRecalculation: "Precursor recalculation",
	ActionBaselineReduction:      "Baseline reduction",
	ActionPeakPicking:            "Peak picking",
	ActionAlignment:              "Retention time alignment",
	ActionCalibration:            "Calibration of m/z positions",
	ActionNormalization:          "Intensity normalization",
	ActionFiltering:              "Data filtering",
	ActionQuantitation:           "Quantitation",
	ActionFeatureGrouping:        "Feature grouping",
	ActionIdentificationMapping:  "Identification mapping",
	ActionFormatConversion:       "File format conversion",
	ActionConversionMzData:       "Conversion to mzData format",
	ActionConversionMzML:         "Conversion to mzML format",
	ActionConversionMzXML:        "Conversion to mzXML format",
	ActionConversionDTA:          "Conversion to DTA format",
}

// LookupProcessingAction maps an action name onto its ProcessingAction.
// The boolean is false for names that are not in the table.
func LookupProcessingAction(name string) (ProcessingAction, bool) {
	for a, n := range processingActionNames {
		if n == name {
			return ProcessingAction(a), true
		}
	}
	return ActionUnknown, false
}

func (a ProcessingAction) String() string {
	if a >= 0 && int(a) < len(processingActionNames) {
		return processingActionNames[a]
	}
	return "Unknown action"
}

// MarshalText implements encoding.TextMarshaler
func (a ProcessingAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *ProcessingAction) UnmarshalText(text []byte) error {
	if string(text) == ActionUnknown.String() {
		*a = ActionUnknown
		return nil
	}
	pa, ok := LookupProcessingAction(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(text))
	}
	*a = pa
	return nil
}

// ActionSet is an ordered set of processing actions
type ActionSet []ProcessingAction

// Add inserts a into the set, keeping it sorted and free of duplicates
func (s *ActionSet) Add(a ProcessingAction) {
	i := sort.Search(len(*s), func(i int) bool { return (*s)[i] >= a })
	if i < len(*s) && (*s)[i] == a {
		return
	}
	*s = append(*s, 0)
	copy((*s)[i+1:], (*s)[i:])
	(*s)[i] = a
}

// Has reports whether a is in the set
func (s ActionSet) Has(a ProcessingAction) bool {
	for _, x := range s {
		if x == a {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy of the set without duplicates. Sets
// decoded from JSON are not guaranteed to be ordered.
func (s ActionSet) Sorted() ActionSet {
	out := make(ActionSet, 0, len(s))
	for _, a := range s {
		out.Add(a)
	}
	return out
}
