package qcml

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/quant"
)

// cvParam validates a CV annotation found in parent (enclosed by
// grandparent) and routes it into the matching accumulator.
//
// Routing, first match wins:
//
//	(DataType, Column)  declared type of the current column
//	(*, Label)          reporter label of the current assay
//	"no label"          unlabeled assay marker without accession, ignored
//	otherwise           UnhandledAnnotation
func (s *Session) cvParam(grandparent, parent, accession, name, value string) {
	if accession == "" && parent == "Modification" && name == noLabelName {
		return
	}
	ws, route := s.validator.Validate(accession, parent, name, value)
	s.sink.Warn(ws...)
	if !route {
		return
	}
	switch {
	case parent == "DataType" && grandparent == "Column":
		// Column indices may arrive in any order
		for len(s.colTypes) <= s.colIndex {
			s.colTypes = append(s.colTypes, "")
		}
		s.colTypes[s.colIndex] = accession
	case grandparent == "Label":
		if mod, ok := labelAccessions[accession]; ok && s.assay != nil {
			s.assay.mods = append(s.assay.mods, mod)
		}
	default:
		s.sink.Warn(cv.Warning{Code: cv.UnhandledAnnotation, Accession: accession, Name: name, Tag: parent})
	}
}

// coerce converts a user parameter value according to its declared
// type. ok is false if the value does not parse as that type, the value
// is then kept as text.
func coerce(typ, value string) (v quant.MetaValue, ok bool) {
	switch {
	case userParamFloatTypes[typ]:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return quant.TextValue(value), false
		}
		return quant.FloatValue(f), true
	case userParamIntTypes[typ]:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return quant.TextValue(value), false
		}
		return quant.IntValue(i), true
	}
	return quant.TextValue(value), true
}

// userParam routes a user parameter by its parent element. A Software
// user parameter without value attribute names the software.
func (s *Session) userParam(grandparent, parent, name, typ, value string, hasValue bool) {
	v, ok := coerce(typ, value)
	if !ok {
		s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Name: name, Tag: parent, Value: value, Expected: typ})
	}
	if grandparent == "" {
		s.sink.Warn(cv.Warning{Code: cv.NoGrandparent, Name: name, Tag: parent})
	}

	switch parent {
	case "ProcessingMethod":
		a, known := quant.LookupProcessingAction(name)
		if !known && s.opts.UnknownActions == DropUnknownActions {
			s.log.Debug("unknown processing action dropped", zap.String("name", name))
			return
		}
		if s.step != nil {
			s.step.actions.Add(a)
		}
	case "Software":
		id := s.stack[len(s.stack)-1].id
		sw, found := s.software[id]
		if !found {
			sw = &quant.Software{}
			s.software[id] = sw
		}
		if !hasValue {
			sw.Name = name
		} else {
			sw.Meta.Set(name, v)
		}
	case "AnalysisSummary":
		if name != "QuantType" {
			s.msq.Summary.UserParams.Set(name, v)
			return
		}
		if s.quantTypeSet {
			s.sink.Warn(cv.Warning{Code: cv.UnhandledAnnotation, Name: name, Tag: parent, Value: value,
				Detail: "quantitation type already set to " + s.msq.Summary.QuantType.String()})
			return
		}
		s.msq.Summary.QuantType = quant.ParseQuantType(value)
		s.quantTypeSet = true
	case "RatioCalculation":
		if r, found := s.ratios[s.currentID()]; found {
			r.Description = append(r.Description, name)
		}
	case "Feature":
		f, found := s.features[s.currentID()]
		if !found {
			return
		}
		switch name {
		case "feature_index", "map_index":
			n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			if err != nil {
				s.sink.Warn(cv.Warning{Code: cv.TypeMismatch, Name: name, Tag: parent, Value: value, Expected: "integer"})
				return
			}
			if name == "feature_index" {
				f.UniqueID = n
			} else {
				f.MapIndex = n
			}
		}
	default:
		s.sink.Warn(cv.Warning{Code: cv.UnhandledAnnotation, Name: name, Tag: parent, Value: value})
	}
}
