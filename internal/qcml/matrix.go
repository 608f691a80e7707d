package qcml

import (
	"bytes"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/524D/qcml/internal/uid"
)

// dataMatrix is the numeric body of a quant layer: one row per
// referenced object, one column per column definition
type dataMatrix struct {
	refs []uid.Ref
	cols int
	m    *mat.Dense
}

// newDataMatrix returns a zero filled matrix. gonum rejects empty
// matrices, so m stays nil when there are no rows or columns.
func newDataMatrix(refs []uid.Ref, cols int) *dataMatrix {
	d := &dataMatrix{refs: refs, cols: cols}
	if len(refs) > 0 && cols > 0 {
		d.m = mat.NewDense(len(refs), cols, nil)
	}
	return d
}

func (d *dataMatrix) set(i, j int, v float64) {
	d.m.Set(i, j, v)
}

// row returns row i, nil for a matrix without columns
func (d *dataMatrix) row(i int) []float64 {
	if d.m == nil {
		return nil
	}
	return d.m.RawRowView(i)
}

// write emits one Row element per object
func (d *dataMatrix) write(b *bytes.Buffer, n int) {
	for i, ref := range d.refs {
		vals := d.row(i)
		s := make([]string, len(vals))
		for j, v := range vals {
			s[j] = formatFloat(v)
		}
		fmt.Fprintf(b, "%s<Row object_ref=\"%s\">%s</Row>\n", indent(n), ref, strings.Join(s, " "))
	}
}
