// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/524D/qcml/internal/cv"
	"github.com/524D/qcml/internal/quant"
	"github.com/524D/qcml/internal/refcheck"
)

// debugDumpModel prints an overview of a quantification model
func debugDumpModel(w io.Writer, msq *quant.MSQuantifications) {
	fmt.Fprintf(w, "Quantitation type: %s\n", msq.Summary.QuantType)
	for i, dp := range msq.DataProcessing {
		fmt.Fprintf(w, "Step %d: %s %s [", i+1, dp.Software.Name, dp.Software.Version)
		for j, a := range dp.Actions.Sorted() {
			if j > 0 {
				fmt.Fprintf(w, ", ")
			}
			fmt.Fprintf(w, "%s", a)
		}
		fmt.Fprintf(w, "]\n")
	}
	for _, a := range msq.Assays {
		fmt.Fprintf(w, "Assay %d: %d label(s), %d raw file(s)\n", a.UID, len(a.Mods), len(a.RawFiles))
	}
	for i, cm := range msq.ConsensusMaps {
		var handles, ratios, ids int
		for _, cf := range cm.Features {
			handles += len(cf.Handles)
			ratios += len(cf.Ratios)
			ids += len(cf.PeptideIDs)
		}
		fmt.Fprintf(w, "Consensus map %d: %d features, %d handles, %d ratios, %d peptide ids, %d protein ids\n",
			i, len(cm.Features), handles, ratios, ids, len(cm.ProteinIDs))
	}
}

// debugDumpWarnings prints the number of warnings per code, then every
// warning
func debugDumpWarnings(w io.Writer, warnings []cv.Warning) {
	count := make(map[cv.Code]int)
	for _, warn := range warnings {
		count[warn.Code]++
	}
	codes := make([]string, 0, len(count))
	for c := range count {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	fmt.Fprintf(w, "Warnings: %d\n", len(warnings))
	for _, c := range codes {
		fmt.Fprintf(w, "  %s: %d\n", c, count[cv.Code(c)])
	}
	for _, warn := range warnings {
		fmt.Fprintf(w, "%v\n", warn)
	}
}

// debugDumpReport lists the forward references of a reference check.
// They resolve, but a reader that streams the document sees them before
// their target.
func debugDumpReport(w io.Writer, rep refcheck.Report) {
	fmt.Fprintf(w, "Forward references: %d\n", len(rep.Forward))
	for _, p := range rep.Forward {
		fmt.Fprintf(w, "  %s\n", p)
	}
}
