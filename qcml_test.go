package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/524D/qcml/internal/quant"
)

const testOBO = `format-version: 1.2
default-namespace: MS

[Term]
id: MS:1001141
name: intensity of precursor ion

[Term]
id: MS:1000086
name: full width at half-maximum

[Term]
id: MS:1002038
name: unlabeled sample
`

func testModel() *quant.MSQuantifications {
	return &quant.MSQuantifications{
		Summary: quant.AnalysisSummary{QuantType: quant.QuantMS1Label},
		DataProcessing: []quant.DataProcessing{{
			Software: quant.Software{Name: "FeatureFinderCentroided", Version: "1.11"},
			Actions:  quant.ActionSet{quant.ActionQuantitation},
		}},
		Assays: []quant.Assay{{
			UID:      3,
			RawFiles: []quant.RawFile{{Path: "run1.mzML"}},
		}},
		ConsensusMaps: []quant.ConsensusMap{{
			Features: []quant.ConsensusFeature{{
				Charge: 2,
				Handles: []quant.FeatureHandle{
					{MapIndex: 0, UniqueID: 17, RT: 100, MZ: 400.5, Charge: 2, Intensity: 1000, Width: 4},
				},
			}},
		}},
	}
}

// execute runs the command line in args and returns its standard output
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append(args, "--log", "quiet"))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.Execute()
	return out.String(), err
}

func TestCompressedFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"plain.txt", "packed.txt.xz"} {
		path := filepath.Join(dir, name)
		w, err := createOutput(path)
		if err != nil {
			t.Fatalf("createOutput %s: %v", name, err)
		}
		if _, err := io.WriteString(w, "qcML\n"); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close %s: %v", name, err)
		}

		r, err := openInput(path)
		if err != nil {
			t.Fatalf("openInput %s: %v", name, err)
		}
		got, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != "qcML\n" {
			t.Errorf("%s: expected %q, got %q", name, "qcML\n", got)
		}
	}

	raw, err := os.ReadFile(filepath.Join(dir, "packed.txt.xz"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}) {
		t.Errorf("packed.txt.xz does not start with the xz magic")
	}
}

func TestWriteCheckRead(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	report := filepath.Join(dir, "report.qcML.xz")
	obo := filepath.Join(dir, "psi-ms.obo")
	back := filepath.Join(dir, "back.json")
	if err := writeModel(model, testModel()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(obo, []byte(testOBO), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "write", "-i", model, "-o", report); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := execute(t, "check", "-i", report)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, " 0 dangling, 0 duplicate ids") {
		t.Errorf("unexpected check report %q", out)
	}
	if _, err := execute(t, "read", "--obo", obo, "-i", report, "-o", back); err != nil {
		t.Fatalf("read: %v", err)
	}

	got, err := readModel(back)
	if err != nil {
		t.Fatal(err)
	}
	want := testModel()
	if got.Summary.QuantType != want.Summary.QuantType {
		t.Errorf("expected quant type %s, got %s", want.Summary.QuantType, got.Summary.QuantType)
	}
	if diff := cmp.Diff(want.Assays, got.Assays); diff != "" {
		t.Errorf("assays mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.DataProcessing[0].Actions, got.DataProcessing[0].Actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
	if len(got.ConsensusMaps) != 1 || len(got.ConsensusMaps[0].Features) != 1 {
		t.Fatalf("expected one consensus feature, got %+v", got.ConsensusMaps)
	}
	if diff := cmp.Diff(want.ConsensusMaps[0].Features[0].Handles, got.ConsensusMaps[0].Features[0].Handles); diff != "" {
		t.Errorf("handles mismatch (-want +got):\n%s", diff)
	}
}

func TestReadWithCache(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	report := filepath.Join(dir, "report.qcML")
	obo := filepath.Join(dir, "psi-ms.obo")
	cache := filepath.Join(dir, "terms.db")
	if err := writeModel(model, testModel()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(obo, []byte(testOBO), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "write", "-i", model, "-o", report); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := execute(t, "read", "-i", report, "-o", filepath.Join(dir, "none.json"))
	if !errors.Is(err, errNoOntology) {
		t.Errorf("expected %v, got %v", errNoOntology, err)
	}
	// The first run fills the cache, the second one only uses it
	if _, err := execute(t, "read", "--cache", cache, "--obo", obo, "-i", report, "-o", filepath.Join(dir, "a.json")); err != nil {
		t.Fatalf("read with import: %v", err)
	}
	if _, err := execute(t, "read", "--cache", cache, "-i", report, "-o", filepath.Join(dir, "b.json")); err != nil {
		t.Fatalf("read from cache: %v", err)
	}
	a, err := os.ReadFile(filepath.Join(dir, "a.json"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "b.json"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(string(a), string(b)); diff != "" {
		t.Errorf("models differ (-import +cache):\n%s", diff)
	}
}

func TestCheckDangling(t *testing.T) {
	report := filepath.Join(t.TempDir(), "broken.qcML")
	doc := `<qcMLType>
	<AssayList id="assaylist1">
		<Assay id="a_1" rawFilesGroup_ref="rfg_2"/>
	</AssayList>
</qcMLType>`
	if err := os.WriteFile(report, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "check", "-i", report)
	if !errors.Is(err, errDangling) {
		t.Fatalf("expected %v, got %v", errDangling, err)
	}
	if code := exitCode(err); code != exitDangling {
		t.Errorf("expected exit code %d, got %d", exitDangling, code)
	}
	if !strings.Contains(out, `dangling <Assay rawFilesGroup_ref="rfg_2">`) {
		t.Errorf("dangling reference not reported in %q", out)
	}
}

func TestDebugOutput(t *testing.T) {
	t.Setenv("QCML_DEBUG", "1")
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	report := filepath.Join(dir, "report.qcML")
	obo := filepath.Join(dir, "psi-ms.obo")
	if err := writeModel(model, testModel()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(obo, []byte(testOBO), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "write", "-i", model, "-o", report)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(out, "Forward references: ") {
		t.Errorf("no reference dump in %q", out)
	}
	out, err = execute(t, "read", "--obo", obo, "-i", report, "-o", filepath.Join(dir, "back.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{
		"Quantitation type: MS1LABEL",
		"Step 1: FeatureFinderCentroided 1.11 [Quantitation]",
		"Assay 3: 0 label(s), 1 raw file(s)",
		"Consensus map 0: 1 features, 1 handles",
		"UnknownTerm: ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("%q not in debug output:\n%s", want, out)
		}
	}
}

func TestInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "model.json")
	if err := writeModel(model, testModel()); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "write", "--ratio-fill", "zero", "-i", model, "-o", filepath.Join(dir, "x.qcML")); err == nil {
		t.Errorf("expected error for unknown ratio fill")
	}
	if _, err := execute(t, "check", "extra"); err == nil {
		t.Errorf("expected error for positional argument")
	}
	if code := exitCode(errors.New("other")); code != exitError {
		t.Errorf("expected exit code %d, got %d", exitError, code)
	}
}
