// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/524D/qcml/internal/config"
	"github.com/524D/qcml/internal/logging"
	"github.com/524D/qcml/internal/ontology"
	"github.com/524D/qcml/internal/qcml"
	"github.com/524D/qcml/internal/quant"
	"github.com/524D/qcml/internal/refcheck"
)

// Program name and version
const progName = "qcml"

var progVersion = `Unknown`

// Exit codes
const (
	exitOK       = 0
	exitDangling = 1
	exitError    = 2
)

// errDangling is returned by the check command when references do not
// resolve; it maps to exitDangling
var errDangling = errors.New("dangling references")

// errNoOntology means neither OBO files nor a term cache were given
var errNoOntology = errors.New("no ontology: use --obo or set ontology.cache in the config")

// Command line parameters
type params struct {
	configFile    string
	logMode       string
	input         string   // Input file, "-" for stdin
	output        string   // Output file, "-" for stdout
	obo           []string // OBO files to validate CV terms against
	cache         string   // SQLite term cache
	ratioFill     string   // "omit" or "sentinel"
	unknownAction string   // "drop" or "record"
	debug         bool     // Dump extra information (environment variable QCML_DEBUG=1)
}

// env is what a subcommand runs with after flags and config are merged
type env struct {
	par params
	cfg config.Config
	log *zap.Logger
	out io.Writer // Reports for the user
}

// xzReadFile decompresses an .xz input file
type xzReadFile struct {
	*xz.Reader
	f *os.File
}

func (x xzReadFile) Close() error {
	return x.f.Close()
}

// xzWriteFile compresses into an .xz output file
type xzWriteFile struct {
	*xz.Writer
	f *os.File
}

func (x xzWriteFile) Close() error {
	if err := x.Writer.Close(); err != nil {
		x.f.Close()
		return err
	}
	return x.f.Close()
}

// openInput opens a file for reading, decompressing files ending in .xz.
// An empty name or "-" reads stdin.
func openInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".xz") {
		return f, nil
	}
	r, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return xzReadFile{Reader: r, f: f}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// createOutput creates a file for writing, compressing files ending in
// .xz. An empty name or "-" writes to stdout.
func createOutput(name string) (io.WriteCloser, error) {
	if name == "" || name == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".xz") {
		return f, nil
	}
	w, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return xzWriteFile{Writer: w, f: f}, nil
}

func readModel(name string) (*quant.MSQuantifications, error) {
	r, err := openInput(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	var msq quant.MSQuantifications
	d := json.NewDecoder(r)
	if err := d.Decode(&msq); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", name, err)
	}
	return &msq, nil
}

func writeModel(name string, msq *quant.MSQuantifications) error {
	w, err := createOutput(name)
	if err != nil {
		return err
	}
	e := json.NewEncoder(w)
	e.SetIndent(``, `  `) // Make output easier to read for humans
	if err := e.Encode(msq); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func loadOBO(name string) ([]ontology.Term, error) {
	r, err := openInput(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	terms, err := ontology.LoadOBO(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return terms, nil
}

// loadOntology builds the term store. With a cache configured, the OBO
// files are imported into the cache and terms are looked up there;
// otherwise they are kept in memory. The returned function releases the
// store.
func loadOntology(e *env) (ontology.Store, func(), error) {
	files := e.cfg.Ontology.OBO
	if e.cfg.Ontology.Cache != "" {
		db, err := ontology.OpenSQLite(e.cfg.Ontology.Cache)
		if err != nil {
			return nil, nil, err
		}
		for _, name := range files {
			terms, err := loadOBO(name)
			if err == nil {
				err = db.Import(terms)
			}
			if err != nil {
				db.Close()
				return nil, nil, err
			}
			e.log.Info("ontology imported", zap.String("file", name), zap.Int("terms", len(terms)))
		}
		n, err := db.Len()
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		if n == 0 {
			db.Close()
			return nil, nil, errNoOntology
		}
		e.log.Debug("ontology cache", zap.String("path", e.cfg.Ontology.Cache), zap.Int("terms", n))
		return db, func() { db.Close() }, nil
	}

	if len(files) == 0 {
		return nil, nil, errNoOntology
	}
	store := ontology.NewMemStore()
	for _, name := range files {
		terms, err := loadOBO(name)
		if err != nil {
			return nil, nil, err
		}
		for _, t := range terms {
			store.Add(t)
		}
		e.log.Info("ontology loaded", zap.String("file", name), zap.Int("terms", len(terms)))
	}
	return store, func() {}, nil
}

// checkReport prints a reference check report and returns errDangling
// if references do not resolve
func checkReport(w io.Writer, name string, rep refcheck.Report) error {
	fmt.Fprintf(w, "%s: %d ids, %d references, %d forward, %d dangling, %d duplicate ids\n",
		name, rep.IDs, rep.Refs, len(rep.Forward), len(rep.Dangling), len(rep.Duplicates))
	for _, p := range rep.Dangling {
		fmt.Fprintf(w, "  dangling %s\n", p)
	}
	for _, p := range rep.Duplicates {
		fmt.Fprintf(w, "  duplicate %s\n", p)
	}
	if !rep.OK() {
		return errDangling
	}
	return nil
}

// runWrite serializes a JSON model as a qcML report and checks the
// references of the result
func runWrite(e *env) error {
	msq, err := readModel(e.par.input)
	if err != nil {
		return err
	}
	opts, err := e.cfg.WriterOptions()
	if err != nil {
		return err
	}
	opts.Logger = e.log
	w := qcml.NewWriter(opts)

	var doc bytes.Buffer
	if err := w.Write(&doc, msq); err != nil {
		return err
	}
	rep, err := refcheck.Check(bytes.NewReader(doc.Bytes()))
	if err != nil {
		return err
	}
	if e.par.debug {
		debugDumpReport(e.out, rep)
	}
	if !rep.OK() {
		return checkReport(e.out, e.par.output, rep)
	}

	out, err := createOutput(e.par.output)
	if err != nil {
		return err
	}
	if _, err := out.Write(doc.Bytes()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	e.log.Info("report written",
		zap.String("file", e.par.output),
		zap.Int("bytes", doc.Len()),
		zap.Int("warnings", len(w.Warnings())))
	return nil
}

// runRead parses a qcML report and writes the model as JSON
func runRead(e *env) error {
	store, release, err := loadOntology(e)
	if err != nil {
		return err
	}
	defer release()
	opts, err := e.cfg.ReaderOptions()
	if err != nil {
		return err
	}
	opts.Ontology = store
	opts.Logger = e.log

	in, err := openInput(e.par.input)
	if err != nil {
		return err
	}
	defer in.Close()
	msq, warnings, err := qcml.Read(in, opts)
	if err != nil {
		return err
	}
	if e.par.debug {
		debugDumpWarnings(e.out, warnings)
		debugDumpModel(e.out, msq)
	}
	e.log.Info("report read", zap.String("file", e.par.input), zap.Int("warnings", len(warnings)))
	return writeModel(e.par.output, msq)
}

// runCheck reports the reference integrity of a qcML report
func runCheck(e *env) error {
	in, err := openInput(e.par.input)
	if err != nil {
		return err
	}
	defer in.Close()
	rep, err := refcheck.Check(in)
	if err != nil {
		return err
	}
	if e.par.debug {
		debugDumpReport(e.out, rep)
	}
	return checkReport(e.out, e.par.input, rep)
}

// setup loads the config, applies the flags that were set on the command
// line and builds the logger
func setup(cmd *cobra.Command, par params) (*env, error) {
	cfg, err := config.Load(par.configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.Log.Mode = par.logMode
	}
	if flags.Changed("obo") {
		cfg.Ontology.OBO = par.obo
	}
	if flags.Changed("cache") {
		cfg.Ontology.Cache = par.cache
	}
	if flags.Changed("ratio-fill") {
		cfg.Writer.RatioFill = par.ratioFill
	}
	if flags.Changed("unknown-action") {
		cfg.Reader.UnknownAction = par.unknownAction
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Mode)
	if err != nil {
		return nil, err
	}
	// Check if debug output should be enabled
	par.debug = os.Getenv("QCML_DEBUG") == `1`
	return &env{par: par, cfg: cfg, log: log, out: cmd.OutOrStdout()}, nil
}

func versionString() string {
	if progVersion == `Unknown` {
		return `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
	}
	return progVersion
}

func newRootCmd() *cobra.Command {
	var par params

	run := func(f func(*env) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd, par)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			return f(e)
		}
	}

	root := &cobra.Command{
		Use:   progName,
		Short: "Read, write and check qcML quantification reports",
		Long: `This program converts between quantification results and qcML reports.

A report is written from a JSON encoded quantification model. When a report
is read, every CV annotation is validated against the ontologies given with
--obo, and the model is written as JSON.

Files ending in .xz are compressed and decompressed transparently.

ENVIRONMENT VARIABLES:
    When environment variable QCML_DEBUG=1, the model, the document warnings
    and the reference check are printed in more detail.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&par.configFile, "config", "", "YAML configuration `file`")
	root.PersistentFlags().StringVar(&par.logMode, "log", "", "log `mode`: development, production or quiet")

	writeCmd := &cobra.Command{
		Use:   "write",
		Short: "Write a qcML report from a JSON model",
		Example: fmt.Sprintf(`  %s write -i silac.json -o silac.qcML
  %s write --ratio-fill sentinel -i silac.json -o silac.qcML.xz`, progName, progName),
		Args: cobra.NoArgs,
		RunE: run(runWrite),
	}
	writeCmd.Flags().StringVarP(&par.input, "input", "i", "-", "JSON model `file`")
	writeCmd.Flags().StringVarP(&par.output, "output", "o", "-", "qcML report `file`")
	writeCmd.Flags().StringVar(&par.ratioFill, "ratio-fill", "",
		`how absent ratios are written: "omit" packs the ratios a feature has,
"sentinel" writes the ratio sentinel in their column`)

	readCmd := &cobra.Command{
		Use:     "read",
		Short:   "Read a qcML report into a JSON model",
		Example: fmt.Sprintf(`  %s read --obo psi-ms.obo --obo PSI-MOD.obo -i silac.qcML -o silac.json`, progName),
		Args:    cobra.NoArgs,
		RunE:    run(runRead),
	}
	readCmd.Flags().StringVarP(&par.input, "input", "i", "-", "qcML report `file`")
	readCmd.Flags().StringVarP(&par.output, "output", "o", "-", "JSON model `file`")
	readCmd.Flags().StringArrayVar(&par.obo, "obo", nil, "ontology `file` in OBO format (repeatable)")
	readCmd.Flags().StringVar(&par.cache, "cache", "", "SQLite term cache `file`")
	readCmd.Flags().StringVar(&par.unknownAction, "unknown-action", "",
		`what to do with unknown processing actions: "drop" or "record"`)

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check the cross references of a qcML report",
		Long: `Check resolves every reference of a qcML report against the ids in it.
The exit status is 1 if a reference does not resolve or an id is not unique.`,
		Args: cobra.NoArgs,
		RunE: run(runCheck),
	}
	checkCmd.Flags().StringVarP(&par.input, "input", "i", "-", "qcML report `file`")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show software version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s version %s\n", progName, versionString())
		},
	}

	root.AddCommand(writeCmd, readCmd, checkCmd, versionCmd)
	return root
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errDangling):
		return exitDangling
	}
	return exitError
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(os.Args[0]), err)
	}
	os.Exit(exitCode(err))
}
