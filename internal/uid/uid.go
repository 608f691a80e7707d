// Package uid provides process-wide unique 64-bit identifiers and the
// prefixed reference strings built from them.
package uid

import (
	"encoding/binary"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// Source produces identifiers that are distinct for the lifetime of the
// source
type Source interface {
	Next() uint64
}

// Generator is a Source backed by an atomic counter. It is safe for
// concurrent use.
type Generator struct {
	n atomic.Uint64
}

// NewGenerator returns a generator with a random starting point. The top
// bit is cleared to leave room before wrap-around.
func NewGenerator() *Generator {
	u := uuid.New()
	g := &Generator{}
	g.n.Store(binary.BigEndian.Uint64(u[:8]) >> 1)
	return g
}

// NewSequence returns a generator whose first id is start. Used where
// reproducible output is needed.
func NewSequence(start uint64) *Generator {
	g := &Generator{}
	g.n.Store(start - 1)
	return g
}

// Next implements Source
func (g *Generator) Next() uint64 {
	return g.n.Add(1)
}

var std = NewGenerator()

// Next returns the next id of the process-wide generator
func Next() uint64 {
	return std.Next()
}

// Default returns the process-wide generator
func Default() Source {
	return std
}

// Prefix names the kind of entity a reference points to
type Prefix string

// Reference prefixes, one per entity kind
const (
	Software             Prefix = "sw_"
	DataProcessing       Prefix = "dp_"
	RawFilesGroup        Prefix = "rfg_"
	RawFile              Prefix = "rf_"
	Assay                Prefix = "a_"
	Feature              Prefix = "f_"
	PeptideConsensus     Prefix = "c_"
	Ratio                Prefix = "r_"
	StudyVariable        Prefix = "v_"
	PeptideConsensusList Prefix = "m_"
	SearchDatabase       Prefix = "sdb_"
	IdentificationFile   Prefix = "idf_"
	QuantLayer           Prefix = "q_"
)

// Ref is a reference string: prefix followed by the decimal id. Refs
// with different prefixes never compare equal, even for the same id.
type Ref string

// Format builds the reference for an existing id
func Format(p Prefix, id uint64) Ref {
	return Ref(string(p) + strconv.FormatUint(id, 10))
}

// Allocator hands out new references
type Allocator struct {
	src Source
}

// NewAllocator returns an allocator drawing ids from src. A nil src
// uses the process-wide generator.
func NewAllocator(src Source) *Allocator {
	if src == nil {
		src = std
	}
	return &Allocator{src: src}
}

// Allocate returns a fresh reference with prefix p
func (a *Allocator) Allocate(p Prefix) Ref {
	return Format(p, a.src.Next())
}

// ID returns a fresh numeric id without prefix
func (a *Allocator) ID() uint64 {
	return a.src.Next()
}
