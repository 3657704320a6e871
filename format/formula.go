// Package format parses the Boolean-constraint benchmark formats the
// engine is built to chew through: DIMACS CNF, WDIMACS/WCNF, pseudo-Boolean
// OPB, and QDIMACS. The spec treats parsing as an external collaborator; this
// package is the concrete implementation that exercises the engine against
// something real.
//
// Grounded on gbdc's StreamBuffer-driven readers (src/util/StreamBuffer.h,
// src/extract/CNFBaseFeatures.cc, src/extract/OPBBaseFeatures.cc): a single
// forward scan that classifies tokens by leading character, expressed here
// as a bufio.Scanner-based reader instead of gbdc's custom mmap buffer.
package format

import "github.com/cnfsuite/xpool/engine"

// Kind identifies which of the four supported formats a Formula holds.
type Kind uint8

func (Kind) CNF() Kind      { return Kind(0) }
func (Kind) WCNF() Kind     { return Kind(1) }
func (Kind) OPB() Kind      { return Kind(2) }
func (Kind) QDIMACS() Kind  { return Kind(3) }

// Clause is a list of signed literals; a positive value is the literal
// itself, a negative value its negation. Variable indices are 1-based, as
// in DIMACS.
type Clause []int32

// Constraint is one linear pseudo-Boolean constraint: sum(Coeffs[i] *
// literal(Lits[i])) Rel Bound.
type Constraint struct {
	Lits   []int32
	Coeffs []float64
	Rel    string // ">=", "=", or "<="
	Bound  float64
}

// QuantifierBlock is one alternating block of a QDIMACS prefix.
type QuantifierBlock struct {
	Universal bool
	Vars      []int32
}

// Formula is the parsed form of any one of the four supported formats. Only
// the fields relevant to Kind are populated.
type Formula struct {
	Kind Kind

	NVars    int
	NClauses int

	// CNF / WCNF
	Clauses []Clause
	Weights []float64 // parallel to Clauses; empty for plain CNF
	Top     float64   // WCNF hard-clause sentinel weight, 0 if unused (new format)

	// OPB
	Objective   Constraint // zero value if the instance has no objective; its Rel is always ""
	Constraints []Constraint

	// QDIMACS
	Prefix []QuantifierBlock
}

// growSlice appends item to *s, attributing the slice's growth to b. It is
// the one helper every parser in this package routes append-driven growth
// through, per the budget-interception design described on engine.Budget.
func growSlice[T any](b *engine.Budget, s *[]T, item T) error {
	const approxElemBytes = 32 // conservative estimate; exactness does not matter, only monotonicity does
	if cap(*s) == len(*s) {
		if err := b.Grow(int64(approxElemBytes) * int64(max(1, cap(*s)))); err != nil {
			return err
		}
	}
	*s = append(*s, item)
	return nil
}
