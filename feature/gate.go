package feature

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/format"
)

// Gate is a simplified gate-recognition pass, grounded on gbdc's
// CNF::GateFeatures (src/extract/CNFGateFeatures.h) but reduced from that
// tool's full structural/BCP-based gate detector to clause-pattern matching
// over the variable-clause incidence structure: for each variable v, look
// at the handful of clauses v occurs in and recognize the textbook
// Tseitin encodings of an equivalence, a 2-input AND, or a 2-input OR gate
// with v as output. Anything else is counted as "generic" (some gate-like
// structure exists but wasn't recognized) or "none".
//
// See DESIGN.md's Open Question on gate detection for why this reduced
// form was chosen over porting gbdc's full recognizer.
func Gate(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
	f, err := openFormula(args, b)
	if err != nil {
		return nil, err
	}
	if f.Kind != format.Kind(0).CNF() && f.Kind != format.Kind(0).WCNF() {
		return nil, errors.Errorf("feature: gate detection only supports CNF/WCNF, got kind %d", f.Kind)
	}

	occ := make(map[int32][]int, f.NVars)
	for i, clause := range f.Clauses {
		if err := b.Grow(int64(len(clause)) * 8); err != nil {
			return nil, err
		}
		for _, lit := range clause {
			v := absInt32(lit)
			occ[v] = append(occ[v], i)
		}
	}

	var nEquiv, nAnd, nOr, nGeneric, nNone int
	for v := int32(1); v <= int32(f.NVars); v++ {
		idxs := dedupInts(occ[v])
		switch classifyGate(f, v, idxs) {
		case gateEquiv:
			nEquiv++
		case gateAnd:
			nAnd++
		case gateOr:
			nOr++
		case gateGeneric:
			nGeneric++
		default:
			nNone++
		}
	}

	return engine.Result{
		"gates_equiv":   engine.Number(float64(nEquiv)),
		"gates_and":     engine.Number(float64(nAnd)),
		"gates_or":      engine.Number(float64(nOr)),
		"gates_generic": engine.Number(float64(nGeneric)),
		"gates_none":    engine.Number(float64(nNone)),
	}, nil
}

type gateKind int

const (
	gateNone gateKind = iota
	gateEquiv
	gateAnd
	gateOr
	gateGeneric
)

// classifyGate inspects the (small) set of clauses variable v occurs in and
// matches the 2-clause equivalence encoding or the 3-clause 2-input
// AND/OR Tseitin encoding with v as the defined output.
func classifyGate(f *format.Formula, v int32, idxs []int) gateKind {
	if len(idxs) < 2 {
		return gateNone
	}

	var twoLit [][2]int32 // clauses of exactly 2 literals, as (litWithV, otherLit)
	var threeLit []format.Clause

	for _, i := range idxs {
		cl := f.Clauses[i]
		switch len(cl) {
		case 2:
			a, b := cl[0], cl[1]
			if absInt32(a) == v {
				twoLit = append(twoLit, [2]int32{a, b})
			} else {
				twoLit = append(twoLit, [2]int32{b, a})
			}
		case 3:
			threeLit = append(threeLit, cl)
		}
	}

	if kind := detectEquiv(v, twoLit); kind != gateNone {
		return kind
	}
	if kind := detectAndOr(v, twoLit, threeLit); kind != gateNone {
		return kind
	}
	if len(twoLit)+len(threeLit) > 0 {
		return gateGeneric
	}
	return gateNone
}

// detectEquiv looks for (-v, x) and (v, -x): the 2-clause encoding of v <=> x.
func detectEquiv(v int32, twoLit [][2]int32) gateKind {
	for i := range twoLit {
		for j := range twoLit {
			if i == j {
				continue
			}
			a := twoLit[i]
			bb := twoLit[j]
			if a[0] == -v && bb[0] == v && a[1] == -bb[1] {
				return gateEquiv
			}
		}
	}
	return gateNone
}

// detectAndOr looks for the 2-input Tseitin encoding of v == i1 AND i2 (the
// clauses (-v,i1),(-v,i2),(v,-i1,-i2)) or its De Morgan dual for OR.
func detectAndOr(v int32, twoLit [][2]int32, threeLit []format.Clause) gateKind {
	for _, tri := range threeLit {
		i1, i2, ok := tripleWithOutput(tri, v)
		if !ok {
			continue
		}
		// For AND the triple carries the negated inputs (-i1, -i2).
		if hasImplication(twoLit, -v, -i1) && hasImplication(twoLit, -v, -i2) {
			return gateAnd
		}
		if hasImplication(twoLit, v, -i1) && hasImplication(twoLit, v, -i2) {
			return gateOr
		}
	}
	return gateNone
}

// tripleWithOutput reports whether the 3-literal clause contains exactly
// one occurrence of v or -v, returning the other two literals.
func tripleWithOutput(cl format.Clause, v int32) (int32, int32, bool) {
	if len(cl) != 3 {
		return 0, 0, false
	}
	var rest []int32
	found := false
	for _, lit := range cl {
		if absInt32(lit) == v {
			if found {
				return 0, 0, false // v appears twice, not a valid output clause
			}
			found = true
			continue
		}
		rest = append(rest, lit)
	}
	if !found || len(rest) != 2 {
		return 0, 0, false
	}
	return rest[0], rest[1], true
}

func hasImplication(twoLit [][2]int32, a, b int32) bool {
	for _, pair := range twoLit {
		if pair[0] == a && pair[1] == b {
			return true
		}
	}
	return false
}

func dedupInts(xs []int) []int {
	seen := make(map[int]bool, len(xs))
	out := xs[:0:0]
	for _, x := range xs {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	return out
}
