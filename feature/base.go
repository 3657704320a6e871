// Package feature implements the spec's feature-extraction jobs: each
// exported Func inspects a parsed format.Formula and returns a numeric
// feature vector as an engine.Result.
//
// Grounded on gbdc's CNF::BaseFeatures{,1,2} (src/extract/CNFBaseFeatures.cc):
// variable/clause counts, a clause-length histogram, a clause-byte-size
// estimate, connected-component count, Horn/anti-Horn and
// positive/negative clause counts, per-variable Horn/anti-Horn occurrence
// distributions, per-clause and per-variable positive/negative literal
// balance, and variable-degree statistics over the variable-clause
// incidence graph.
package feature

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/format"
)

// stats holds the five summary statistics gbdc's push_distribution
// computes over a sample: mean, variance, min, max, and Shannon entropy of
// the (normalized) sample as a distribution.
type stats struct {
	mean, variance, min, max, entropy float64
}

func computeStats(xs []float64) stats {
	if len(xs) == 0 {
		return stats{}
	}
	s := stats{min: xs[0], max: xs[0]}
	sum := 0.0
	for _, x := range xs {
		sum += x
		if x < s.min {
			s.min = x
		}
		if x > s.max {
			s.max = x
		}
	}
	s.mean = sum / float64(len(xs))

	varSum := 0.0
	for _, x := range xs {
		d := x - s.mean
		varSum += d * d
	}
	s.variance = varSum / float64(len(xs))

	total := sum
	if total > 0 {
		for _, x := range xs {
			if x <= 0 {
				continue
			}
			p := x / total
			s.entropy -= p * math.Log2(p)
		}
	}
	return s
}

func (s stats) into(out engine.Result, prefix string) {
	out[prefix+"_mean"] = engine.Number(s.mean)
	out[prefix+"_variance"] = engine.Number(s.variance)
	out[prefix+"_min"] = engine.Number(s.min)
	out[prefix+"_max"] = engine.Number(s.max)
	out[prefix+"_entropy"] = engine.Number(s.entropy)
}

// openFormula resolves args.Value into a *format.Formula, accepting either
// a file path (the common case, from corpus.Walk) or an already-parsed
// formula (so tests and callers that parse once can run several
// extractors against the same in-memory formula).
func openFormula(args engine.Args, b *engine.Budget) (*format.Formula, error) {
	switch v := args.Value.(type) {
	case *format.Formula:
		return v, nil
	case string:
		return format.Open(v, b)
	default:
		return nil, errors.Errorf("feature: unsupported argument type %T for key %q", args.Value, args.Key)
	}
}

// Base is the base feature-extraction job (spec's "feature.Base"): variable
// and clause counts, a clause-length histogram, literal balance, and
// variable-degree statistics, plus weight statistics for WCNF and
// constraint-degree statistics for OPB.
func Base(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
	f, err := openFormula(args, b)
	if err != nil {
		return nil, err
	}

	switch f.Kind {
	case format.Kind(0).CNF(), format.Kind(0).WCNF():
		return baseCNFLike(f, b)
	case format.Kind(0).OPB():
		return baseOPB(f, b)
	case format.Kind(0).QDIMACS():
		return baseCNFLike(f, b) // matrix-only statistics; prefix ignored here
	default:
		return nil, errors.Errorf("feature: unsupported formula kind %d", f.Kind)
	}
}

func baseCNFLike(f *format.Formula, b *engine.Budget) (engine.Result, error) {
	out := engine.Result{
		"variables": engine.Number(float64(f.NVars)),
		"clauses":   engine.Number(float64(len(f.Clauses))),
	}

	histogram := make([]float64, 11) // index 10 is "10 or more"
	degree := make([]float64, f.NVars+1)
	posCount := make([]float64, f.NVars+1)
	negCount := make([]float64, f.NVars+1)
	hornVars := make([]float64, f.NVars+1)
	invHornVars := make([]float64, f.NVars+1)
	horn, invHorn, positive, negative := 0, 0, 0, 0
	uf := newUnionFind(f.NVars)
	var balanceClause []float64
	bytes := 0.0

	for _, clause := range f.Clauses {
		if err := b.Grow(int64(len(clause)) * 8); err != nil {
			return nil, err
		}
		bucket := len(clause)
		if bucket > 10 {
			bucket = 10
		}
		histogram[bucket]++
		bytes += 2

		uf.insert(clause)

		nNeg := 0
		for _, lit := range clause {
			v := int(absInt32(lit))
			if v > len(degree)-1 {
				continue // defensive: header undercounted nvars
			}
			degree[v]++
			if lit < 0 {
				nNeg++
				negCount[v]++
			} else {
				posCount[v]++
			}
			bytes += litByteCost(lit)
		}
		nPos := len(clause) - nNeg
		if nNeg <= 1 {
			horn++
			if nNeg == 0 {
				positive++
			}
			for _, lit := range clause {
				if v := int(absInt32(lit)); v <= len(hornVars)-1 {
					hornVars[v]++
				}
			}
		}
		if nPos <= 1 {
			invHorn++
			if nPos == 0 {
				negative++
			}
			for _, lit := range clause {
				if v := int(absInt32(lit)); v <= len(invHornVars)-1 {
					invHornVars[v]++
				}
			}
		}
		if len(clause) > 0 {
			balanceClause = append(balanceClause, math.Min(float64(nPos), float64(nNeg))/math.Max(float64(nPos), float64(nNeg)))
		}
	}

	out["bytes"] = engine.Number(bytes)
	out["ccs"] = engine.Number(float64(uf.countComponents()))

	for i := 1; i <= 10; i++ {
		out["cls"+itoa(i)] = engine.Number(histogram[i])
	}
	out["horn"] = engine.Number(float64(horn))
	out["invhorn"] = engine.Number(float64(invHorn))
	out["positive"] = engine.Number(float64(positive))
	out["negative"] = engine.Number(float64(negative))

	var balanceVars []float64
	for v := 1; v <= f.NVars; v++ {
		pos, neg := posCount[v], negCount[v]
		if math.Max(pos, neg) > 0 {
			balanceVars = append(balanceVars, math.Min(pos, neg)/math.Max(pos, neg))
		}
	}
	computeStats(degree[1:]).into(out, "vdegree")
	computeStats(hornVars[1:]).into(out, "hornvars")
	computeStats(invHornVars[1:]).into(out, "invhornvars")
	computeStats(balanceClause).into(out, "balancecls")
	computeStats(balanceVars).into(out, "balancevars")

	if len(f.Weights) > 0 {
		computeStats(f.Weights).into(out, "weight")
	}

	return out, nil
}

// litByteCost approximates the on-disk byte cost of a single literal the
// way gbdc's BaseFeatures1::extract does: one byte for the sign plus the
// decimal digit count of the variable.
func litByteCost(lit int32) float64 {
	sign := 0.0
	if lit < 0 {
		sign = 1
	}
	v := float64(absInt32(lit))
	return sign + math.Floor(math.Log10(v)) + 1
}

func baseOPB(f *format.Formula, b *engine.Budget) (engine.Result, error) {
	out := engine.Result{
		"variables":   engine.Number(float64(f.NVars)),
		"constraints": engine.Number(float64(len(f.Constraints))),
	}

	degree := make(map[int32]float64)
	var constraintDegrees []float64
	for _, c := range f.Constraints {
		if err := b.Grow(int64(len(c.Lits)) * 8); err != nil {
			return nil, err
		}
		constraintDegrees = append(constraintDegrees, float64(len(c.Lits)))
		for _, lit := range c.Lits {
			degree[absInt32(lit)]++
		}
	}

	degrees := make([]float64, 0, len(degree))
	for _, d := range degree {
		degrees = append(degrees, d)
	}
	computeStats(degrees).into(out, "vdegree")
	computeStats(constraintDegrees).into(out, "condegree")

	return out, nil
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func itoa(n int) string {
	if n == 10 {
		return "10p"
	}
	digits := "0123456789"
	return string(digits[n])
}
