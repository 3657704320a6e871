package identify

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/cnfsuite/xpool/engine"
)

// degreeNode mirrors gbdc's ISOHash node: the negative- and
// positive-literal occurrence counts for one variable.
type degreeNode struct {
	neg, pos uint64
}

// DegreeHash is an isomorphism-invariant hash: it sorts the multiset of
// (min,max) per-variable literal-occurrence pairs — polarity-normalized so
// a blanket sign flip of a variable doesn't change its node — and hashes
// the sorted sequence, so two formulas related only by a variable renaming
// (and/or per-variable polarity flip) hash identically.
//
// Grounded on gbdc's CNF::isohash (src/identify/ISOHash.h): same
// degree-sequence construction and polarity normalization, xxhash in place
// of MD5 since the pack's identify story already centers on xxhash.
func DegreeHash(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
	f, err := openFormula(args, b)
	if err != nil {
		return nil, err
	}

	nodes := make([]degreeNode, f.NVars+1)
	clauseLens := make([]float64, 0, len(f.Clauses))

	if err := b.Grow(int64(len(f.Clauses)) * 8); err != nil {
		return nil, err
	}
	for _, clause := range f.Clauses {
		clauseLens = append(clauseLens, float64(len(clause)))
		for _, lit := range clause {
			v := lit
			if v < 0 {
				v = -v
			}
			if int(v) >= len(nodes) {
				grown := make([]degreeNode, v+1)
				copy(grown, nodes)
				nodes = grown
			}
			if lit < 0 {
				nodes[v].neg++
			} else {
				nodes[v].pos++
			}
		}
	}

	for i := range nodes {
		if nodes[i].pos < nodes[i].neg {
			nodes[i].neg, nodes[i].pos = nodes[i].pos, nodes[i].neg
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].neg != nodes[j].neg {
			return nodes[i].neg < nodes[j].neg
		}
		return nodes[i].pos < nodes[j].pos
	})
	sort.Float64s(clauseLens)

	h := xxhash.New()
	var scratch [8]byte
	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(scratch[:], v)
		h.Write(scratch[:])
	}
	for _, n := range nodes {
		if n.neg == 0 && n.pos == 0 {
			continue // gap (unused variable index), skip for invariance against numbering gaps
		}
		writeUint(n.neg)
		writeUint(n.pos)
	}
	for _, l := range clauseLens {
		writeUint(uint64(l))
	}

	return engine.Result{"degree_hash": engine.Text(fmt.Sprintf("%016x", h.Sum64()))}, nil
}
