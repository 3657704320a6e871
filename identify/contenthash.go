// Package identify computes content- and structure-derived identifiers for
// a parsed formula, so identical or isomorphic instances can be recognized
// without a byte-for-byte comparison.
package identify

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/format"
)

// ContentHash hashes a format-normalized byte stream of the formula (clause
// literals and, for WCNF, their weights, in file order — no canonical
// reordering) with xxhash, per the "content hash of a normalized byte
// stream" identifier. Two byte-identical (or gzip/zstd-wrapped-identical)
// files hash the same; a reordering of clauses does not.
//
// Grounded on the teacher's own transitive dependency on
// github.com/cespare/xxhash/v2 (pulled in by its gRPC/opentelemetry stack),
// elevated here to a direct, primary use.
func ContentHash(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
	f, err := openFormula(args, b)
	if err != nil {
		return nil, err
	}

	h := xxhash.New()
	var scratch [8]byte
	writeUint := func(v int64) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(v))
		h.Write(scratch[:])
	}

	if err := b.Grow(int64(len(f.Clauses)) * 8); err != nil {
		return nil, err
	}
	for i, clause := range f.Clauses {
		for _, lit := range clause {
			writeUint(int64(lit))
		}
		if i < len(f.Weights) {
			writeUint(int64(f.Weights[i] * 1e6)) // fixed-point, avoids float bit-pattern fragility across platforms
		}
	}
	for _, c := range f.Constraints {
		for i, lit := range c.Lits {
			writeUint(int64(lit))
			if i < len(c.Coeffs) {
				writeUint(int64(c.Coeffs[i] * 1e6))
			}
		}
		writeUint(int64(c.Bound * 1e6))
	}

	return engine.Result{"content_hash": engine.Text(fmt.Sprintf("%016x", h.Sum64()))}, nil
}

func openFormula(args engine.Args, b *engine.Budget) (*format.Formula, error) {
	switch v := args.Value.(type) {
	case *format.Formula:
		return v, nil
	case string:
		return format.Open(v, b)
	default:
		return nil, errors.Errorf("identify: unsupported argument type %T for key %q", args.Value, args.Key)
	}
}
