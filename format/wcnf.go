package format

import (
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
)

// ParseWCNF reads a weighted CNF stream in either supported shape:
//   - legacy WDIMACS: "p wcnf nvars nclauses top", each clause preceded by
//     an integer weight; a weight equal to top marks a hard clause.
//   - WCNF 2022: no "p" header; each line is either "h <clause> 0" (hard)
//     or "<weight> <clause> 0" (soft).
//
// Grounded on gbdc's WCNF::isohash (src/identify/ISOHash.h), which is the
// only place in the original tool that actually disambiguates the two wire
// shapes by sniffing for a "p" vs "h" leading token.
func ParseWCNF(r io.Reader, b *engine.Budget) (*Formula, error) {
	ts := newTokenScanner(r)
	f := &Formula{Kind: Kind(0).WCNF()}

	fields, ok := ts.nextLine("c")
	if !ok {
		return nil, errors.New("format: empty input, expected a WCNF stream")
	}

	if fields[0] == "p" {
		if len(fields) < 5 || fields[1] != "wcnf" {
			return nil, errors.Errorf("format: expected \"p wcnf\" header, got %q", fields)
		}
		nvars, err := parseInt32(fields[2])
		if err != nil {
			return nil, err
		}
		nclauses, err := parseInt32(fields[3])
		if err != nil {
			return nil, err
		}
		top, err := parseFloat64(fields[4])
		if err != nil {
			return nil, err
		}
		f.NVars, f.NClauses, f.Top = int(nvars), int(nclauses), top
		return f, readLegacyWCNFBody(ts, f, b)
	}

	return f, readModernWCNFBody(ts, f, b, fields)
}

func readLegacyWCNFBody(ts *tokenScanner, f *Formula, b *engine.Budget) error {
	return readClauses(ts, f, b, func(tok string) error {
		w, err := parseFloat64(tok)
		if err != nil {
			return err
		}
		return growSlice(b, &f.Weights, w)
	})
}

// readModernWCNFBody handles the WCNF 2022 shape, where firstLine has
// already been consumed from the stream by the caller's header sniff.
func readModernWCNFBody(ts *tokenScanner, f *Formula, b *engine.Budget, firstLine []string) error {
	line := firstLine
	for {
		clause, weight, isHard, err := parseModernWCNFLine(line)
		if err != nil {
			return err
		}
		var vals []int32
		for _, lit := range clause {
			if err := growSlice(b, &vals, lit); err != nil {
				return err
			}
		}
		if err := growSlice(b, &f.Clauses, Clause(vals)); err != nil {
			return err
		}
		if isHard {
			if err := growSlice(b, &f.Weights, math.Inf(1)); err != nil {
				return err
			}
		} else {
			if err := growSlice(b, &f.Weights, weight); err != nil {
				return err
			}
		}

		for _, lit := range vals {
			if v := absInt32(lit); int(v) > f.NVars {
				f.NVars = int(v)
			}
		}
		f.NClauses++

		var ok bool
		line, ok = ts.nextLine("c")
		if !ok {
			return nil
		}
	}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func parseModernWCNFLine(fields []string) (clause []int32, weight float64, isHard bool, err error) {
	if len(fields) == 0 {
		return nil, 0, false, errors.New("format: empty WCNF line")
	}
	i := 0
	if fields[0] == "h" {
		isHard = true
		i = 1
	} else {
		weight, err = parseFloat64(fields[0])
		if err != nil {
			return nil, 0, false, err
		}
		i = 1
	}
	for ; i < len(fields); i++ {
		lit, perr := parseInt32(fields[i])
		if perr != nil {
			return nil, 0, false, perr
		}
		if lit == 0 {
			break
		}
		clause = append(clause, lit)
	}
	return clause, weight, isHard, nil
}
