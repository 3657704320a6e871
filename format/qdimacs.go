package format

import (
	"io"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
)

// ParseQDIMACS reads a quantified CNF stream: a "p cnf nvars nclauses"
// header, followed by zero or more quantifier block lines ("a ..." or
// "e ..." terminated by 0), followed by the CNF matrix.
func ParseQDIMACS(r io.Reader, b *engine.Budget) (*Formula, error) {
	ts := newTokenScanner(r)
	f := &Formula{Kind: Kind(0).QDIMACS()}

	if err := readCNFHeader(ts, f, "cnf"); err != nil {
		return nil, err
	}

	for {
		fields, ok := ts.nextLine("c")
		if !ok {
			return f, nil
		}
		if fields[0] != "a" && fields[0] != "e" {
			return f, finishQDIMACSMatrix(ts, f, b, fields)
		}
		block, err := parseQuantifierBlock(fields)
		if err != nil {
			return nil, err
		}
		if err := growSlice(b, &f.Prefix, block); err != nil {
			return nil, err
		}
	}
}

func parseQuantifierBlock(fields []string) (QuantifierBlock, error) {
	block := QuantifierBlock{Universal: fields[0] == "a"}
	for _, tok := range fields[1:] {
		v, err := parseInt32(tok)
		if err != nil {
			return QuantifierBlock{}, err
		}
		if v == 0 {
			break
		}
		block.Vars = append(block.Vars, v)
	}
	return block, nil
}

// finishQDIMACSMatrix parses the CNF matrix once the quantifier prefix has
// ended, reusing firstLine (already consumed off the stream) as the first
// clause's leading tokens.
func finishQDIMACSMatrix(ts *tokenScanner, f *Formula, b *engine.Budget, firstLine []string) error {
	var clause Clause
	for _, tok := range firstLine {
		lit, err := parseInt32(tok)
		if err != nil {
			return err
		}
		if lit == 0 {
			if err := growSlice(b, &f.Clauses, clause); err != nil {
				return err
			}
			clause = nil
			continue
		}
		if err := growSlice(b, (*[]int32)(&clause), lit); err != nil {
			return err
		}
	}
	if len(clause) > 0 {
		return errors.New("format: QDIMACS matrix clause not terminated by 0")
	}
	return readClauses(ts, f, b, nil)
}
