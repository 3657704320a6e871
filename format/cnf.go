package format

import (
	"io"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
)

// ParseCNF reads a plain DIMACS CNF stream: a "p cnf nvars nclauses" header
// followed by clauses of signed literals terminated by 0.
//
// Grounded on gbdc's CNF::BaseFeatures1::extract (src/extract/CNFBaseFeatures.cc):
// one forward pass reading clause-by-clause via readClause.
func ParseCNF(r io.Reader, b *engine.Budget) (*Formula, error) {
	ts := newTokenScanner(r)
	f := &Formula{Kind: Kind(0).CNF()}

	if err := readCNFHeader(ts, f, "cnf"); err != nil {
		return nil, err
	}
	if err := readClauses(ts, f, b, nil); err != nil {
		return nil, err
	}
	return f, nil
}

// readCNFHeader consumes comment lines then the "p <ident> nvars nclauses"
// header line, validating ident.
func readCNFHeader(ts *tokenScanner, f *Formula, wantIdent string) error {
	fields, ok := ts.nextLine("c")
	if !ok {
		return errors.New("format: empty input, expected a DIMACS header")
	}
	if len(fields) < 3 || fields[0] != "p" {
		return errors.Errorf("format: expected DIMACS header, got %q", fields)
	}
	if fields[1] != wantIdent {
		return errors.Errorf("format: expected %q header, got %q", wantIdent, fields[1])
	}
	nvars, err := parseInt32(fields[2])
	if err != nil {
		return err
	}
	f.NVars = int(nvars)
	if len(fields) >= 4 {
		nclauses, err := parseInt32(fields[3])
		if err != nil {
			return err
		}
		f.NClauses = int(nclauses)
	}
	return nil
}

// readClauses reads clauses until EOF, attributing every growth to b. If
// onWeight is non-nil, each clause is preceded by a leading weight token
// consumed by onWeight (used by WCNF's old format).
func readClauses(ts *tokenScanner, f *Formula, b *engine.Budget, onWeight func(tok string) error) error {
	for {
		if onWeight != nil {
			tok, ok := ts.nextToken("c")
			if !ok {
				return nil
			}
			if err := onWeight(tok); err != nil {
				return err
			}
		}

		var clause Clause
		sawAny := false
		for {
			tok, ok := ts.nextToken("c")
			if !ok {
				if sawAny {
					return errors.New("format: clause not terminated by 0 before EOF")
				}
				return nil
			}
			sawAny = true
			lit, err := parseInt32(tok)
			if err != nil {
				return err
			}
			if lit == 0 {
				break
			}
			if err := growSlice(b, (*[]int32)(&clause), lit); err != nil {
				return err
			}
		}
		if err := growSlice(b, &f.Clauses, clause); err != nil {
			return err
		}
	}
}
