package format

import (
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
)

// ParseOPB reads a pseudo-Boolean OPB stream: an optional "* #variable= n
// #constraint= m" comment header, an optional "min: ..." or "max: ..."
// objective line, and a sequence of linear constraints terminated by ";".
//
// Grounded on gbdc's OPB::BaseFeatures (src/extract/OPBBaseFeatures.h): a
// term-sum parser that reads coefficient/literal pairs up to a relational
// operator and a bound.
func ParseOPB(r io.Reader, b *engine.Budget) (*Formula, error) {
	ts := newTokenScanner(r)
	f := &Formula{Kind: Kind(0).OPB()}

	for {
		fields, ok := ts.nextLine("")
		if !ok {
			return f, nil
		}
		if strings.HasPrefix(fields[0], "*") {
			parseOPBHeaderComment(fields, f)
			continue
		}
		if fields[0] == "min:" || fields[0] == "max:" || strings.HasPrefix(fields[0], "min:") || strings.HasPrefix(fields[0], "max:") {
			obj, err := parseOPBTermLine(fields, true)
			if err != nil {
				return nil, err
			}
			f.Objective = obj
			continue
		}
		constr, err := parseOPBTermLine(fields, false)
		if err != nil {
			return nil, err
		}
		if err := growSlice(b, &f.Constraints, constr); err != nil {
			return nil, err
		}
	}
}

// parseOPBHeaderComment extracts "#variable=" / "#constraint=" counts from
// the leading comment line, when present; any other comment is ignored.
func parseOPBHeaderComment(fields []string, f *Formula) {
	joined := strings.Join(fields, " ")
	if idx := strings.Index(joined, "#variable="); idx >= 0 {
		n, _ := scanLeadingInt(joined[idx+len("#variable="):])
		f.NVars = n
	}
	if idx := strings.Index(joined, "#constraint="); idx >= 0 {
		n, _ := scanLeadingInt(joined[idx+len("#constraint="):])
		f.NClauses = n
	}
}

func scanLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9') {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := parseInt32(s[:end])
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// parseOPBTermLine parses "[min:|max:] c1 x1 c2 ~x2 ... [>=|=|<=] bound ;"
// into a Constraint. The objective line has no relational operator or
// bound; isObjective tells the parser not to expect one.
func parseOPBTermLine(fields []string, isObjective bool) (Constraint, error) {
	var c Constraint
	i := 0
	if isObjective {
		i = 1 // skip "min:"/"max:"
	}

	for i < len(fields) {
		tok := fields[i]
		if tok == ";" {
			i++
			continue
		}
		if tok == ">=" || tok == "=" || tok == "<=" {
			if isObjective {
				return Constraint{}, errors.New("format: objective line must not contain a relational operator")
			}
			if i+1 >= len(fields) {
				return Constraint{}, errors.New("format: OPB constraint missing bound")
			}
			bound, err := parseFloat64(strings.TrimSuffix(fields[i+1], ";"))
			if err != nil {
				return Constraint{}, err
			}
			c.Rel, c.Bound = tok, bound
			i += 2
			continue
		}

		coeff, err := parseFloat64(tok)
		if err != nil {
			return Constraint{}, errors.Wrapf(err, "format: expected coefficient, got %q", tok)
		}
		if i+1 >= len(fields) {
			return Constraint{}, errors.New("format: OPB term missing a literal after its coefficient")
		}
		i++
		lit, err := parseOPBLiteral(fields[i])
		if err != nil {
			return Constraint{}, err
		}
		c.Coeffs = append(c.Coeffs, coeff)
		c.Lits = append(c.Lits, lit)
		i++
	}

	if !isObjective && c.Rel == "" {
		return Constraint{}, errors.New("format: OPB constraint missing a relational operator")
	}
	return c, nil
}

// parseOPBLiteral turns "x3" or "~x3" into a signed variable index.
func parseOPBLiteral(tok string) (int32, error) {
	neg := strings.HasPrefix(tok, "~")
	tok = strings.TrimPrefix(tok, "~")
	tok = strings.TrimPrefix(tok, "x")
	n, err := parseInt32(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "format: invalid OPB literal %q", tok)
	}
	if neg {
		return -n, nil
	}
	return n, nil
}
