package format

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnfsuite/xpool/engine"
)

// runParse drives a single-job pool just to obtain a live *engine.Budget,
// since Budget has no public constructor outside the engine package — every
// parser in this package is meant to run inside a real job.
func runParse(t *testing.T, fn func(b *engine.Budget) error) {
	t.Helper()
	p := engine.New(engine.Config{MemoryCapBytes: 256 * 1024 * 1024, Workers: 1, TimeCap: time.Minute})
	defer p.Shutdown()

	p.Submit("parse", nil, func(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
		return engine.Result{}, fn(b)
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if o, ok := p.Poll(); ok {
			require.NoError(t, o.Err)
			return
		}
		require.False(t, time.Now().After(deadline), "parse job never completed")
		time.Sleep(time.Millisecond)
	}
}

func TestParseCNFBasic(t *testing.T) {
	a := assert.New(t)
	src := "c a comment\np cnf 3 2\n1 -2 0\n2 3 0\n"

	var formula *Formula
	runParse(t, func(b *engine.Budget) error {
		f, err := ParseCNF(strings.NewReader(src), b)
		formula = f
		return err
	})

	require.NotNil(t, formula)
	a.Equal(3, formula.NVars)
	a.Equal(2, formula.NClauses)
	a.Len(formula.Clauses, 2)
	a.Equal(Clause{1, -2}, formula.Clauses[0])
	a.Equal(Clause{2, 3}, formula.Clauses[1])
}

func TestParseCNFRejectsUnterminatedClause(t *testing.T) {
	src := "p cnf 2 1\n1 2"
	var err error
	runParseAllowErr(t, func(b *engine.Budget) error {
		_, err = ParseCNF(strings.NewReader(src), b)
		return nil
	})
	assert.Error(t, err)
}

func TestParseWCNFLegacyFormat(t *testing.T) {
	a := assert.New(t)
	src := "p wcnf 2 2 100\n100 1 2 0\n5 -1 0\n"

	var formula *Formula
	runParse(t, func(b *engine.Budget) error {
		f, err := ParseWCNF(strings.NewReader(src), b)
		formula = f
		return err
	})

	require.NotNil(t, formula)
	a.Equal(2, formula.NVars)
	a.Equal(2, formula.NClauses)
	a.InDelta(100.0, formula.Top, 0.0001)
	a.Len(formula.Weights, 2)
	a.InDelta(100.0, formula.Weights[0], 0.0001)
	a.InDelta(5.0, formula.Weights[1], 0.0001)
}

func TestParseWCNFModernFormat(t *testing.T) {
	a := assert.New(t)
	src := "h 1 2 0\n3 -1 0\n"

	var formula *Formula
	runParse(t, func(b *engine.Budget) error {
		f, err := ParseWCNF(strings.NewReader(src), b)
		formula = f
		return err
	})

	require.NotNil(t, formula)
	a.Len(formula.Clauses, 2)
	a.True(formula.Weights[0] > 1e300) // math.Inf(1) sentinel for hard clauses
	a.InDelta(3.0, formula.Weights[1], 0.0001)
}

func TestParseOPBConstraint(t *testing.T) {
	a := assert.New(t)
	src := "* #variable= 2 #constraint= 1\nmin: 1 x1 2 x2 ;\n1 x1 1 x2 >= 1 ;\n"

	var formula *Formula
	runParse(t, func(b *engine.Budget) error {
		f, err := ParseOPB(strings.NewReader(src), b)
		formula = f
		return err
	})

	require.NotNil(t, formula)
	a.Equal(2, formula.NVars)
	a.Equal(1, formula.NClauses)
	a.Len(formula.Constraints, 1)
	a.Equal(">=", formula.Constraints[0].Rel)
	a.InDelta(1.0, formula.Constraints[0].Bound, 0.0001)
}

func TestParseQDIMACSPrefix(t *testing.T) {
	a := assert.New(t)
	src := "p cnf 3 1\na 1 2 0\ne 3 0\n1 2 3 0\n"

	var formula *Formula
	runParse(t, func(b *engine.Budget) error {
		f, err := ParseQDIMACS(strings.NewReader(src), b)
		formula = f
		return err
	})

	require.NotNil(t, formula)
	require.Len(t, formula.Prefix, 2)
	a.True(formula.Prefix[0].Universal)
	a.False(formula.Prefix[1].Universal)
	a.Len(formula.Clauses, 1)
}

func TestSniffClassifiesAllFourFormats(t *testing.T) {
	a := assert.New(t)
	cases := []struct {
		name string
		src  string
		want Kind
	}{
		{"cnf", "p cnf 1 1\n1 0\n", Kind(0).CNF()},
		{"wcnf-legacy", "p wcnf 1 1 10\n10 1 0\n", Kind(0).WCNF()},
		{"wcnf-modern", "h 1 0\n", Kind(0).WCNF()},
		{"opb", "* #variable= 1 #constraint= 1\n1 x1 >= 1 ;\n", Kind(0).OPB()},
		{"qdimacs", "p cnf 1 1\na 1 0\n1 0\n", Kind(0).QDIMACS()},
	}
	for _, c := range cases {
		kind, _, err := Sniff(strings.NewReader(c.src))
		require.NoError(t, err, c.name)
		a.Equal(c.want, kind, c.name)
	}
}

// runParseAllowErr is like runParse but discards fn's error and always
// completes the job with an empty engine.Result, since
// TestParseCNFRejectsUnterminatedClause captures the parse error through its
// own closure rather than have it trigger a MEMOUT/ERROR outcome.
func runParseAllowErr(t *testing.T, fn func(b *engine.Budget) error) {
	t.Helper()
	p := engine.New(engine.Config{MemoryCapBytes: 256 * 1024 * 1024, Workers: 1, TimeCap: time.Minute})
	defer p.Shutdown()

	p.Submit("parse", nil, func(ctx context.Context, args engine.Args, b *engine.Budget) (engine.Result, error) {
		_ = fn(b)
		return engine.Result{}, nil
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, ok := p.Poll(); ok {
			return
		}
		require.False(t, time.Now().After(deadline), "parse job never completed")
		time.Sleep(time.Millisecond)
	}
}
