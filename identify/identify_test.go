package identify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnfsuite/xpool/engine"
	"github.com/cnfsuite/xpool/format"
)

func runJob(t *testing.T, fn engine.Func, value any) engine.Outcome {
	t.Helper()
	p := engine.New(engine.Config{MemoryCapBytes: 64 * 1024 * 1024, Workers: 1, TimeCap: time.Minute})
	defer p.Shutdown()

	p.Submit("k", value, fn)

	deadline := time.Now().Add(5 * time.Second)
	for {
		if o, ok := p.Poll(); ok {
			return o
		}
		require.False(t, time.Now().After(deadline), "job never completed")
		time.Sleep(time.Millisecond)
	}
}

func TestContentHashStableAcrossEquivalentFormulas(t *testing.T) {
	a := assert.New(t)
	f1 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, -2}, {2}}}
	f2 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, -2}, {2}}}

	o1 := runJob(t, ContentHash, f1)
	o2 := runJob(t, ContentHash, f2)
	require.Equal(t, engine.EStatus.Success(), o1.Status)
	a.Equal(o1.Result["content_hash"], o2.Result["content_hash"])
}

func TestContentHashChangesWithClauseOrder(t *testing.T) {
	a := assert.New(t)
	f1 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, -2}, {2}}}
	f2 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{2}, {1, -2}}}

	o1 := runJob(t, ContentHash, f1)
	o2 := runJob(t, ContentHash, f2)
	a.NotEqual(o1.Result["content_hash"], o2.Result["content_hash"])
}

func TestDegreeHashInvariantUnderVariableRenaming(t *testing.T) {
	a := assert.New(t)
	// f2 is f1 with variables 1 and 2 swapped, a renaming isomorphism.
	f1 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, -2}, {1, 2}}}
	f2 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{2, -1}, {2, 1}}}

	o1 := runJob(t, DegreeHash, f1)
	o2 := runJob(t, DegreeHash, f2)
	require.Equal(t, engine.EStatus.Success(), o1.Status)
	a.Equal(o1.Result["degree_hash"], o2.Result["degree_hash"])
}

func TestDegreeHashDiffersForStructurallyDifferentFormulas(t *testing.T) {
	a := assert.New(t)
	f1 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, -2}, {1, 2}}}
	f2 := &format.Formula{Kind: format.Kind(0).CNF(), NVars: 2, Clauses: []format.Clause{{1, 2, -1}}}

	o1 := runJob(t, DegreeHash, f1)
	o2 := runJob(t, DegreeHash, f2)
	a.NotEqual(o1.Result["degree_hash"], o2.Result["degree_hash"])
}
