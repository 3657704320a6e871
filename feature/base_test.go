package feature

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

func TestBaseCNFCountsAndHistogram(t *testing.T) {
	a := assert.New(t)
	f := &format.Formula{
		Kind:  format.Kind(0).CNF(),
		NVars: 3,
		Clauses: []format.Clause{
			{1, -2},
			{2, 3, -1},
			{-1},
		},
	}

	o := runJob(t, Base, f)
	require.Equal(t, engine.EStatus.Success(), o.Status)

	vars, _ := o.Result["variables"].Float()
	clauses, _ := o.Result["clauses"].Float()
	cls1, _ := o.Result["cls1"].Float()
	cls2, _ := o.Result["cls2"].Float()
	cls3, _ := o.Result["cls3"].Float()

	a.Equal(3.0, vars)
	a.Equal(3.0, clauses)
	a.Equal(1.0, cls1)
	a.Equal(1.0, cls2)
	a.Equal(1.0, cls3)
}

func TestBaseCNFConnectivityAndDistributions(t *testing.T) {
	a := assert.New(t)
	f := &format.Formula{
		Kind:  format.Kind(0).CNF(),
		NVars: 3,
		Clauses: []format.Clause{
			{1, -2},
			{2, 3, -1},
			{-1},
		},
	}

	o := runJob(t, Base, f)
	require.Equal(t, engine.EStatus.Success(), o.Status)

	ccs, _ := o.Result["ccs"].Float()
	bytes, _ := o.Result["bytes"].Float()
	hornMean, _ := o.Result["hornvars_mean"].Float()
	invHornMean, _ := o.Result["invhornvars_mean"].Float()
	balanceClsMean, _ := o.Result["balancecls_mean"].Float()

	// every variable is reachable from every other through the three
	// clauses, so there is exactly one connected component.
	a.Equal(1.0, ccs)
	a.Equal(15.0, bytes)
	a.Equal(2.0, hornMean)
	a.Equal(1.0, invHornMean)
	a.Equal(0.5, balanceClsMean)
}

func TestBaseOPBConstraintDegree(t *testing.T) {
	a := assert.New(t)
	f := &format.Formula{
		Kind:  format.Kind(0).OPB(),
		NVars: 2,
		Constraints: []format.Constraint{
			{Lits: []int32{1, 2}, Coeffs: []float64{1, 1}, Rel: ">=", Bound: 1},
		},
	}

	o := runJob(t, Base, f)
	require.Equal(t, engine.EStatus.Success(), o.Status)

	constraints, _ := o.Result["constraints"].Float()
	a.Equal(1.0, constraints)
}

func TestGateDetectsEquivalence(t *testing.T) {
	a := assert.New(t)
	// v(2) <=> v(1): clauses (-2,1),(2,-1)
	f := &format.Formula{
		Kind:  format.Kind(0).CNF(),
		NVars: 2,
		Clauses: []format.Clause{
			{-2, 1},
			{2, -1},
		},
	}

	o := runJob(t, Gate, f)
	require.Equal(t, engine.EStatus.Success(), o.Status)
	equiv, _ := o.Result["gates_equiv"].Float()
	// each variable is classified on its own, and both v1 and v2 match the
	// equivalence pattern as output
	a.Equal(2.0, equiv)
}

func TestGateDetectsAndGate(t *testing.T) {
	a := assert.New(t)
	// v3 = v1 AND v2: (-3,1),(-3,2),(3,-1,-2)
	f := &format.Formula{
		Kind:  format.Kind(0).CNF(),
		NVars: 3,
		Clauses: []format.Clause{
			{-3, 1},
			{-3, 2},
			{3, -1, -2},
		},
	}

	o := runJob(t, Gate, f)
	require.Equal(t, engine.EStatus.Success(), o.Status)
	and, _ := o.Result["gates_and"].Float()
	a.Equal(1.0, and)
}

func TestBaseRejectsUnsupportedArgType(t *testing.T) {
	o := runJob(t, Base, 42)
	assert.Equal(t, engine.EStatus.Error(), o.Status)
}
