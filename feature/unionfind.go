package feature

import "github.com/cnfsuite/xpool/format"

// unionFind computes the number of connected components over the
// variable-incidence graph: two variables are connected whenever they
// co-occur in a clause. Grounded on gbdc's UnionFind (src/util/UnionFind.h,
// src/util/UnionFind.cc): a clause is inserted by walking its literals,
// finding each one's root, and repeatedly re-rooting onto whichever root is
// smallest so far; count_components then counts the fixed points of
// find(parent[i]).
//
// Unlike gbdc's streaming vwrapper, which grows its parent vector lazily
// because it doesn't know the variable count up front, this port is handed
// f.NVars before the first insert and allocates the parent slice once.
type unionFind struct {
	parent []int32
}

func newUnionFind(nvars int) *unionFind {
	parent := make([]int32, nvars+1)
	for i := range parent {
		parent[i] = int32(i)
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(v int32) int32 {
	if u.parent[v] == v {
		return v
	}
	u.parent[v] = u.find(u.parent[v])
	return u.parent[v]
}

func (u *unionFind) insert(clause format.Clause) {
	if len(clause) == 0 {
		return
	}
	minVar := absInt32(clause[0])
	for _, lit := range clause {
		par := u.find(absInt32(lit))
		if minVar > par {
			u.parent[minVar] = par
			minVar = par
		} else {
			u.parent[par] = minVar
		}
	}
}

func (u *unionFind) countComponents() int {
	n := 0
	for i := 1; i < len(u.parent); i++ {
		if int32(i) == u.find(u.parent[i]) {
			n++
		}
	}
	return n
}
