package funnel

import (
	"container/heap"
	"math"
	"slices"
)

// rankedRow is everything the selector is allowed to see of a Stage0Result.
type rankedRow struct {
	value float64
	id    int
}

// outranks reports whether a sorts before b: proxy value descending, then param_id
// ascending. NaN sorts after every number including -Inf, so the order is total.
func outranks(a, b rankedRow) bool {
	aNaN, bNaN := math.IsNaN(a.value), math.IsNaN(b.value)
	switch {
	case aNaN && bNaN:
		return a.id < b.id
	case aNaN:
		return false
	case bNaN:
		return true
	case a.value != b.value:
		return a.value > b.value
	default:
		return a.id < b.id
	}
}

func compareRanked(a, b rankedRow) int {
	switch {
	case outranks(a, b):
		return -1
	case outranks(b, a):
		return 1
	default:
		return 0
	}
}

// SelectTopK returns the param_ids of the k best results, best first.
// Ordering is proxy value descending with ties broken by param_id ascending; no
// other field of Stage0Result is read. The result has length min(k, len(results));
// k <= 0 yields an empty selection.
func SelectTopK(results []Stage0Result, k int) []int {
	if k <= 0 || len(results) == 0 {
		return []int{}
	}
	k = min(k, len(results))

	var ranked []rankedRow
	if k*4 < len(results) {
		ranked = selectByHeap(results, k)
	} else {
		ranked = make([]rankedRow, len(results))
		for i, r := range results {
			ranked[i] = rankedRow{value: r.ProxyValue, id: r.ParamID}
		}
		slices.SortFunc(ranked, compareRanked)
		ranked = ranked[:k]
	}

	ids := make([]int, k)
	for i, r := range ranked {
		ids[i] = r.id
	}
	return ids
}

// worstFirst is a heap whose root is the lowest-ranked row kept so far.
type worstFirst []rankedRow

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return outranks(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x any) {
	*h = append(*h, x.(rankedRow))
}

func (h *worstFirst) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// selectByHeap keeps the k best rows in O(n log k) and returns them best first.
func selectByHeap(results []Stage0Result, k int) []rankedRow {
	h := make(worstFirst, 0, k)
	for _, r := range results {
		row := rankedRow{value: r.ProxyValue, id: r.ParamID}
		if h.Len() < k {
			heap.Push(&h, row)
			continue
		}
		if outranks(row, h[0]) {
			h[0] = row
			heap.Fix(&h, 0)
		}
	}
	out := []rankedRow(h)
	slices.SortFunc(out, compareRanked)
	return out
}
