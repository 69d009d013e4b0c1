package engine

// BoundedRanking is a sorted linear array of docids, capacity k,
// descending by the owning accumulators' current value (C5). The
// source calls this a "fake heap"; it is a sorted array, not a heap —
// named BoundedRanking here to avoid that confusion. Complexity is
// O(k) per insert, deliberate: k is small and ordered iteration at the
// end is required anyway.
type BoundedRanking struct {
	acc   *accumulators
	k     int
	items []uint64 // docids, size <= k, descending by acc.get(docid)
}

func newBoundedRanking(acc *accumulators, k int) *BoundedRanking {
	return &BoundedRanking{acc: acc, k: k, items: make([]uint64, 0, k)}
}

func (r *BoundedRanking) clear() {
	r.items = r.items[:0]
}

// Len reports the current number of ranked docids.
func (r *BoundedRanking) Len() int {
	return len(r.items)
}

// At returns the docid at rank i (0-based, 0 is highest score).
func (r *BoundedRanking) At(i int) uint64 {
	return r.items[i]
}

func (r *BoundedRanking) scoreAt(i int) uint64 {
	return r.acc.get(r.items[i])
}

// Insert applies the dedup-first insertion semantics of §4.5: if docid
// is already present, it is removed first (a later term may touch the
// same document again at a lower qscore, after its accumulator has
// already grown), then re-inserted at the position its current score
// now earns.
func (r *BoundedRanking) Insert(docid uint64, score uint64) {
	r.removeIfPresent(docid)

	n := len(r.items)

	if n == 0 {
		r.items = append(r.items, docid)
		return
	}

	if n == r.k {
		if score <= r.scoreAt(n-1) {
			return
		}
		i := 0
		for i < n && score < r.scoreAt(i) {
			i++
		}
		copy(r.items[i+1:n], r.items[i:n-1])
		r.items[i] = docid
		return
	}

	// Partial case: find smallest i with score >= scoreAt(i).
	i := 0
	for i < n && score < r.scoreAt(i) {
		i++
	}
	r.items = append(r.items, 0)
	copy(r.items[i+1:], r.items[i:n])
	r.items[i] = docid
}

func (r *BoundedRanking) removeIfPresent(docid uint64) {
	for i, d := range r.items {
		if d == docid {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}
