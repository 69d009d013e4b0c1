package engine

import "github.com/RoaringBitmap/roaring/v2"

// TouchedSet records which docids were touched by traversal during one
// query, without needing an O(numDocs) scan to find them afterward.
// Added to on every posting in the hot accumulate path; its
// cardinality is read back once per query as QueryResult.TouchedCount,
// a result-set size cheaper than scanning accumulators end to end, and
// used by the property tests (§8: "only over documents that were ever
// touched").
type TouchedSet struct {
	bm *roaring.Bitmap
}

func newTouchedSet() *TouchedSet {
	return &TouchedSet{bm: roaring.New()}
}

func (t *TouchedSet) clear() {
	t.bm.Clear()
}

// Add records docid as touched. docid is truncated to uint32: the
// evaluator's numDocs is always well within uint32 range for a
// SAAT index of this scale.
func (t *TouchedSet) Add(docid uint64) {
	t.bm.Add(uint32(docid))
}

// Count returns the number of distinct touched docids.
func (t *TouchedSet) Count() uint64 {
	return t.bm.GetCardinality()
}

// Contains reports whether docid was touched.
func (t *TouchedSet) Contains(docid uint64) bool {
	return t.bm.Contains(uint32(docid))
}
