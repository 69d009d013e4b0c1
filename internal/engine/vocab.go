package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// vocabEntry is the decoded (postingsCount, postingsOffset) pair for
// one termid.
type vocabEntry struct {
	postingsCount  uint64
	postingsOffset uint64
}

// VocabLookup resolves a termid to its postings count and offset (C2).
// Decoded entries are cached by termid: across a query stream the same
// high-frequency terms recur constantly, and the cache skips re-reading
// and re-decoding their fixed-width record on every occurrence.
type VocabLookup struct {
	idx   *Index
	cache *lru.Cache[uint32, vocabEntry]
}

// defaultVocabCacheSize bounds memory use for the decoded-entry cache;
// it is not a correctness parameter, only an LRU capacity.
const defaultVocabCacheSize = 4096

func newVocabLookup(idx *Index) *VocabLookup {
	cache, _ := lru.New[uint32, vocabEntry](defaultVocabCacheSize)
	return &VocabLookup{idx: idx, cache: cache}
}

// Lookup reads the fixed-width vocabulary entry at
// vocab[termid*BytesInVocabEntry]. The caller guarantees termid <
// numTerms; no bounds check beyond that is performed, matching C2's
// contract. The leading BytesForTermID bytes are skipped: positional
// indexing by termid makes them redundant for the reader.
func (v *VocabLookup) Lookup(termid uint32) (postingsCount, postingsOffset uint64) {
	if e, ok := v.cache.Get(termid); ok {
		return e.postingsCount, e.postingsOffset
	}

	off := int64(termid) * BytesInVocabEntry
	d := newDecoder(v.idx.vocab, off)
	d.advance(BytesForTermID)
	postingsCount = d.readUint(BytesForPostingsCount)
	postingsOffset = d.readUint(BytesForIndexOffset)

	v.cache.Add(termid, vocabEntry{postingsCount: postingsCount, postingsOffset: postingsOffset})
	return postingsCount, postingsOffset
}
