package engine

// tcbState is the per-term control block lifecycle state.
type tcbState int

const (
	tcbUnopened tcbState = iota
	tcbActive
	tcbExhausted
)

// termControlBlock tracks one query term's traversal through its
// impact-ordered posting list (C3's TCB, §3).
type termControlBlock struct {
	state tcbState

	highestUnprocessedScore uint64
	currentRunLen           uint64
	postingsRemaining       uint64

	dec *decoder
}

// openTerm positions a TCB at the start of a termid's posting list and
// reads its first run header. cnt is the postings_count from the
// vocabulary entry; if it is zero the TCB starts exhausted and no read
// occurs.
func openTerm(idx *Index, cnt, offset uint64) *termControlBlock {
	tcb := &termControlBlock{postingsRemaining: cnt}
	if cnt == 0 {
		tcb.state = tcbExhausted
		return tcb
	}

	tcb.dec = newDecoder(idx.postings, int64(offset))
	tcb.readRunHeader()
	tcb.state = tcbActive
	return tcb
}

// readRunHeader reads the next (qscore, run_length) pair at the
// cursor, per §4.1's run layout.
func (tcb *termControlBlock) readRunHeader() {
	tcb.highestUnprocessedScore = tcb.dec.readUint(BytesForQScore)
	tcb.currentRunLen = tcb.dec.readUint(BytesForRunLen)
}

// consumeRun reads exactly currentRunLen docids from the cursor and
// calls visit for each one. It reproduces the index writer's actual
// run-body stride: after reading a docid (BytesForDocID wide), the
// cursor advances by BytesForRunLen rather than BytesForDocID. This
// mirrors a stride bug confirmed present in the original evaluator's
// process_query — it is not a transcription error here; with the
// layout's current field widths (DocID=4, RunLen=2) this reads every
// other docid's trailing bytes as the next docid's leading bytes, and
// is reproduced exactly rather than corrected.
func (tcb *termControlBlock) consumeRun(visit func(docid uint64)) {
	for i := uint64(0); i < tcb.currentRunLen; i++ {
		docid := tcb.dec.readUint(BytesForDocID)
		visit(docid)
		tcb.dec.advance(BytesForRunLen - BytesForDocID)
	}

	tcb.postingsRemaining -= tcb.currentRunLen

	if tcb.postingsRemaining > 0 {
		tcb.readRunHeader()
	} else {
		tcb.state = tcbExhausted
	}
}
