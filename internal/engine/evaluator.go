package engine

import (
	"log/slog"
	"sync"

	"github.com/qbasher/qbashq/internal/engineerr"
)

// Params are the evaluator's tunable parameters, supplied by the CLI
// parameter table (§6). NumTerms and NumDocs size the vocabulary
// addressing and accumulator array respectively; they are trusted, not
// re-derived from the index files.
type Params struct {
	IndexStem string
	NumTerms  int
	NumDocs   int

	K                   int
	LowScoreCutoff      uint64
	PostingsCountCutoff uint64

	QueryShorteningThreshold int
	N                        int // corpus size, for the shortener's frequency heuristic

	// Debug tiers the evaluator's own logging, independent of whatever
	// slog level the CLI's --debug flag configured globally: 0 is
	// silent, 1 logs one summary line per query, 2+ additionally
	// traces every run consumed, matching q.c's debug>0/explain tiers.
	Debug int
}

// Result is one ranked document: rank is 1-based.
type Result struct {
	Rank  int
	DocID uint64
	Score uint64
}

// QueryResult is the outcome of evaluating one query.
type QueryResult struct {
	TermIDs []uint32
	Ranking []Result

	// PostingsProcessed, CutoffReason, and TouchedCount are exposed for
	// telemetry (§3.4 of the expanded design); the evaluator itself
	// never inspects them after returning.
	PostingsProcessed uint64
	CutoffReason      CutoffReason
	TouchedCount      uint64
}

// CutoffReason records why the SAAT main loop stopped.
type CutoffReason int

const (
	CutoffNone CutoffReason = iota
	CutoffAllExhausted
	CutoffLowScore
	CutoffPostingsBudget
)

func (r CutoffReason) String() string {
	switch r {
	case CutoffAllExhausted:
		return "all_exhausted"
	case CutoffLowScore:
		return "low_score"
	case CutoffPostingsBudget:
		return "postings_budget"
	default:
		return "none"
	}
}

// Evaluator owns the memory-mapped index, the vocabulary cache, and the
// scratch buffers (accumulators, top-k ranking, term control blocks)
// reused across queries. This replaces the source's process-wide
// params/statics with a single explicit value, per the design note on
// global state.
type Evaluator struct {
	// reloadMu guards idx/vocab against a concurrent Reload swapping
	// them out from under an in-flight ProcessQuery. It is a
	// vanishingly rare write (one per index rebuild) against a hot
	// read (one per query), hence RWMutex over a plain Mutex.
	reloadMu sync.RWMutex
	idx      *Index
	vocab    *VocabLookup

	params Params

	acc     *accumulators
	topk    *BoundedRanking
	tcbs    [MaxQTerms]*termControlBlock
	touched *TouchedSet
}

// NewEvaluator opens the index at params.IndexStem and allocates
// scratch buffers sized by params.NumDocs and params.K.
func NewEvaluator(params Params) (*Evaluator, error) {
	if params.IndexStem == "" {
		return nil, engineerr.MissingParameter("indexStem")
	}
	if params.NumTerms <= 0 {
		return nil, engineerr.MissingParameter("numTerms")
	}
	if params.NumDocs <= 0 {
		return nil, engineerr.MissingParameter("numDocs")
	}
	if params.K <= 0 {
		params.K = 10
	}

	idx, err := Open(params.IndexStem)
	if err != nil {
		return nil, err
	}

	acc := newAccumulators(params.NumDocs)
	return &Evaluator{
		idx:     idx,
		vocab:   newVocabLookup(idx),
		params:  params,
		acc:     acc,
		topk:    newBoundedRanking(acc, params.K),
		touched: newTouchedSet(),
	}, nil
}

// Close releases the underlying index mappings.
func (e *Evaluator) Close() error {
	e.reloadMu.RLock()
	defer e.reloadMu.RUnlock()
	return e.idx.Close()
}

// Reload re-opens the index at params.IndexStem and, once the new
// mappings and vocabulary cache are ready, swaps them in under a write
// lock so no in-flight ProcessQuery ever sees a half-replaced index.
// The old mappings are closed only after the swap, so a reload that
// fails to open leaves the evaluator serving the index it already had.
// This is what StartWatch calls on every debounced file-change event.
func (e *Evaluator) Reload() error {
	newIdx, err := Open(e.params.IndexStem)
	if err != nil {
		return err
	}
	newVocab := newVocabLookup(newIdx)

	e.reloadMu.Lock()
	oldIdx := e.idx
	e.idx = newIdx
	e.vocab = newVocab
	e.reloadMu.Unlock()

	return oldIdx.Close()
}

// ProcessQuery evaluates one query (a list of termids) per the §4.6
// procedure: select the highest unprocessed qscore across all
// in-flight terms, consume that term's full current run, update
// accumulators and the top-k ranking, and apply the two early-exit
// cutoffs, until every term control block is exhausted.
func (e *Evaluator) ProcessQuery(termids []uint32) (QueryResult, error) {
	e.reloadMu.RLock()
	defer e.reloadMu.RUnlock()

	e.acc.clear()
	e.topk.clear()
	e.touched.clear()

	qLen := len(termids)
	if qLen > MaxQTerms {
		qLen = MaxQTerms
	}

	termsStillGoing := 0
	for q := 0; q < qLen; q++ {
		cnt, off := e.vocab.Lookup(termids[q])
		e.tcbs[q] = openTerm(e.idx, cnt, off)
		if e.tcbs[q].state == tcbActive {
			termsStillGoing++
		}
	}

	var postingsProcessed uint64
	reason := CutoffAllExhausted

	for termsStillGoing > 0 {
		chosen := -1
		var maxQScore uint64
		for q := 0; q < qLen; q++ {
			tcb := e.tcbs[q]
			if tcb.state != tcbActive {
				continue
			}
			if chosen == -1 || tcb.highestUnprocessedScore > maxQScore {
				chosen = q
				maxQScore = tcb.highestUnprocessedScore
			}
		}

		if chosen == -1 {
			return QueryResult{}, engineerr.InternalInvariant("no active TCB with terms_still_going > 0")
		}

		if maxQScore < e.params.LowScoreCutoff {
			reason = CutoffLowScore
			break
		}

		tcb := e.tcbs[chosen]
		runLen := tcb.currentRunLen
		if e.params.Debug >= 2 {
			slog.Debug("consuming run",
				slog.Int("term", chosen),
				slog.Uint64("qscore", maxQScore),
				slog.Uint64("runLen", runLen))
		}
		tcb.consumeRun(func(docid uint64) {
			newVal := e.acc.add(docid, maxQScore)
			e.topk.Insert(docid, newVal)
			e.touched.Add(docid)
		})
		postingsProcessed += runLen

		if e.params.PostingsCountCutoff > 0 && postingsProcessed > e.params.PostingsCountCutoff {
			reason = CutoffPostingsBudget
			break
		}

		if tcb.state == tcbExhausted {
			termsStillGoing--
		}
	}

	ranking := make([]Result, e.topk.Len())
	for i := 0; i < e.topk.Len(); i++ {
		docid := e.topk.At(i)
		ranking[i] = Result{Rank: i + 1, DocID: docid, Score: e.acc.get(docid)}
	}

	if e.params.Debug >= 1 {
		slog.Info("query evaluated",
			slog.Int("numTerms", qLen),
			slog.Int("results", len(ranking)),
			slog.Uint64("postingsProcessed", postingsProcessed),
			slog.String("cutoffReason", reason.String()))
	}

	return QueryResult{
		TermIDs:           termids,
		Ranking:           ranking,
		PostingsProcessed: postingsProcessed,
		CutoffReason:      reason,
		TouchedCount:      e.touched.Count(),
	}, nil
}
