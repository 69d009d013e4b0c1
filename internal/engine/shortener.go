package engine

import (
	"sort"
	"strings"
)

// ShorteningCode is a bit in the shortening_codes bitset recording
// which heuristic fired for a query.
type ShorteningCode uint8

const (
	ShorteningNoExist ShorteningCode = 1 << iota
	ShorteningAllDigits
	ShorteningHighFreq
)

// TermFrequencyLookup is the shortener's vocabulary collaborator: it
// resolves a term string to its existence and corpus occurrence count.
// This is a string-keyed lookup, distinct from VocabLookup's
// termid-keyed one (C2) — the shortener operates before terms are
// resolved to termids at all.
type TermFrequencyLookup interface {
	Lookup(term string) (exists bool, frequency uint64)
}

// ShortenResult is the output of one shortening pass.
type ShortenResult struct {
	CandidateTerms []string
	Query          string // space-joined CandidateTerms
	Codes          ShorteningCode
}

// isProtected reports whether a term is a phrase or operator-group
// term that shortening must never remove.
func isProtected(term string) bool {
	return strings.HasPrefix(term, `"`) || strings.HasPrefix(term, "[")
}

func isAllDigits(term string) bool {
	if term == "" {
		return false
	}
	for _, r := range term {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ShortenQuery applies heuristics 1, 3 and 4 of §4.7 to reduce qterms
// toward at most threshold distinct terms; heuristic 2 (repetition
// removal) is not applied, and heuristic 4's guard can stop it before
// the target is reached. threshold == 0 disables shortening entirely.
// N is the corpus document count used by the highest-frequency
// heuristic's freq_thresh = N/10.
func ShortenQuery(qterms []string, threshold int, n int, vocab TermFrequencyLookup) ShortenResult {
	qwdCnt := len(qterms)

	zap := make([]bool, qwdCnt)
	freq := make([]uint64, qwdCnt)
	protected := make([]bool, qwdCnt)

	for i, t := range qterms {
		protected[i] = isProtected(t)
	}
	distinct := countDistinct(qterms, protected)

	if threshold == 0 || distinct <= threshold {
		return ShortenResult{CandidateTerms: append([]string(nil), qterms...), Query: strings.Join(qterms, " ")}
	}

	var codes ShorteningCode
	cgCnt := qwdCnt

	// Heuristic 1: non-existent terms. Always applied in full,
	// regardless of threshold.
	for i, t := range qterms {
		if protected[i] {
			continue
		}
		exists, f := vocab.Lookup(t)
		if !exists {
			zap[i] = true
			cgCnt--
			distinct--
			codes |= ShorteningNoExist
			continue
		}
		freq[i] = f
	}

	// Heuristic 3: all-digit terms.
	if distinct > threshold {
		for i, t := range qterms {
			if protected[i] || zap[i] {
				continue
			}
			if isAllDigits(t) {
				zap[i] = true
				cgCnt--
				distinct--
				codes |= ShorteningAllDigits
				if distinct <= threshold {
					break
				}
			}
		}
	}

	// Heuristic 4: highest-frequency terms, via a reentrant
	// frequency-descending sort over a permutation of indices. The
	// source branches across three platform-specific reentrant qsort
	// variants for this; a single closure capturing freq replaces all
	// three uniformly.
	if distinct > threshold {
		perm := make([]int, qwdCnt)
		for i := range perm {
			perm[i] = i
		}
		sort.SliceStable(perm, func(a, b int) bool {
			return freq[perm[a]] > freq[perm[b]]
		})

		freqThresh := uint64(n / 10)

		for _, v := range perm {
			if protected[v] || zap[v] {
				continue
			}
			if cgCnt <= threshold+2 && freq[v] < freqThresh {
				break
			}
			zap[v] = true
			cgCnt--
			distinct--
			codes |= ShorteningHighFreq
			if distinct <= threshold {
				break
			}
		}
	}

	cgTerms := make([]string, 0, cgCnt)
	for i, t := range qterms {
		if !zap[i] {
			cgTerms = append(cgTerms, t)
		}
	}

	return ShortenResult{
		CandidateTerms: cgTerms,
		Query:          strings.Join(cgTerms, " "),
		Codes:          codes,
	}
}

// countDistinct counts distinct unprotected term strings, plus every
// protected term individually (protected terms are never merged by
// equality for the purposes of the distinct-count target).
func countDistinct(qterms []string, protected []bool) int {
	seen := make(map[string]bool, len(qterms))
	distinct := 0
	for i, t := range qterms {
		if len(protected) > i && protected[i] {
			distinct++
			continue
		}
		if !seen[t] {
			seen[t] = true
			distinct++
		}
	}
	return distinct
}
