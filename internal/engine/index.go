package engine

import (
	"fmt"
	"path/filepath"

	"golang.org/x/exp/mmap"
	"golang.org/x/sync/errgroup"

	"github.com/gofrs/flock"
	"github.com/qbasher/qbashq/internal/engineerr"
)

// Index holds the memory-mapped vocabulary and postings regions for
// one indexStem, acquired for the lifetime of the process (C1).
type Index struct {
	vocab     *mmap.ReaderAt
	postings  *mmap.ReaderAt
	vocabSize int64
	ifSize    int64
	lock      *flock.Flock
}

// Open memory-maps "<indexStem>.vocab" and "<indexStem>.if", opening
// both concurrently via errgroup and returning the first MappingFailure
// if either fails. It also takes a shared advisory lock on
// "<indexStem>.lock" so an external index builder can detect readers
// are attached before replacing the files out from under them.
func Open(indexStem string) (*Index, error) {
	vocabPath := indexStem + ".vocab"
	ifPath := indexStem + ".if"
	lockPath := indexStem + ".lock"

	idx := &Index{lock: flock.New(lockPath)}

	if locked, err := idx.lock.TryRLock(); err != nil {
		return nil, engineerr.MappingFailure(lockPath, err)
	} else if !locked {
		return nil, engineerr.MappingFailure(lockPath, fmt.Errorf("index is locked for exclusive access"))
	}

	var g errgroup.Group
	g.Go(func() error {
		r, err := mmap.Open(vocabPath)
		if err != nil {
			return engineerr.MappingFailure(vocabPath, err)
		}
		idx.vocab = r
		idx.vocabSize = int64(r.Len())
		return nil
	})
	g.Go(func() error {
		r, err := mmap.Open(ifPath)
		if err != nil {
			return engineerr.MappingFailure(ifPath, err)
		}
		idx.postings = r
		idx.ifSize = int64(r.Len())
		return nil
	})

	if err := g.Wait(); err != nil {
		_ = idx.lock.Unlock()
		if idx.vocab != nil {
			_ = idx.vocab.Close()
		}
		if idx.postings != nil {
			_ = idx.postings.Close()
		}
		return nil, err
	}

	return idx, nil
}

// Close releases both mappings and the shared lock. Safe to call once;
// guaranteed to run on every exit path from the CLI's defer chain.
func (ix *Index) Close() error {
	var firstErr error
	if err := ix.vocab.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := ix.postings.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := ix.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// indexDir returns the directory containing the index files, for Watch.
func indexDir(indexStem string) string {
	return filepath.Dir(indexStem)
}
