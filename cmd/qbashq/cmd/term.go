package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/spf13/cobra"
)

// newTermCmd resolves a term string to its termid using a small
// in-memory bleve index built over a term-string sidecar file
// (<indexStem>.vocab.terms, one term per line, line number == termid).
// This is a debug/ops convenience outside the SAAT core: it is how an
// operator finds the termid to feed the evaluator. The evaluator
// itself never performs text analysis.
func newTermCmd() *cobra.Command {
	var indexStem string

	cmd := &cobra.Command{
		Use:   "term <word>",
		Short: "Resolve a term string to its termid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexStem == "" {
				return fmt.Errorf("indexStem is required")
			}
			termid, found, err := resolveTermID(indexStem, args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "not found: %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\n", termid)
			return nil
		},
	}

	cmd.Flags().StringVar(&indexStem, "indexStem", "", "path prefix; resolves against <indexStem>.vocab.terms (required)")

	return cmd
}

// resolveTermID builds a transient in-memory bleve index over the
// term sidecar file and looks up word, returning the line number
// (0-based) as the termid.
func resolveTermID(indexStem, word string) (uint32, bool, error) {
	terms, err := loadTermSidecar(indexStem + ".vocab.terms")
	if err != nil {
		return 0, false, err
	}

	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return 0, false, fmt.Errorf("create term index: %w", err)
	}
	defer idx.Close()

	batch := idx.NewBatch()
	for termid, term := range terms {
		if err := batch.Index(strconv.Itoa(termid), map[string]string{"term": term}); err != nil {
			return 0, false, fmt.Errorf("index term %q: %w", term, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return 0, false, fmt.Errorf("batch index terms: %w", err)
	}

	query := bleve.NewTermQuery(word)
	query.SetField("term")
	req := bleve.NewSearchRequest(query)
	req.Size = 1

	result, err := idx.Search(req)
	if err != nil {
		return 0, false, fmt.Errorf("search term index: %w", err)
	}
	if len(result.Hits) == 0 {
		return 0, false, nil
	}

	termid, err := strconv.Atoi(result.Hits[0].ID)
	if err != nil {
		return 0, false, fmt.Errorf("parse termid from hit: %w", err)
	}
	return uint32(termid), true, nil
}

func loadTermSidecar(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open term sidecar: %w", err)
	}
	defer f.Close()

	var terms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		terms = append(terms, scanner.Text())
	}
	return terms, scanner.Err()
}
