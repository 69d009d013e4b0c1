package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/qbasher/qbashq/internal/output"
)

// newInfoCmd reports vocab/postings file sizes and entry counts for a
// given index stem — a debug aid, no SAAT evaluation involved.
func newInfoCmd() *cobra.Command {
	var jsonOutput bool
	var indexStem string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show vocab/postings file sizes for an index",
		Long: `Display file sizes and entry counts for the vocabulary and postings
files backing an index. Useful for sanity-checking numTerms/numDocs
before running queries, and for diagnosing an index that fails to map.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if indexStem == "" {
				return fmt.Errorf("indexStem is required")
			}
			info, err := indexFileInfo(indexStem)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputInfoJSON(cmd, info)
			}
			return outputInfoHuman(cmd, info)
		},
	}

	cmd.Flags().StringVar(&indexStem, "indexStem", "", "path prefix for <indexStem>.vocab and <indexStem>.if (required)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

// indexInfo is the file-level statistics reported by the info command.
type indexInfo struct {
	IndexStem        string `json:"index_stem"`
	VocabSizeBytes   int64  `json:"vocab_size_bytes"`
	PostingsSizeBytes int64 `json:"postings_size_bytes"`
	VocabEntryCount  int64  `json:"vocab_entry_count"`
}

func indexFileInfo(indexStem string) (indexInfo, error) {
	vocabStat, err := os.Stat(indexStem + ".vocab")
	if err != nil {
		return indexInfo{}, fmt.Errorf("stat vocab file: %w", err)
	}
	ifStat, err := os.Stat(indexStem + ".if")
	if err != nil {
		return indexInfo{}, fmt.Errorf("stat postings file: %w", err)
	}

	const bytesInVocabEntry = 11 // BytesForTermID + BytesForPostingsCount + BytesForIndexOffset

	return indexInfo{
		IndexStem:         indexStem,
		VocabSizeBytes:    vocabStat.Size(),
		PostingsSizeBytes: ifStat.Size(),
		VocabEntryCount:   vocabStat.Size() / bytesInVocabEntry,
	}, nil
}

func outputInfoJSON(cmd *cobra.Command, info indexInfo) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func outputInfoHuman(cmd *cobra.Command, info indexInfo) error {
	w := output.New(cmd.OutOrStdout())
	w.Status("", "Index Information")
	w.Status("", "=================")
	w.Newline()
	w.Statusf("", "Stem:              %s", info.IndexStem)
	w.Statusf("", "Vocab size:        %s (%d entries)", humanize.Bytes(uint64(info.VocabSizeBytes)), info.VocabEntryCount)
	w.Statusf("", "Postings size:     %s", humanize.Bytes(uint64(info.PostingsSizeBytes)))
	return nil
}
