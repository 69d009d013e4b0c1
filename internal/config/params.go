// Package config loads the evaluator's parameter table from CLI flags
// and an optional YAML defaults file, mirroring the teacher's layered
// config pattern but narrowed to the engine's fixed parameter set (§6).
package config

import (
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/qbasher/qbashq/internal/engine"
	"github.com/qbasher/qbashq/internal/engineerr"
)

// Defaults holds the subset of engine.Params that may be pre-set by a
// YAML defaults file (<indexStem>.yaml, if present) before flags are
// applied. Flags always take precedence over file defaults.
type Defaults struct {
	K                        *int    `yaml:"k"`
	LowScoreCutoff           *uint64 `yaml:"lowScoreCutoff"`
	PostingsCountCutoff      *uint64 `yaml:"postingsCountCutoff"`
	QueryShorteningThreshold *int    `yaml:"queryShorteningThreshold"`
	N                        *int    `yaml:"n"`
	Debug                    *int    `yaml:"debug"`
}

// LoadDefaults reads "<indexStem>.yaml" if it exists. A missing file is
// not an error — the engine's parameters are fully specified by flags
// in that case.
func LoadDefaults(indexStem string) (Defaults, error) {
	var d Defaults
	data, err := os.ReadFile(indexStem + ".yaml")
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, err
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, err
	}
	return d, nil
}

// Load builds engine.Params from the flag set, applying file defaults
// first so any flag the caller explicitly set overrides them. fs must
// already have been parsed.
func Load(fs *pflag.FlagSet, defaults Defaults) (engine.Params, error) {
	p := engine.Params{K: 10}

	if defaults.K != nil {
		p.K = *defaults.K
	}
	if defaults.LowScoreCutoff != nil {
		p.LowScoreCutoff = *defaults.LowScoreCutoff
	}
	if defaults.PostingsCountCutoff != nil {
		p.PostingsCountCutoff = *defaults.PostingsCountCutoff
	}
	if defaults.QueryShorteningThreshold != nil {
		p.QueryShorteningThreshold = *defaults.QueryShorteningThreshold
	}
	if defaults.N != nil {
		p.N = *defaults.N
	}
	if defaults.Debug != nil {
		p.Debug = *defaults.Debug
	}

	indexStem, _ := fs.GetString("indexStem")
	p.IndexStem = indexStem

	numTerms, _ := fs.GetInt("numTerms")
	p.NumTerms = numTerms

	numDocs, _ := fs.GetInt("numDocs")
	p.NumDocs = numDocs

	if fs.Changed("k") {
		p.K, _ = fs.GetInt("k")
	}
	if fs.Changed("lowScoreCutoff") {
		v, _ := fs.GetUint64("lowScoreCutoff")
		p.LowScoreCutoff = v
	}
	if fs.Changed("postingsCountCutoff") {
		v, _ := fs.GetUint64("postingsCountCutoff")
		p.PostingsCountCutoff = v
	}
	if fs.Changed("query_shortening_threshold") {
		p.QueryShorteningThreshold, _ = fs.GetInt("query_shortening_threshold")
	}
	if fs.Changed("N") {
		p.N, _ = fs.GetInt("N")
	}
	if fs.Changed("debug") {
		p.Debug, _ = fs.GetInt("debug")
	}

	if p.IndexStem == "" {
		return p, engineerr.MissingParameter("indexStem")
	}
	if p.NumTerms <= 0 {
		return p, engineerr.MissingParameter("numTerms")
	}
	if p.NumDocs <= 0 {
		return p, engineerr.MissingParameter("numDocs")
	}

	return p, nil
}
