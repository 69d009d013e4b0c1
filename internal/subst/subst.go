// Package subst defines the substitution-rules collaborator used by
// query preprocessors upstream of the evaluator: a rule is a regular
// expression paired with a replacement, applied to a raw term string
// before it is resolved to a termid. The evaluator itself never
// depends on this package; it only ever sees resolved termids.
package subst

import (
	"bufio"
	"fmt"
	"io"
	"regexp"

	"github.com/qbasher/qbashq/internal/engineerr"
)

// Rule is one substitution: Pattern matches against a term string and
// Replacement is substituted in, using regexp.ReplaceAllString syntax.
type Rule struct {
	Pattern     string
	Replacement string
}

// RuleSet applies an ordered list of substitution rules to a term.
type RuleSet interface {
	// Apply runs every compiled rule against term in order, returning
	// the final string. A term with no matching rule is returned
	// unchanged.
	Apply(term string) string

	// Len reports how many rules compiled successfully.
	Len() int
}

// Loader reads a rule definition source and produces a RuleSet.
type Loader interface {
	Load(r io.Reader) (RuleSet, error)
}

// compiledRule pairs a compiled regexp with its replacement text.
type compiledRule struct {
	re          *regexp.Regexp
	replacement string
}

// pureGoRuleSet applies rules using the standard library regexp
// engine (RE2 semantics: no backreferences or lookaround).
type pureGoRuleSet struct {
	rules []compiledRule
}

func (s *pureGoRuleSet) Apply(term string) string {
	for _, r := range s.rules {
		term = r.re.ReplaceAllString(term, r.replacement)
	}
	return term
}

func (s *pureGoRuleSet) Len() int {
	return len(s.rules)
}

// RegexLoader parses one rule per line, formatted as "<pattern>\t<replacement>".
// A line that fails to compile is skipped, mirroring the evaluator's
// §7 ERR_REGEX_COMPILE_FAILURE handling (skip the rule, continue).
// Strict turns that skip into a returned error instead, for callers
// that treat a malformed rule file as a configuration error.
type RegexLoader struct {
	OnSkip func(lineNo int, pattern string, err error)
	Strict bool
}

// NewRegexLoader returns a Loader that builds a pure-Go RuleSet.
func NewRegexLoader() *RegexLoader {
	return &RegexLoader{}
}

func (l *RegexLoader) Load(r io.Reader) (RuleSet, error) {
	set := &pureGoRuleSet{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}

		pattern, replacement, ok := splitRuleLine(line)
		if !ok {
			continue
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			if l.Strict {
				return nil, compileFailureError(pattern, err)
			}
			if l.OnSkip != nil {
				l.OnSkip(lineNo, pattern, err)
			}
			continue
		}
		set.rules = append(set.rules, compiledRule{re: re, replacement: replacement})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read rule source: %w", err)
	}

	return set, nil
}

// splitRuleLine splits "<pattern>\t<replacement>" on the first tab.
func splitRuleLine(line string) (pattern, replacement string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] == '\t' {
			return line[:i], line[i+1:], true
		}
	}
	return "", "", false
}

// compileFailureError wraps a regex compile error with the evaluator's
// error code, for callers that want engineerr-shaped diagnostics
// rather than the skip-and-continue default.
func compileFailureError(pattern string, cause error) error {
	return engineerr.New(engineerr.ErrCodeRegexCompileFailure, fmt.Sprintf("rule %q failed to compile", pattern), cause)
}
