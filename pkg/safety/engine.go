package safety

import (
	"strings"
)

// emptyQueryResponse is returned for empty or whitespace-only input.
const emptyQueryResponse = "Please enter a question to continue."

// emptyQueryPattern is the synthetic pattern source recorded when an empty
// query is blocked, so the audit record still names what triggered.
const emptyQueryPattern = "(empty query)"

// Result is the outcome of one classifier evaluation.
type Result struct {
	Allowed bool `json:"allowed"`
	// Category, SafeResponse and Pattern are set only when blocked.
	Category     Category `json:"category,omitempty"`
	SafeResponse string   `json:"safe_response,omitempty"`
	// Pattern is the literal source of the rule that matched, for audit.
	Pattern string `json:"pattern,omitempty"`
}

// Stats summarizes the loaded pattern table, for self tests that guard
// against the table regressing below its designed size.
type Stats struct {
	Categories    int              `json:"categories"`
	TotalPatterns int              `json:"total_patterns"`
	Breakdown     map[Category]int `json:"breakdown"`
}

// Engine evaluates queries against the immutable pattern table. It is
// stateless per call and safe for unlimited concurrent use; the table is
// compiled once at construction and never mutated.
type Engine struct {
	rules         map[Category][]Rule
	responses     map[Category]string
	totalPatterns int
}

// NewEngine compiles the embedded pattern table.
func NewEngine() (*Engine, error) {
	rules, responses, err := loadPatternTable()
	if err != nil {
		return nil, err
	}
	total := 0
	for _, rs := range rules {
		total += len(rs)
	}
	return &Engine{rules: rules, responses: responses, totalPatterns: total}, nil
}

// Evaluate classifies a query. Categories are checked in CategoryOrder and
// patterns within a category in table order; the first match blocks. A query
// matching nothing is allowed. Evaluate never fails: malformed, non-ASCII,
// or very long input is handled like any other string, and empty or
// whitespace-only input is always blocked.
func (e *Engine) Evaluate(query string) Result {
	normalized := strings.TrimSpace(query)

	if normalized == "" {
		return Result{
			Allowed:      false,
			Category:     CategoryFatwaAttempt,
			SafeResponse: emptyQueryResponse,
			Pattern:      emptyQueryPattern,
		}
	}

	for _, cat := range CategoryOrder {
		for _, rule := range e.rules[cat] {
			if rule.Matches(normalized) {
				return Result{
					Allowed:      false,
					Category:     cat,
					SafeResponse: e.responses[cat],
					Pattern:      rule.Source,
				}
			}
		}
	}

	return Result{Allowed: true}
}

// Stats returns category and pattern counts for the loaded table.
func (e *Engine) Stats() Stats {
	breakdown := make(map[Category]int, len(e.rules))
	for cat, rs := range e.rules {
		breakdown[cat] = len(rs)
	}
	return Stats{
		Categories:    len(e.rules),
		TotalPatterns: e.totalPatterns,
		Breakdown:     breakdown,
	}
}

// TotalPatterns returns the number of compiled rules across all categories.
func (e *Engine) TotalPatterns() int { return e.totalPatterns }
