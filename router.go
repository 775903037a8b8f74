package tandem

import (
	"fmt"
	"regexp"
	"strings"
)

// Router classifies queries as simple or complex through an ordered chain of
// deterministic checks, then maps the classification to a backend choice.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	wordLimit   int
	connectives []string
	keywords    []string
	checks      []routerCheck
}

// routerCheck inspects a normalized query. A non-empty reason means the
// query is not simple; the first matching check wins.
type routerCheck func(query string, words []string) (reason string, matched bool)

// Logical connectives that indicate multi-part reasoning when they appear as
// standalone words.
var defaultConnectives = []string{
	"and", "or", "not", "if", "then", "because", "therefore", "thus", "hence",
}

// Keywords whose presence (substring, case-insensitive) marks a query as
// complex.
var defaultComplexityKeywords = []string{
	"compare", "contrast", "relate", "analyze", "evaluate",
	"synthesize", "elaborate", "explain why", "versus",
	"difference between", "similarities", "hypothesis",
	"implications", "consequences", "pros and cons",
	"advantages and disadvantages", "complex", "complicated",
}

// Comparison adjective/adverb followed later by "than".
var comparativePattern = regexp.MustCompile(`\b(more|less|better|worse|larger|smaller|higher|lower)\b.*\bthan\b`)

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithWordLimit sets the word count above which a query is never simple.
func WithWordLimit(n int) RouterOption {
	return func(r *Router) { r.wordLimit = n }
}

// WithComplexityKeywords replaces the default complexity keyword list.
func WithComplexityKeywords(keywords []string) RouterOption {
	return func(r *Router) { r.keywords = keywords }
}

// NewRouter creates a Router with the given options.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{
		wordLimit:   20,
		connectives: defaultConnectives,
		keywords:    defaultComplexityKeywords,
	}
	for _, o := range opts {
		o(r)
	}
	r.checks = []routerCheck{
		r.checkWordCount,
		r.checkConnectives,
		r.checkKeywords,
		r.checkMultipleQuestions,
		r.checkComparative,
	}
	return r
}

// Classify reports whether a query is simple enough for the local backend,
// with the reason that decided it. Checks run in a fixed order and the first
// match wins.
func (r *Router) Classify(query string) (isSimple bool, reason string) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(normalized)

	for _, check := range r.checks {
		if reason, matched := check(normalized, words); matched {
			return false, reason
		}
	}
	return true, "Simple query"
}

func (r *Router) checkWordCount(_ string, words []string) (string, bool) {
	if len(words) > r.wordLimit {
		return fmt.Sprintf("Query exceeds %d words", r.wordLimit), true
	}
	return "", false
}

func (r *Router) checkConnectives(_ string, words []string) (string, bool) {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	for _, op := range r.connectives {
		if set[op] {
			return "Contains logical operator: " + op, true
		}
	}
	return "", false
}

func (r *Router) checkKeywords(query string, _ []string) (string, bool) {
	for _, keyword := range r.keywords {
		if strings.Contains(query, strings.ToLower(keyword)) {
			return "Contains complexity keyword: " + keyword, true
		}
	}
	return "", false
}

func (r *Router) checkMultipleQuestions(query string, _ []string) (string, bool) {
	if strings.Count(query, "?") > 1 {
		return "Contains multiple questions", true
	}
	return "", false
}

func (r *Router) checkComparative(query string, _ []string) (string, bool) {
	if comparativePattern.MatchString(query) {
		return "Contains comparative statement", true
	}
	return "", false
}

// Route decides which backend answers the query. Simple queries go local
// with confidence 0.8 when context was retrieved and 0.6 without; complex
// queries go remote with confidence 0.9 regardless of context; the local
// backend's confidence depends on whether retrieval found anything.
func (r *Router) Route(query string, contextDocs []SearchResult) RoutingDecision {
	isSimple, reason := r.Classify(query)
	hasContext := len(contextDocs) > 0

	decision := RoutingDecision{
		IsSimple:   isSimple,
		Reason:     reason,
		HasContext: hasContext,
	}
	if isSimple {
		decision.RouteTo = BackendLocal
		decision.Confidence = 0.6
		if hasContext {
			decision.Confidence = 0.8
		}
	} else {
		decision.RouteTo = BackendRemote
		decision.Confidence = 0.9
	}
	return decision
}
