package furnitron

import (
	"strings"
	"unicode"
)

// Candidate is a leaf text considered plausibly a product name, pending classification.
type Candidate struct {
	Text      string
	SourceURL string
	Order     int // discovery order within SourceURL
}

// Default word-count bounds for candidates.
const (
	DefaultMinWords = 2
	DefaultMaxWords = 10
)

// DefaultDenylist returns navigation, commerce and footer phrases that are
// never product names. Matching is case-insensitive on whole words.
func DefaultDenylist() []string {
	return []string{
		"add to cart",
		"add to bag",
		"add to wishlist",
		"all rights reserved",
		"contact us",
		"cookie policy",
		"customer service",
		"free shipping",
		"gift card",
		"learn more",
		"log in",
		"my account",
		"privacy policy",
		"quick view",
		"read more",
		"shop now",
		"sign in",
		"sign up",
		"sort by",
		"filter by",
		"terms of service",
		"terms of use",
		"view all",
		"newsletter",
		"subscribe",
	}
}

// FilterConfig holds the candidate acceptance heuristics.
type FilterConfig struct {
	MinWords int      `json:"minWords" yaml:"min_words"`
	MaxWords int      `json:"maxWords" yaml:"max_words"`
	Denylist []string `json:"denylist" yaml:"denylist"`
}

// DefaultFilterConfig returns the default filter configuration.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinWords: DefaultMinWords,
		MaxWords: DefaultMaxWords,
		Denylist: DefaultDenylist(),
	}
}

// Validate returns an error if the configuration cannot be used.
func (c FilterConfig) Validate() error {
	if c.MinWords < 1 {
		return Errorf(EINVALID, "min words must be at least 1, got %d", c.MinWords)
	}
	if c.MinWords > c.MaxWords {
		return Errorf(EINVALID, "min words (%d) exceeds max words (%d)", c.MinWords, c.MaxWords)
	}
	for _, term := range c.Denylist {
		if len(tokenize(term)) == 0 {
			return Errorf(EINVALID, "denylist term %q has no words", term)
		}
	}
	return nil
}

// CandidateFilter reduces leaf text into name candidates.
// It is a high-recall filter; false positives are left for the classifier.
type CandidateFilter struct {
	minWords int
	maxWords int
	deny     [][]string
}

// NewCandidateFilter returns a filter for the given configuration.
// Returns EINVALID if the configuration is invalid.
func NewCandidateFilter(cfg FilterConfig) (*CandidateFilter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &CandidateFilter{minWords: cfg.MinWords, maxWords: cfg.MaxWords}
	for _, term := range cfg.Denylist {
		f.deny = append(f.deny, tokenize(term))
	}
	return f, nil
}

// Filter returns the accepted candidates from nodes in discovery order,
// tagged with sourceURL. Texts that normalize to the same key are reported
// once, at their first occurrence.
//
// Returns EINVARIANT if node discovery order is not strictly increasing.
func (f *CandidateFilter) Filter(sourceURL string, nodes []TextNode) ([]Candidate, error) {
	seen := make(map[string]struct{}, len(nodes))
	var candidates []Candidate
	for i, node := range nodes {
		if i > 0 && node.Order <= nodes[i-1].Order {
			return nil, Errorf(EINVARIANT, "discovery order %d follows %d on %s", node.Order, nodes[i-1].Order, sourceURL)
		}

		text := NormalizeSpace(node.Text)
		if !f.Accept(text) {
			continue
		}

		key := DedupeKey(text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		candidates = append(candidates, Candidate{
			Text:      text,
			SourceURL: sourceURL,
			Order:     node.Order,
		})
	}
	return candidates, nil
}

// Accept reports whether a single text passes the acceptance heuristics.
func (f *CandidateFilter) Accept(text string) bool {
	words := strings.Fields(text)
	if len(words) < f.minWords || len(words) > f.maxWords {
		return false
	}
	if !hasLetter(text) {
		return false
	}
	return !f.denied(tokenize(text))
}

// denied reports whether any denylist phrase occurs as a run of whole words in tokens.
func (f *CandidateFilter) denied(tokens []string) bool {
	for _, phrase := range f.deny {
		if containsPhrase(tokens, phrase) {
			return true
		}
	}
	return false
}

// DedupeKey returns the case-insensitive, whitespace-collapsed form of text
// used to detect duplicate candidates.
func DedupeKey(text string) string {
	return strings.ToLower(NormalizeSpace(text))
}

// hasLetter rejects purely numeric, punctuation or symbol strings such as
// prices, dates and "© 2024".
func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// tokenize lowercases s and splits it into words with surrounding punctuation removed.
func tokenize(s string) []string {
	var tokens []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if w != "" {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func containsPhrase(tokens, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, w := range phrase {
			if tokens[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
