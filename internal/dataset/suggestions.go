package dataset

import (
	"bufio"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tphakala/exoplanet-go/internal/errors"
)

// SuggestionLimit caps filtered autocomplete results
const SuggestionLimit = 20

// Suggestions is the flat identifier list behind autocomplete.
type Suggestions struct {
	items  []string
	folded []string // case-folded copies of items, same order
}

// LoadSuggestions reads one identifier per line, trimming whitespace and
// dropping empty lines.
func LoadSuggestions(path string) (*Suggestions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryNotFound).
			FileContext(path).
			Build()
	}
	defer func() { _ = f.Close() }()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			items = append(items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryFileParsing).
			FileContext(path).
			Build()
	}

	return NewSuggestions(items), nil
}

// NewSuggestions builds a list from items in memory
func NewSuggestions(items []string) *Suggestions {
	folder := cases.Fold()
	folded := make([]string, len(items))
	for i, item := range items {
		folded[i] = folder.String(item)
	}
	return &Suggestions{items: slices.Clone(items), folded: folded}
}

// Len returns the number of identifiers
func (s *Suggestions) Len() int { return len(s.items) }

// Sample returns up to n identifiers from the start of the list
func (s *Suggestions) Sample(n int) []string {
	return slices.Clone(s.items[:min(n, len(s.items))])
}

// Filter returns identifiers containing query, ignoring case, in list order.
// An empty query returns the whole list; otherwise at most limit entries.
func (s *Suggestions) Filter(query string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return slices.Clone(s.items)
	}

	needle := cases.Fold().String(query)
	out := make([]string, 0, min(limit, len(s.items)))
	for i, folded := range s.folded {
		if len(out) >= limit {
			break
		}
		if strings.Contains(folded, needle) {
			out = append(out, s.items[i])
		}
	}
	return out
}
