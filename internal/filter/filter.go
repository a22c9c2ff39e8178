package filter

import (
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

// TitleFilter drops postings without a usable title, then keeps those whose
// title contains any include keyword and no exclude keyword.
// Matching is case-insensitive. An empty include list matches all titles.
type TitleFilter struct {
	include []string
	exclude []string
}

// NewTitleFilter returns a filter over lowercase substring matches.
func NewTitleFilter(include, exclude []string) *TitleFilter {
	return &TitleFilter{
		include: lowerAll(include),
		exclude: lowerAll(exclude),
	}
}

// Match reports whether p should be analyzed.
func (f *TitleFilter) Match(p model.Posting) bool {
	if model.IsMissing(p.Title) {
		return false
	}
	title := strings.ToLower(p.Title)

	for _, kw := range f.exclude {
		if strings.Contains(title, kw) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

func lowerAll(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
