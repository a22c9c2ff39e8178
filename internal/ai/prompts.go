package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/facet_analysis.md
var facetAnalysisPromptRaw string

// FacetAnalysisTemplate renders a batch of descriptions into one prompt.
var FacetAnalysisTemplate = template.Must(template.New("facet_analysis").Parse(facetAnalysisPromptRaw))
