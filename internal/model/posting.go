package model

import (
	"context"
	"strings"
	"time"
)

// NotAvailable is the sentinel extractors use for a field they could not find.
const NotAvailable = "N/A"

// Posting is a single job advertisement as produced by a source extractor.
// Identity fields are treated as read-only by the analysis engine.
type Posting struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	PublishDate string `json:"publish_date"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// IsMissing reports whether v is empty, whitespace or the "N/A" sentinel.
func IsMissing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, NotAvailable)
}

// HasDescription reports whether the posting carries description text worth classifying.
func (p Posting) HasDescription() bool {
	return !IsMissing(p.Description)
}

// EnrichedPosting is a posting plus its facets and provenance metadata.
// It serializes as a single flat JSON object.
type EnrichedPosting struct {
	Posting
	Facets
	Metadata Metadata `json:"_metadata"`
	Error    string   `json:"_error,omitempty"`
}

// Classification methods recorded in Metadata.Method.
const (
	MethodRuleBased      = "rule_based"
	MethodHybridOverride = "hybrid_override"
	MethodHybridAdditive = "hybrid_additive"
)

// Stage names recorded in Metadata.Stages.
const (
	StageRuleBased = "rule_based"
	StageSecondary = "secondary"
)

// Metadata records which classifiers contributed to an enriched posting.
type Metadata struct {
	Method             string     `json:"method"`
	Stages             []string   `json:"stages"`
	SecondaryAvailable bool       `json:"secondary_available"`
	SecondaryApplied   bool       `json:"secondary_applied"`
	Audit              FacetAudit `json:"audit"`
	AnalyzedAt         time.Time  `json:"analyzed_at"`
	RunID              string     `json:"run_id,omitempty"`
}

// FacetAudit flags which facets carried any evidence, for quality monitoring.
type FacetAudit struct {
	JobTypeDetected       bool `json:"job_type_detected"`
	LanguageDetected      bool `json:"language_detected"`
	ExperienceDetected    bool `json:"experience_detected"`
	EducationDetected     bool `json:"education_detected"`
	SkillsFound           bool `json:"skills_found"`
	ResponsibilitiesFound bool `json:"responsibilities_found"`
}

// PostingSource fetches raw postings from one recruitment site or file.
type PostingSource interface {
	Name() string
	FetchPostings(ctx context.Context) ([]Posting, error)
}

// PostingFilter decides whether a posting should be analyzed at all.
type PostingFilter interface {
	Match(p Posting) bool
}

// ResultStore persists enriched postings.
type ResultStore interface {
	Save(ctx context.Context, postings []EnrichedPosting) error
	Cleanup(olderThan time.Duration) error
}

// Sink receives the enriched output of one pipeline run.
type Sink interface {
	Write(ctx context.Context, postings []EnrichedPosting) error
}
