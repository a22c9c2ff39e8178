// Package merge combines rule-based and secondary facets into enriched
// postings and drives batch analysis.
package merge

import (
	"fmt"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

// Strategy selects how secondary facets combine with rule-based ones.
type Strategy string

const (
	// StrategyOverride lets any non-empty secondary facet replace the rule facet.
	StrategyOverride Strategy = "override"
	// StrategyAdditive lets secondary facets fill only what the rules left empty.
	StrategyAdditive Strategy = "additive"
)

// ParseStrategy accepts "override" or "additive", case-insensitively.
// An empty string selects override.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyOverride:
		return StrategyOverride, nil
	case StrategyAdditive:
		return StrategyAdditive, nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (want override or additive)", s)
}

// Apply merges rule and sec according to s.
func (s Strategy) Apply(rule, sec model.Facets) model.Facets {
	if s == StrategyAdditive {
		return Additive(rule, sec)
	}
	return Override(rule, sec)
}

// Method is the metadata tag for postings merged with s.
func (s Strategy) Method() string {
	if s == StrategyAdditive {
		return model.MethodHybridAdditive
	}
	return model.MethodHybridOverride
}

// Override takes each facet from sec when sec has any evidence for it, and
// from rule otherwise. Language and skills are replaced as a whole.
func Override(rule, sec model.Facets) model.Facets {
	out := rule
	if sec.HasJobType() {
		out.JobType = sec.JobType
	}
	if sec.HasLanguage() {
		out.Language = sec.Language
	}
	if sec.HasExperience() {
		out.ExperienceLevel = sec.ExperienceLevel
	}
	if sec.HasEducation() {
		out.EducationLevel = sec.EducationLevel
	}
	if sec.HasSkills() {
		out.SkillType = sec.SkillType
	}
	if sec.HasResponsibilities() {
		out.Responsibilities = sec.Responsibilities
	}
	return out.Normalize()
}

// Additive keeps every facet rule has evidence for and takes the rest from sec.
func Additive(rule, sec model.Facets) model.Facets {
	out := rule
	if !rule.HasJobType() {
		out.JobType = sec.JobType
	}
	if !rule.HasLanguage() {
		out.Language = sec.Language
	}
	if !rule.HasExperience() {
		out.ExperienceLevel = sec.ExperienceLevel
	}
	if !rule.HasEducation() {
		out.EducationLevel = sec.EducationLevel
	}
	if !rule.HasSkills() {
		out.SkillType = sec.SkillType
	}
	if !rule.HasResponsibilities() {
		out.Responsibilities = sec.Responsibilities
	}
	return out.Normalize()
}

// Enrich attaches facets and metadata to original. The posting's own fields
// are copied unchanged; facets only ever add the facet keys.
func Enrich(original model.Posting, facets model.Facets, meta model.Metadata) model.EnrichedPosting {
	facets = facets.Normalize()
	meta.Audit = Audit(facets)
	return model.EnrichedPosting{
		Posting:  original,
		Facets:   facets,
		Metadata: meta,
	}
}

// Merge is the full three-tier merge: rule facets, overlaid with sec per
// strategy, attached to the untouched original posting.
func Merge(original model.Posting, rule, sec model.Facets, strategy Strategy, meta model.Metadata) model.EnrichedPosting {
	return Enrich(original, strategy.Apply(rule, sec), meta)
}

// Audit reports which facets carry evidence.
func Audit(f model.Facets) model.FacetAudit {
	return model.FacetAudit{
		JobTypeDetected:       f.HasJobType(),
		LanguageDetected:      f.HasLanguage(),
		ExperienceDetected:    f.HasExperience(),
		EducationDetected:     f.HasEducation(),
		SkillsFound:           f.HasSkills(),
		ResponsibilitiesFound: f.HasResponsibilities(),
	}
}
