// Package classifier implements the deterministic rule-based facet extractor.
package classifier

import (
	"slices"
	"strconv"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
	"github.com/amishk599/jobfacet/internal/taxonomy"
)

// RuleClassifier applies a taxonomy registry to description text. It holds no
// mutable state and is safe for concurrent use.
type RuleClassifier struct {
	reg *taxonomy.Registry
}

// New returns a classifier over reg.
func New(reg *taxonomy.Registry) *RuleClassifier {
	return &RuleClassifier{reg: reg}
}

// Classify extracts facets from description. An empty or "N/A" description
// yields model.EmptyFacets.
func (c *RuleClassifier) Classify(description string) model.Facets {
	f := model.EmptyFacets()
	if model.IsMissing(description) {
		return f
	}

	f.JobType = c.jobType(description)
	f.Language = c.language(description)
	f.ExperienceLevel = c.experience(description)
	f.EducationLevel = c.education(description)
	f.SkillType = c.skills(description)
	f.Responsibilities = c.responsibilities(description)
	return f
}

// jobType returns the first job type in priority order whose pattern matches.
func (c *RuleClassifier) jobType(text string) []model.JobType {
	for _, r := range c.reg.JobTypes() {
		if r.Pattern.MatchString(text) {
			return []model.JobType{r.Value}
		}
	}
	return []model.JobType{}
}

func (c *RuleClassifier) language(text string) model.LanguageRequirements {
	langs := model.LanguageRequirements{Required: []string{}, Advantage: []string{}}
	for _, m := range c.reg.LanguageRequired().FindAll(text) {
		if lang := c.languageToken(m); lang != "" && !slices.Contains(langs.Required, lang) {
			langs.Required = append(langs.Required, lang)
		}
	}
	for _, m := range c.reg.LanguageAdvantage().FindAll(text) {
		lang := c.languageToken(m)
		if lang == "" || slices.Contains(langs.Required, lang) || slices.Contains(langs.Advantage, lang) {
			continue
		}
		langs.Advantage = append(langs.Advantage, lang)
	}
	return langs
}

// languageToken canonicalizes the first word of a language match.
func (c *RuleClassifier) languageToken(match string) string {
	fields := strings.Fields(match)
	if len(fields) == 0 {
		return ""
	}
	return c.reg.CanonicalLanguage(strings.ToLower(fields[0]))
}

// experience tests levels in priority order, then falls back to the largest
// "N years experience" figure in the text.
func (c *RuleClassifier) experience(text string) model.ExperienceLevel {
	for _, r := range c.reg.ExperienceLevels() {
		if r.Pattern.MatchString(text) {
			return r.Value
		}
	}

	maxYears := -1
	for _, m := range c.reg.ExperienceYears().FindAll(text) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		maxYears = max(maxYears, n)
	}
	if maxYears < 0 {
		return model.ExperienceUnknown
	}
	return c.reg.LevelForYears(maxYears)
}

func (c *RuleClassifier) education(text string) []model.EducationLevel {
	levels := []model.EducationLevel{}
	for _, r := range c.reg.Education() {
		if r.Pattern.MatchString(text) {
			levels = append(levels, r.Value)
		}
	}
	return model.Facets{EducationLevel: levels}.Normalize().EducationLevel
}

func (c *RuleClassifier) skills(text string) map[model.SkillCategory][]string {
	out := model.EmptyFacets().SkillType
	for _, r := range c.reg.Skills() {
		for _, m := range r.Pattern.FindAll(text) {
			token := strings.ToLower(strings.Join(strings.Fields(m), " "))
			if !slices.Contains(out[r.Value], token) {
				out[r.Value] = append(out[r.Value], token)
			}
		}
	}
	return out
}

// responsibilities is a known gap at the rule tier: free-text duty
// extraction needs the secondary classifier, so this always returns an
// empty list.
func (c *RuleClassifier) responsibilities(string) []string {
	return []string{}
}
