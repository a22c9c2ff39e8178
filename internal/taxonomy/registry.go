// Package taxonomy holds the declarative pattern tables the rule-based
// classifier runs over. Tables are data: adding a term or a language means
// editing YAML, not code.
package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobfacet/internal/model"
)

//go:embed default.yaml
var defaultTables []byte

// Rule pairs a facet value with the pattern that evidences it.
type Rule[V any] struct {
	Value   V
	Pattern *Pattern
}

// YearBand maps a minimum number of years of experience onto a level.
type YearBand struct {
	MinYears int
	Level    model.ExperienceLevel
}

// Registry is the immutable, compiled form of the taxonomy tables. It is safe
// for concurrent use.
type Registry struct {
	jobTypes          []Rule[model.JobType]
	languageRequired  *Pattern
	languageAdvantage *Pattern
	languageSynonyms  map[string]string
	experience        []Rule[model.ExperienceLevel]
	experienceYears   *Pattern
	yearBands         []YearBand
	education         []Rule[model.EducationLevel]
	skills            []Rule[model.SkillCategory]
}

// JobTypes returns the job type rules in priority order.
func (r *Registry) JobTypes() []Rule[model.JobType] { return r.jobTypes }

// LanguageRequired returns the pattern for hard language requirements.
func (r *Registry) LanguageRequired() *Pattern { return r.languageRequired }

// LanguageAdvantage returns the pattern for nice-to-have languages.
func (r *Registry) LanguageAdvantage() *Pattern { return r.languageAdvantage }

// CanonicalLanguage maps a lowercased language token through the synonym
// table. Unknown tokens are returned unchanged.
func (r *Registry) CanonicalLanguage(token string) string {
	if c, ok := r.languageSynonyms[token]; ok {
		return c
	}
	return token
}

// ExperienceLevels returns the experience rules in priority order.
func (r *Registry) ExperienceLevels() []Rule[model.ExperienceLevel] { return r.experience }

// ExperienceYears returns the numeric "N years experience" pattern. Its
// first capture group is the number.
func (r *Registry) ExperienceYears() *Pattern { return r.experienceYears }

// LevelForYears maps a year count onto a level using the configured bands.
func (r *Registry) LevelForYears(years int) model.ExperienceLevel {
	for _, b := range r.yearBands {
		if years >= b.MinYears {
			return b.Level
		}
	}
	return model.ExperienceUnknown
}

// Education returns the education rules. Every rule is tested independently.
func (r *Registry) Education() []Rule[model.EducationLevel] { return r.education }

// Skills returns one rule per skill category.
func (r *Registry) Skills() []Rule[model.SkillCategory] { return r.skills }

// file mirrors the YAML layout of the tables.
type file struct {
	JobType    []entry         `yaml:"job_type"`
	Language   languageTable   `yaml:"language"`
	Experience experienceTable `yaml:"experience"`
	Education  []entry         `yaml:"education"`
	Skills     []entry         `yaml:"skills"`
}

type languageTable struct {
	Required  entry             `yaml:"required"`
	Advantage entry             `yaml:"advantage"`
	Synonyms  map[string]string `yaml:"synonyms"`
}

type experienceTable struct {
	Levels     []entry        `yaml:"levels"`
	Years      entry          `yaml:"years"`
	Thresholds map[string]int `yaml:"thresholds"`
}

type entry struct {
	Value   string   `yaml:"value"`
	Pattern string   `yaml:"pattern"`
	Terms   []string `yaml:"terms"`
	Bounded bool     `yaml:"bounded"`
}

func (e entry) compile() (*Pattern, error) {
	if len(e.Terms) > 0 {
		return CompileTerms(e.Terms)
	}
	return Compile(e.Pattern, e.Bounded)
}

var loadDefault = sync.OnceValues(func() (*Registry, error) {
	return Parse(defaultTables)
})

// Default returns the registry compiled from the embedded tables.
func Default() (*Registry, error) {
	return loadDefault()
}

// Load returns the registry at path, or the embedded default when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	return LoadFile(path)
}

// LoadFile reads and compiles a replacement taxonomy file.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return reg, nil
}

// Parse compiles YAML taxonomy tables into a Registry.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}

	reg := &Registry{languageSynonyms: make(map[string]string)}
	var err error

	if reg.jobTypes, err = compileRules(f.JobType, "job_type", model.ParseJobType); err != nil {
		return nil, err
	}

	if reg.languageRequired, err = f.Language.Required.compile(); err != nil {
		return nil, fmt.Errorf("language.required: %w", err)
	}
	if reg.languageAdvantage, err = f.Language.Advantage.compile(); err != nil {
		return nil, fmt.Errorf("language.advantage: %w", err)
	}
	for k, v := range f.Language.Synonyms {
		reg.languageSynonyms[strings.ToLower(k)] = strings.ToLower(v)
	}

	if reg.experience, err = compileRules(f.Experience.Levels, "experience.levels", model.ParseExperienceLevel); err != nil {
		return nil, err
	}
	if reg.experienceYears, err = f.Experience.Years.compile(); err != nil {
		return nil, fmt.Errorf("experience.years: %w", err)
	}
	if reg.yearBands, err = yearBands(f.Experience.Thresholds); err != nil {
		return nil, err
	}

	if reg.education, err = compileRules(f.Education, "education", model.ParseEducationLevel); err != nil {
		return nil, err
	}

	if reg.skills, err = compileRules(f.Skills, "skills", model.ParseSkillCategory); err != nil {
		return nil, err
	}

	return reg, nil
}

func compileRules[V comparable](entries []entry, table string, parse func(string) (V, bool)) ([]Rule[V], error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: table is empty", table)
	}
	rules := make([]Rule[V], 0, len(entries))
	for i, e := range entries {
		v, ok := parse(e.Value)
		if !ok {
			return nil, fmt.Errorf("%s[%d]: unknown value %q", table, i, e.Value)
		}
		if slices.ContainsFunc(rules, func(r Rule[V]) bool { return r.Value == v }) {
			return nil, fmt.Errorf("%s[%d]: duplicate value %q", table, i, e.Value)
		}
		p, err := e.compile()
		if err != nil {
			return nil, fmt.Errorf("%s[%d] (%s): %w", table, i, e.Value, err)
		}
		rules = append(rules, Rule[V]{Value: v, Pattern: p})
	}
	return rules, nil
}

// yearBands orders thresholds from the highest minimum down so the first
// band a count reaches wins.
func yearBands(thresholds map[string]int) ([]YearBand, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("experience.thresholds: table is empty")
	}
	bands := make([]YearBand, 0, len(thresholds))
	for name, minYears := range thresholds {
		lvl, ok := model.ParseExperienceLevel(name)
		if !ok || lvl == model.ExperienceUnknown {
			return nil, fmt.Errorf("experience.thresholds: unknown level %q", name)
		}
		if minYears < 0 {
			return nil, fmt.Errorf("experience.thresholds[%s]: negative minimum %d", name, minYears)
		}
		bands = append(bands, YearBand{MinYears: minYears, Level: lvl})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinYears > bands[j].MinYears })
	return bands, nil
}
