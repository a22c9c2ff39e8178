package model

import (
	"slices"
	"strings"
)

// JobType is an employment arrangement.
type JobType string

const (
	JobTypeFullTime   JobType = "full_time"
	JobTypePartTime   JobType = "part_time"
	JobTypeInternship JobType = "internship"
)

// ExperienceLevel is the single seniority band of a posting.
type ExperienceLevel string

const (
	ExperienceUnknown    ExperienceLevel = "unknown"
	ExperienceStudent    ExperienceLevel = "student"
	ExperienceEntry      ExperienceLevel = "entry"
	ExperienceSpecialist ExperienceLevel = "specialist"
	ExperienceSenior     ExperienceLevel = "senior"
)

// EducationLevel is a degree or qualification tier.
type EducationLevel string

const (
	EducationVocational EducationLevel = "vocational"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationPhD        EducationLevel = "phd"
)

// EducationOrder is the canonical order education levels are reported in.
var EducationOrder = []EducationLevel{EducationVocational, EducationBachelor, EducationMaster, EducationPhD}

// SkillCategory groups matched skill tokens.
type SkillCategory string

const (
	SkillProgramming    SkillCategory = "programming"
	SkillSoft           SkillCategory = "soft_skills"
	SkillDomainSpecific SkillCategory = "domain_specific"
	SkillCertificate    SkillCategory = "certificate"
	SkillOther          SkillCategory = "other"
)

// SkillCategories lists every category present in a Facets.SkillType map.
var SkillCategories = []SkillCategory{SkillProgramming, SkillSoft, SkillDomainSpecific, SkillCertificate, SkillOther}

// MaxResponsibilities caps Facets.Responsibilities.
const MaxResponsibilities = 10

// LanguageRequirements splits languages into hard requirements and nice-to-haves.
type LanguageRequirements struct {
	Required  []string `json:"required"`
	Advantage []string `json:"advantage"`
}

// Facets is the fixed-shape classification result for one description.
type Facets struct {
	JobType          []JobType                  `json:"job_type"`
	Language         LanguageRequirements       `json:"language"`
	ExperienceLevel  ExperienceLevel            `json:"experience_level"`
	EducationLevel   []EducationLevel           `json:"education_level"`
	SkillType        map[SkillCategory][]string `json:"skill_type"`
	Responsibilities []string                   `json:"responsibilities"`
}

// EmptyFacets returns the canonical empty analysis.
func EmptyFacets() Facets {
	f := Facets{
		JobType:          []JobType{},
		Language:         LanguageRequirements{Required: []string{}, Advantage: []string{}},
		ExperienceLevel:  ExperienceUnknown,
		EducationLevel:   []EducationLevel{},
		SkillType:        make(map[SkillCategory][]string, len(SkillCategories)),
		Responsibilities: []string{},
	}
	for _, c := range SkillCategories {
		f.SkillType[c] = []string{}
	}
	return f
}

// Normalize enforces the shape invariants: no nil slices, every skill
// category present, required languages never repeated as advantages,
// education in canonical order and responsibilities capped.
func (f Facets) Normalize() Facets {
	out := EmptyFacets()
	out.JobType = appendUnique(out.JobType, f.JobType...)
	out.Language.Required = appendUnique(out.Language.Required, f.Language.Required...)
	for _, lang := range f.Language.Advantage {
		if !slices.Contains(out.Language.Required, lang) {
			out.Language.Advantage = appendUnique(out.Language.Advantage, lang)
		}
	}
	if f.ExperienceLevel != "" {
		out.ExperienceLevel = f.ExperienceLevel
	}
	for _, lvl := range EducationOrder {
		if slices.Contains(f.EducationLevel, lvl) {
			out.EducationLevel = append(out.EducationLevel, lvl)
		}
	}
	for cat, skills := range f.SkillType {
		if !slices.Contains(SkillCategories, cat) {
			cat = SkillOther
		}
		out.SkillType[cat] = appendUnique(out.SkillType[cat], skills...)
	}
	for _, r := range f.Responsibilities {
		if len(out.Responsibilities) == MaxResponsibilities {
			break
		}
		out.Responsibilities = append(out.Responsibilities, r)
	}
	return out
}

// HasJobType reports whether any job type was detected.
func (f Facets) HasJobType() bool { return len(f.JobType) > 0 }

// HasLanguage reports whether any language requirement was detected.
func (f Facets) HasLanguage() bool {
	return len(f.Language.Required) > 0 || len(f.Language.Advantage) > 0
}

// HasExperience reports whether the experience level is known.
func (f Facets) HasExperience() bool {
	return f.ExperienceLevel != "" && f.ExperienceLevel != ExperienceUnknown
}

// HasEducation reports whether any education level was detected.
func (f Facets) HasEducation() bool { return len(f.EducationLevel) > 0 }

// HasSkills reports whether any skill category holds a token.
func (f Facets) HasSkills() bool {
	for _, skills := range f.SkillType {
		if len(skills) > 0 {
			return true
		}
	}
	return false
}

// HasResponsibilities reports whether any responsibility was extracted.
func (f Facets) HasResponsibilities() bool { return len(f.Responsibilities) > 0 }

func appendUnique[T comparable](dst []T, vals ...T) []T {
	for _, v := range vals {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_", "'", "", ".", "").Replace(s)
	return s
}

// ParseJobType maps loose spellings such as "full-time" onto a JobType.
func ParseJobType(s string) (JobType, bool) {
	switch canonical(s) {
	case "full_time", "fulltime":
		return JobTypeFullTime, true
	case "part_time", "parttime":
		return JobTypePartTime, true
	case "internship", "intern", "trainee":
		return JobTypeInternship, true
	}
	return "", false
}

// ParseExperienceLevel maps a level name onto an ExperienceLevel. The
// alias "junior" names the same 2-5 year band as "specialist".
func ParseExperienceLevel(s string) (ExperienceLevel, bool) {
	switch canonical(s) {
	case "unknown":
		return ExperienceUnknown, true
	case "student":
		return ExperienceStudent, true
	case "entry", "entry_level":
		return ExperienceEntry, true
	case "specialist", "junior", "mid", "mid_level":
		return ExperienceSpecialist, true
	case "senior":
		return ExperienceSenior, true
	}
	return "", false
}

// ParseEducationLevel maps a degree name onto an EducationLevel.
func ParseEducationLevel(s string) (EducationLevel, bool) {
	switch canonical(s) {
	case "vocational":
		return EducationVocational, true
	case "bachelor", "bachelors":
		return EducationBachelor, true
	case "master", "masters":
		return EducationMaster, true
	case "phd", "doctorate", "doctoral":
		return EducationPhD, true
	}
	return "", false
}

// ParseSkillCategory maps a category name onto a SkillCategory. Unknown
// names report false and SkillOther.
func ParseSkillCategory(s string) (SkillCategory, bool) {
	switch canonical(s) {
	case "programming", "technical":
		return SkillProgramming, true
	case "soft_skills", "soft":
		return SkillSoft, true
	case "domain_specific", "domain":
		return SkillDomainSpecific, true
	case "certificate", "certificates", "certifications":
		return SkillCertificate, true
	case "other":
		return SkillOther, true
	}
	return SkillOther, false
}
