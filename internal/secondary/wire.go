package secondary

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

// ErrMalformed marks a response that is not a JSON array aligned with the request.
var ErrMalformed = errors.New("malformed classifier response")

// Result is the normalized answer for one description.
type Result struct {
	Facets model.Facets
	Err    error // set when the classifier flagged this item
}

type kind int

const (
	kindAbsent kind = iota
	kindScalar
	kindList
	kindObject
	kindOther
)

// value is one loosely typed response field: a scalar, a list, a nested
// object, or something unusable (booleans, absent keys, null).
type value struct {
	kind   kind
	scalar string
	list   []value
	object map[string]value
}

func (v *value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*v = value{}
		return nil
	}
	switch data[0] {
	case 'n':
		*v = value{}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = value{kind: kindScalar, scalar: s}
	case '[':
		var list []value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = value{kind: kindList, list: list}
	case '{':
		var obj map[string]value
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*v = value{kind: kindObject, object: obj}
	case 't', 'f':
		*v = value{kind: kindOther}
	default:
		*v = value{kind: kindScalar, scalar: string(data)}
	}
	return nil
}

// get returns the named member of an object, or absent.
func (v value) get(key string) value {
	if v.kind != kindObject {
		return value{}
	}
	return v.object[key]
}

// first returns the first present member among keys.
func (v value) first(keys ...string) value {
	for _, k := range keys {
		if f := v.get(k); f.kind != kindAbsent {
			return f
		}
	}
	return value{}
}

// unwrap descends into a facet that arrived nested under its own sub-key,
// e.g. {"job_type": {"job_type": "full-time"}}.
func (v value) unwrap(subkey string) value {
	if v.kind == kindObject {
		if inner, ok := v.object[subkey]; ok {
			return inner
		}
	}
	return v
}

// strings flattens a scalar or a list of scalars. Anything else is no evidence.
func (v value) strings() []string {
	switch v.kind {
	case kindScalar:
		if s := strings.TrimSpace(v.scalar); s != "" {
			return []string{s}
		}
	case kindList:
		var out []string
		for _, e := range v.list {
			out = append(out, e.strings()...)
		}
		return out
	case kindAbsent, kindObject, kindOther:
	}
	return nil
}

// ParseResponse decodes a raw classifier response for a batch of n
// descriptions. A body that is not a JSON array of exactly n elements is
// rejected as a whole.
func ParseResponse(raw []byte, n int) ([]Result, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(items) != n {
		return nil, fmt.Errorf("%w: expected %d items, got %d", ErrMalformed, n, len(items))
	}

	results := make([]Result, n)
	for i, data := range items {
		var item value
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		results[i] = decodeItem(item)
	}
	return results, nil
}

func decodeItem(item value) Result {
	if msg := item.first("_error", "error").strings(); len(msg) > 0 {
		return Result{Facets: model.EmptyFacets(), Err: errors.New(msg[0])}
	}
	f := model.Facets{
		JobType:          coerceJobType(item),
		Language:         coerceLanguage(item),
		ExperienceLevel:  coerceExperience(item),
		EducationLevel:   coerceEducation(item),
		SkillType:        coerceSkills(item),
		Responsibilities: coerceResponsibilities(item),
	}
	return Result{Facets: f.Normalize()}
}

func coerceJobType(item value) []model.JobType {
	var out []model.JobType
	for _, s := range item.get("job_type").unwrap("job_type").strings() {
		if jt, ok := model.ParseJobType(s); ok {
			out = append(out, jt)
		}
	}
	return out
}

func coerceLanguage(item value) model.LanguageRequirements {
	v := item.first("language", "languages").unwrap("languages")
	return model.LanguageRequirements{
		Required:  lowerAll(v.get("required").strings()),
		Advantage: lowerAll(v.get("advantage").strings()),
	}
}

func coerceExperience(item value) model.ExperienceLevel {
	v := item.first("experience_level", "experience").unwrap("level").unwrap("experience_level")
	for _, s := range v.strings() {
		if lvl, ok := model.ParseExperienceLevel(s); ok {
			return lvl
		}
	}
	return model.ExperienceUnknown
}

func coerceEducation(item value) []model.EducationLevel {
	var out []model.EducationLevel
	for _, s := range item.first("education_level", "education").unwrap("education_level").strings() {
		if lvl, ok := model.ParseEducationLevel(s); ok {
			out = append(out, lvl)
		}
	}
	return out
}

func coerceSkills(item value) map[model.SkillCategory][]string {
	v := item.first("skill_type", "skills").unwrap("skills")
	out := make(map[model.SkillCategory][]string)
	switch v.kind {
	case kindObject:
		for _, key := range slices.Sorted(maps.Keys(v.object)) {
			cat, _ := model.ParseSkillCategory(key)
			out[cat] = append(out[cat], lowerAll(v.object[key].strings())...)
		}
	case kindScalar, kindList:
		out[model.SkillOther] = lowerAll(v.strings())
	case kindAbsent, kindOther:
	}
	return out
}

func coerceResponsibilities(item value) []string {
	return item.get("responsibilities").unwrap("responsibilities").strings()
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, strings.ToLower(s))
	}
	return out
}
