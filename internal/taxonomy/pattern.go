package taxonomy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Pattern is a case-insensitive matcher over description text.
//
// A bounded pattern must start at a word start and end at a word end. RE2 has
// no look-behind and its \b only knows ASCII word characters, which breaks on
// anything ending in ä or ö. Bounded patterns therefore check the trailing
// boundary inside the regexp and the leading boundary by hand. An expression
// that ends in \p{L}* still anchors at a word start but takes any inflected
// or compound ending ("opiskelij\p{L}*" matches "opiskelijoille").
type Pattern struct {
	expr    string
	re      *regexp.Regexp
	bounded bool
	stems   []string
}

// Compile builds a Pattern from a regexp expression. Matching is always
// case-insensitive unless a group clears the flag with (?-i:...).
func Compile(expr string, bounded bool) (*Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	full := "(?i)" + expr
	if bounded {
		full = `(?i)(` + expr + `)(?:[^\p{L}\p{N}_]|$)`
	}
	re, err := regexp.Compile(full)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", expr, err)
	}
	return &Pattern{expr: expr, re: re, bounded: bounded}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string, bounded bool) *Pattern {
	p, err := Compile(expr, bounded)
	if err != nil {
		panic(err)
	}
	return p
}

// CompileTerms builds a bounded Pattern matching any of the literal terms.
// Spaces inside a term match any run of whitespace. A trailing "*" makes the
// term a stem: it matches at a word start with any ending, and FindAll
// reports the stem itself ("hitsaus*" finds "hitsaus" in "hitsauskokemus").
// A leading "=" makes the term case-sensitive ("=IT" ignores the pronoun).
func CompileTerms(terms []string) (*Pattern, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty term list")
	}
	sorted := make([]string, 0, len(terms))
	var stems []string
	for _, t := range terms {
		t = strings.TrimSpace(t)
		exact := strings.HasPrefix(t, "=")
		t = strings.TrimPrefix(t, "=")
		stem := strings.HasSuffix(t, "*")
		t = strings.TrimSpace(strings.TrimSuffix(t, "*"))
		if t == "" {
			continue
		}
		alt := strings.Join(strings.Fields(regexp.QuoteMeta(t)), `\s+`)
		if stem {
			alt += `\p{L}*`
			stems = append(stems, t)
		}
		if exact {
			alt = `(?-i:` + alt + `)`
		}
		sorted = append(sorted, alt)
	}
	if len(sorted) == 0 {
		return nil, fmt.Errorf("empty term list")
	}
	// Longer alternatives first so "node.js" is tried before "node".
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	sort.SliceStable(stems, func(i, j int) bool { return len(stems[i]) > len(stems[j]) })
	p, err := Compile(strings.Join(sorted, "|"), true)
	if err != nil {
		return nil, err
	}
	p.stems = stems
	return p, nil
}

// String returns the source expression.
func (p *Pattern) String() string { return p.expr }

// MatchString reports whether text contains evidence for the pattern.
func (p *Pattern) MatchString(text string) bool {
	if !p.bounded {
		return p.re.MatchString(text)
	}
	return len(p.boundedSpans(text, 1)) > 0
}

// FindAll returns every non-overlapping match in text order. For bounded
// patterns the match is the whole term. For plain patterns it is the first
// capture group when the expression has one, otherwise the whole match.
func (p *Pattern) FindAll(text string) []string {
	if p.bounded {
		spans := p.boundedSpans(text, -1)
		out := make([]string, 0, len(spans))
		for _, s := range spans {
			out = append(out, p.trimToStem(text[s[0]:s[1]]))
		}
		return out
	}

	matches := p.re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(m) > 1 && m[1] != "" {
			out = append(out, m[1])
			continue
		}
		out = append(out, m[0])
	}
	return out
}

// trimToStem cuts a match back to the longest stem term it starts with.
func (p *Pattern) trimToStem(match string) string {
	for _, stem := range p.stems {
		if len(match) >= len(stem) && strings.EqualFold(match[:len(stem)], stem) {
			return match[:len(stem)]
		}
	}
	return match
}

// boundedSpans returns up to limit [start, end) spans of whole-word matches.
// A negative limit returns all of them.
func (p *Pattern) boundedSpans(text string, limit int) [][2]int {
	var spans [][2]int
	pos := 0
	for pos <= len(text) && (limit < 0 || len(spans) < limit) {
		loc := p.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[2], pos+loc[3]
		if end == start || !leftBoundary(text, start) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		spans = append(spans, [2]int{start, end})
		pos = end
	}
	return spans
}

func leftBoundary(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
