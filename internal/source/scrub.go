package source

import (
	"regexp"
	"strings"
)

var (
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\+\d{1,3}[\s\-]\d{1,2}[\s\-]\d{1,3}[\s\-]?\d{0,4}`), // +358 50 339 2228
		regexp.MustCompile(`\d{2,3}[\s\-]\d{1,3}[\s\-]\d{1,4}[\s\-]?\d{0,4}`),   // 050 339 2228
		regexp.MustCompile(`\d{3}[\s\-]\d{3}[\s\-]\d{4}`),                       // 050-339-2228
	}
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)
	urlRegex   = regexp.MustCompile(`https?://\S+`)

	// A "Firstname Lastname" following a contact keyword in the same sentence.
	contactNameRegex = regexp.MustCompile(
		`(?i:\b(yhteydenotto|yhteystiedot|contact|lisätietoja|additional information|ota yhteyttä|call|email)\b)` +
			`[^.]*?\p{Lu}\p{Ll}+\s\p{Lu}\p{Ll}+`)
)

// ScrubPersonalData removes phone numbers, e-mail addresses, URLs and contact
// person names from description text, then collapses whitespace.
func ScrubPersonalData(text string) string {
	if text == "" {
		return text
	}
	for _, re := range phonePatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = emailRegex.ReplaceAllString(text, "")
	text = urlRegex.ReplaceAllString(text, "")
	text = contactNameRegex.ReplaceAllString(text, "$1")
	return strings.Join(strings.Fields(text), " ")
}
