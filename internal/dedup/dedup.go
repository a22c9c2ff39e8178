// Package dedup removes postings that describe the same job, whether they
// share a URL or were re-posted under a different URL on another site.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

// fieldSeparator joins normalized fields before hashing. The ASCII unit
// separator does not survive normalization, so it cannot appear in a field.
const fieldSeparator = "\x1f"

var (
	// legalSuffixRegex holds the suffixes that never occur as ordinary words
	// in Finnish or English titles and places.
	legalSuffixRegex = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:oyj|oy|ab|ltd|inc|gmbh)(?:[^\p{L}\p{N}_]|$)`)
	// companySuffixRegex adds the short forms ("co", "ag", "ry") that would
	// merge different titles such as "Co-Founder" and "Founder".
	companySuffixRegex = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:oyj|oy|ab|ltd|inc|gmbh|llc|plc|corp|co|ky|tmi|ry|aps|ag|bv)(?:[^\p{L}\p{N}_]|$)`)
	punctRegex         = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
)

// Normalize canonicalizes a title or location string for fingerprinting:
// lowercase, legal-entity suffixes removed, punctuation stripped and
// whitespace collapsed. The "N/A" sentinel normalizes to "".
func Normalize(s string) string {
	return normalize(s, legalSuffixRegex)
}

// NormalizeCompany is Normalize with the full list of company-form suffixes.
func NormalizeCompany(s string) string {
	return normalize(s, companySuffixRegex)
}

func normalize(s string, suffixes *regexp.Regexp) string {
	if model.IsMissing(s) {
		return ""
	}
	s = strings.ToLower(s)
	// Suffix matches share their boundary characters, so a single pass can
	// miss adjacent suffixes such as "oy ab"; repeat until stable.
	for {
		next := suffixes.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	s = punctRegex.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Key returns the normalized company|title|location key of a posting.
func Key(p model.Posting) string {
	return strings.Join([]string{
		NormalizeCompany(p.Company),
		Normalize(p.Title),
		Normalize(p.Location),
	}, fieldSeparator)
}

// Fingerprint returns the hex SHA-256 of the posting's normalized key.
func Fingerprint(p model.Posting) string {
	sum := sha256.Sum256([]byte(Key(p)))
	return hex.EncodeToString(sum[:])
}

// Stats summarizes one deduplication pass.
type Stats struct {
	Input              int
	Kept               int
	DroppedURL         int
	DroppedFingerprint int
}

// Deduplicator filters postings to first occurrences. It is stateless
// between calls.
type Deduplicator struct {
	logger *slog.Logger
}

// New returns a Deduplicator. A nil logger discards output.
func New(logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Deduplicator{logger: logger}
}

// Deduplicate keeps the first posting for every URL and every fingerprint,
// preserving input order. A posting is dropped when either its URL or its
// fingerprint has been seen; otherwise both are recorded.
func (d *Deduplicator) Deduplicate(postings []model.Posting) ([]model.Posting, Stats) {
	stats := Stats{Input: len(postings)}
	seenURLs := make(map[string]struct{}, len(postings))
	seenPrints := make(map[string]struct{}, len(postings))
	kept := make([]model.Posting, 0, len(postings))

	for _, p := range postings {
		url := strings.TrimSpace(p.URL)
		hasURL := !model.IsMissing(url)
		if hasURL {
			if _, ok := seenURLs[url]; ok {
				stats.DroppedURL++
				d.logger.Debug("duplicate url", "url", url, "title", p.Title)
				continue
			}
		}

		fp := Fingerprint(p)
		if _, ok := seenPrints[fp]; ok {
			stats.DroppedFingerprint++
			d.logger.Debug("duplicate posting", "title", p.Title, "company", p.Company, "source", p.Source)
			continue
		}

		if hasURL {
			seenURLs[url] = struct{}{}
		}
		seenPrints[fp] = struct{}{}
		kept = append(kept, p)
	}

	stats.Kept = len(kept)
	return kept, stats
}

// Deduplicate is a convenience wrapper that discards stats and logs.
func Deduplicate(postings []model.Posting) []model.Posting {
	kept, _ := New(nil).Deduplicate(postings)
	return kept
}
