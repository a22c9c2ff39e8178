// Package source fetches raw postings from recruitment sites and saved scrapes.
package source

// SiteProfile declares how to scrape one recruitment site. Every selector
// field is a priority chain: the first selector that matches is used.
type SiteProfile struct {
	Source              string // value for Posting.Source
	ListingURL          string
	PageParam           string // query parameter for pages after the first
	Cards               []string
	Title               []string
	Company             []string
	Location            []string
	Date                []string
	Description         []string
	MinDescriptionWords int
}

var genericDescription = []string{
	"div.job-description",
	"section.job-description",
	"div.description",
	"section.description",
	`div[class*="job-content"]`,
	`section[class*="job-content"]`,
	"div.content",
	"main.content",
	`div[class*="job-description"]`,
	".job-description",
	".description",
	"article",
	"main",
}

// JoblyProfile scrapes jobly.fi listing pages starting at listingURL.
func JoblyProfile(listingURL string) SiteProfile {
	return SiteProfile{
		Source:     "jobly.fi",
		ListingURL: listingURL,
		PageParam:  "page",
		Cards:      []string{"article"},
		Title:      []string{"h2.node__title a", "h2.node__title"},
		Company:    []string{"span.recruiter-company-profile-job-organization"},
		Location:   []string{"div.location"},
		Date:       []string{"span.date"},
		Description: append([]string{
			`div.field__item[property="content:encoded"]`,
			"div.field--name-body div.field__item",
		}, genericDescription...),
		MinDescriptionWords: 50,
	}
}

// DuunitoriProfile scrapes duunitori.fi listing pages starting at listingURL.
func DuunitoriProfile(listingURL string) SiteProfile {
	return SiteProfile{
		Source:     "duunitori.fi",
		ListingURL: listingURL,
		PageParam:  "page",
		Cards: []string{
			"div.job-item",
			`div[class*="job-item"]`,
			`article[class*="job"]`,
			"div[data-jobid]",
			".job-card",
			".job-listing",
			`div:has(> a[href*="/tyopaikat/"])`,
		},
		Title: []string{
			`h2[class*="job-title"] a`,
			`h3[class*="job-title"] a`,
			`a[class*="job-title"]`,
			"h2 a",
			"h3 a",
			`a[href*="/tyopaikat"]`,
			"h1, h2, h3, h4",
		},
		Company: []string{
			`span[class*="company"]`,
			`div[class*="company"]`,
			`[class*="employer"]`,
			`span[class*="recruiter"]`,
			`div[class*="recruiter"]`,
		},
		Location: []string{
			`span[class*="location"]`,
			`div[class*="location"]`,
			`[class*="place"]`,
			`span[class*="city"]`,
		},
		Date: []string{
			`span[class*="date"]`,
			"time",
			`[class*="published"]`,
			`[class*="posted"]`,
		},
		Description: append([]string{
			`div[class*="job-description"]`,
			`div[class*="description"]`,
		}, genericDescription...),
		MinDescriptionWords: 50,
	}
}
