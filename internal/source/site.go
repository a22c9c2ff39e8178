package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/amishk599/jobfacet/internal/model"
)

// userAgent is sent on every request; some sites reject the Go default.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var _ model.PostingSource = (*SiteAdapter)(nil)

// SiteAdapter scrapes listing pages and the description page of every card.
type SiteAdapter struct {
	name     string
	profile  SiteProfile
	maxPages int
	client   *http.Client
	logger   *slog.Logger
}

// NewSiteAdapter creates an adapter walking at most maxPages listing pages.
func NewSiteAdapter(name string, profile SiteProfile, maxPages int, client *http.Client, logger *slog.Logger) *SiteAdapter {
	if maxPages <= 0 {
		maxPages = 1
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SiteAdapter{name: name, profile: profile, maxPages: maxPages, client: client, logger: logger}
}

// Name implements model.PostingSource.
func (a *SiteAdapter) Name() string { return a.name }

// FetchPostings walks listing pages until maxPages or an empty page. A failure
// on the first page is returned; later page failures end the walk early.
func (a *SiteAdapter) FetchPostings(ctx context.Context) ([]model.Posting, error) {
	var postings []model.Posting
	for page := 0; page < a.maxPages; page++ {
		pageURL, err := a.pageURL(page)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}

		doc, err := a.get(ctx, pageURL)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("%s listing: %w", a.name, err)
			}
			a.logger.Warn("listing page failed, stopping", "source", a.name, "page", page, "error", err)
			break
		}

		cards := firstMatch(doc.Selection, a.profile.Cards)
		if cards.Length() == 0 {
			a.logger.Debug("no cards on listing page", "source", a.name, "page", page)
			break
		}

		before := len(postings)
		cards.Each(func(_ int, card *goquery.Selection) {
			p, ok := a.extractCard(card, pageURL)
			if !ok {
				return
			}
			p.Description = a.fetchDescription(ctx, p.URL)
			postings = append(postings, p)
		})
		a.logger.Info("scraped listing page",
			"source", a.name,
			"page", page,
			"cards", cards.Length(),
			"postings", len(postings)-before,
		)

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
	}
	return postings, nil
}

func (a *SiteAdapter) pageURL(page int) (string, error) {
	u, err := url.Parse(a.profile.ListingURL)
	if err != nil {
		return "", fmt.Errorf("parse listing url: %w", err)
	}
	if page > 0 {
		q := u.Query()
		q.Set(a.profile.PageParam, strconv.Itoa(page))
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// extractCard reads one listing card. Cards without a title are skipped.
func (a *SiteAdapter) extractCard(card *goquery.Selection, pageURL string) (model.Posting, bool) {
	titleSel := firstMatch(card, a.profile.Title).First()
	title := cleanText(titleSel)
	if title == "" {
		return model.Posting{}, false
	}

	p := model.Posting{
		Title:       title,
		URL:         model.NotAvailable,
		Company:     orNA(cleanText(firstMatch(card, a.profile.Company).First())),
		Location:    orNA(cleanText(firstMatch(card, a.profile.Location).First())),
		PublishDate: model.NotAvailable,
		Description: model.NotAvailable,
		Source:      a.profile.Source,
	}

	href, ok := titleSel.Attr("href")
	if !ok {
		href, ok = titleSel.Find("a[href]").First().Attr("href")
	}
	if !ok {
		href, ok = card.Find("a[href]").First().Attr("href")
	}
	if ok {
		if abs, err := resolve(pageURL, href); err == nil {
			p.URL = abs
		}
	}

	dateSel := firstMatch(card, a.profile.Date).First()
	if dt, ok := dateSel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		p.PublishDate = strings.TrimSpace(dt)
	} else {
		p.PublishDate = orNA(cleanText(dateSel))
	}
	return p, true
}

// fetchDescription returns the scrubbed description text, or "N/A" on any failure.
func (a *SiteAdapter) fetchDescription(ctx context.Context, pageURL string) string {
	if model.IsMissing(pageURL) {
		return model.NotAvailable
	}
	doc, err := a.get(ctx, pageURL)
	if err != nil {
		a.logger.Warn("description fetch failed", "source", a.name, "url", pageURL, "error", err)
		return model.NotAvailable
	}

	for _, selector := range a.profile.Description {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := cleanText(s)
			if len(strings.Fields(text)) > a.profile.MinDescriptionWords {
				found = text
				return false
			}
			return true
		})
		if found != "" {
			return orNA(ScrubPersonalData(found))
		}
	}
	return model.NotAvailable
}

func (a *SiteAdapter) get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "fi,en;q=0.8")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, model.NewHTTPError(resp, body)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// firstMatch returns the matches of the first selector in chain that finds anything.
func firstMatch(s *goquery.Selection, chain []string) *goquery.Selection {
	for _, selector := range chain {
		if found := s.Find(selector); found.Length() > 0 {
			return found
		}
	}
	return s.Slice(0, 0)
}

// cleanText joins the text nodes under s with spaces and collapses whitespace.
// Script and style content is skipped.
func cleanText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	abs := b.ResolveReference(h)
	abs.Fragment = ""
	return abs.String(), nil
}

func orNA(s string) string {
	if s == "" {
		return model.NotAvailable
	}
	return s
}
