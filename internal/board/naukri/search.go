package naukri

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"naukri-agent/internal/browser"
	"naukri-agent/internal/jobs"
)

// Job card markup variants.
const jobCardSelector = "article.jobTuple, div.srp-jobtuple-wrapper"

// FindJobs loads the search result page for one query and returns the
// postings on it.
func (s *session) FindJobs(ctx context.Context, query jobs.Query) (*jobs.Candidates, error) {
	s.currentID = ""

	target := searchPageURL(s.baseURL, query.Role, query.Location, query.Experience)
	s.logger.Debug("loading search page",
		zap.String("role", query.Role),
		zap.String("location", query.Location),
		zap.String("url", target),
	)

	if err := browser.Navigate(ctx, s.page, target, navTimeout); err != nil {
		return nil, err
	}
	if err := s.settle(ctx); err != nil {
		return nil, err
	}

	html, err := s.page.HTML()
	if err != nil {
		return nil, fmt.Errorf("reading search page: %w", err)
	}

	found, err := parseJobCards(html, s.baseURL)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search page parsed",
		zap.String("role", query.Role),
		zap.String("location", query.Location),
		zap.Int("postings", len(found)),
	)

	return &jobs.Candidates{Items: found}, nil
}

// searchPageURL builds the board's pretty search URL, e.g.
// "https://www.naukri.com/data-engineer-jobs-in-pune?experience=3".
func searchPageURL(base, role, location, experience string) string {
	target := fmt.Sprintf("%s/%s-jobs-in-%s", strings.TrimRight(base, "/"), slugify(role), slugify(location))
	if experience != "" {
		target += "?experience=" + url.QueryEscape(experience)
	}
	return target
}

func slugify(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(strings.TrimSpace(s)), "-"))
}

// parseJobCards extracts the postings from a search result page.
func parseJobCards(html, base string) ([]*jobs.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search page: %w", err)
	}

	var found []*jobs.Candidate
	seen := make(map[string]bool)

	doc.Find(jobCardSelector).Each(func(_ int, card *goquery.Selection) {
		titleLink := card.Find("a.title").First()
		href, ok := titleLink.Attr("href")
		if !ok {
			return
		}
		title := strings.TrimSpace(titleLink.Text())
		if title == "" {
			return
		}

		link := absoluteURL(base, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true

		company := strings.TrimSpace(card.Find("a.subTitle, a.comp-name").First().Text())
		location := strings.TrimSpace(card.Find(".locWdth, .location span, span.loc-wrap").First().Text())
		description := normalizeText(card.Text())

		found = append(found, &jobs.Candidate{
			ID:          jobs.CandidateID(jobs.SourceScrape, nativeJobID(link)),
			Title:       title,
			Company:     company,
			Location:    location,
			URL:         link,
			Source:      jobs.SourceScrape,
			Description: description,
			Experience:  jobs.ParseExperience(description),
		})
	})

	return found, nil
}

// nativeJobID digs the numeric posting id out of a job URL. Listing URLs
// end in "...-<id>"; anything unrecognized falls back to the last path
// segment so the id stays stable either way.
func nativeJobID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}

	path := strings.Trim(u.Path, "/")
	if path == "" {
		return link
	}
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]

	if i := strings.LastIndex(last, "-"); i >= 0 {
		if tail := last[i+1:]; isDigits(tail) {
			return tail
		}
	}
	return last
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(u).String()
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
