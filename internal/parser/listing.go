package parser

import (
	"bytes"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ngascope/ngascope/internal/types"
)

var digitRuns = regexp.MustCompile(`\d+`)

// ListingParser turns one board listing page into a deduplicated set of
// post stubs.
type ListingParser struct {
	baseURL *url.URL
	logger  *slog.Logger
}

// NewListingParser creates a parser that resolves relative thread links
// against baseURL.
func NewListingParser(baseURL string, logger *slog.Logger) (*ListingParser, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, &types.ParseError{URL: baseURL, Err: err}
	}
	return &ListingParser{
		baseURL: base,
		logger:  logger.With("component", "listing_parser"),
	}, nil
}

// Parse extracts post stubs from a listing page. A malformed row is skipped,
// never fatal; an empty result is the paging stop signal, not an error.
func (p *ListingParser) Parse(html []byte) ([]types.PostStub, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &types.ParseError{URL: p.baseURL.String(), Err: err}
	}

	var stubs []types.PostStub

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return // structural noise
		}

		// Listing row layout: cell 0 reply count, cell 1 title link,
		// cell 2 author.
		titleLink := cells.Eq(1).Find("a[href]").First()
		if titleLink.Length() == 0 {
			return
		}

		href, _ := titleLink.Attr("href")
		if href == "" || !(strings.Contains(href, "read.php") || strings.Contains(href, "tid=")) {
			return
		}

		title := strings.TrimSpace(titleLink.Text())
		if len([]rune(title)) < 3 {
			return // navigation/decoration rows
		}

		topicID := ExtractTopicID(href)
		if topicID == "" {
			return
		}

		stubs = append(stubs, types.PostStub{
			Title:   title,
			URL:     p.resolveURL(href),
			TopicID: topicID,
			Author:  p.extractAuthor(cells.Eq(2)),
		})
	})

	unique := dedupeStubs(stubs)
	p.logger.Debug("listing parsed", "rows", len(stubs), "unique", len(unique))
	return unique, nil
}

// resolveURL makes a thread link absolute against the board's base URL.
func (p *ListingParser) resolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return p.baseURL.ResolveReference(ref).String()
}

// extractAuthor prefers a user-profile link's visible text; failing that it
// strips digit runs from the cell text and keeps up to 20 runes. Best-effort
// only, falling back to the unknown-author sentinel.
func (p *ListingParser) extractAuthor(cell *goquery.Selection) string {
	var author string

	cell.Find("a[href]").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		href, _ := link.Attr("href")
		if strings.Contains(href, "uid=") {
			author = strings.TrimSpace(link.Text())
			return false
		}
		return true
	})

	if author == "" {
		clean := strings.TrimSpace(digitRuns.ReplaceAllString(cell.Text(), ""))
		if runes := []rune(clean); len(runes) > 1 {
			if len(runes) > 20 {
				runes = runes[:20]
			}
			author = string(runes)
		}
	}

	if author == "" {
		return types.UnknownAuthor
	}
	return author
}

// dedupeStubs drops stubs with a repeated topic ID, preserving first-seen
// order.
func dedupeStubs(stubs []types.PostStub) []types.PostStub {
	seen := make(map[string]bool, len(stubs))
	unique := make([]types.PostStub, 0, len(stubs))
	for _, s := range stubs {
		if s.TopicID == "" || seen[s.TopicID] {
			continue
		}
		seen[s.TopicID] = true
		unique = append(unique, s)
	}
	return unique
}
