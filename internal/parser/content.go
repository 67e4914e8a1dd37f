package parser

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// TruncationMarker is appended when a post body exceeds the configured
// maximum length.
const TruncationMarker = "..."

// contentLocators are tried in priority order; the first locator that
// matches anything wins, and its first element is taken (the opening post
// renders before any replies).
var contentLocators = []string{
	".postcontent",
	`[id^="postcontainer"]`,
	".ubbcode",
	".quote",
}

// chromeDenylist marks block text that is forum UI rather than post body.
var chromeDenylist = []string{"回复", "引用", "举报"}

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	boilerplate    = []*regexp.Regexp{
		regexp.MustCompile(`\[.*?\]`), // UBB directives
		regexp.MustCompile(`本帖最后由.*?编辑`),
		regexp.MustCompile(`使用道具.*?举报`),
		regexp.MustCompile(`回复.*?支持.*?反对`),
	}
)

// ContentExtractor pulls the opening post's cleaned body text out of a
// thread page. Stateless.
type ContentExtractor struct {
	maxLength int
	logger    *slog.Logger
}

// NewContentExtractor creates an extractor that truncates bodies to
// maxLength runes.
func NewContentExtractor(maxLength int, logger *slog.Logger) *ContentExtractor {
	return &ContentExtractor{
		maxLength: maxLength,
		logger:    logger.With("component", "content_extractor"),
	}
}

// Extract returns the cleaned opening-post text, or "" when the page holds
// no usable content. Absence is not an error.
func (e *ContentExtractor) Extract(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		e.logger.Warn("thread page unparseable", "error", err)
		return ""
	}

	text := e.fromLocators(doc)
	if text == "" {
		text = e.fromBlockScan(html)
	}
	return e.Truncate(text)
}

// fromLocators walks the prioritized locator chain.
func (e *ContentExtractor) fromLocators(doc *goquery.Document) string {
	for _, locator := range contentLocators {
		sel := doc.Find(locator)
		if sel.Length() == 0 {
			continue
		}
		if text := CleanText(sel.First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// fromBlockScan is the last-resort pass: scan every block container and take
// the first whose text is long enough and free of UI chrome.
func (e *ContentExtractor) fromBlockScan(html []byte) string {
	doc, err := htmlquery.Parse(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	divs, err := htmlquery.QueryAll(doc, "//div")
	if err != nil {
		return ""
	}
	for _, div := range divs {
		text := strings.TrimSpace(htmlquery.InnerText(div))
		if len([]rune(text)) <= 50 {
			continue
		}
		if containsAny(text, chromeDenylist) {
			continue
		}
		return CleanText(text)
	}
	return ""
}

// Truncate caps text at the configured rune length, appending the marker.
// Text already within the bound is returned unchanged.
func (e *ContentExtractor) Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= e.maxLength {
		return text
	}
	return string(runes[:e.maxLength]) + TruncationMarker
}

// CleanText collapses whitespace runs and strips forum boilerplate from a
// post body.
func CleanText(text string) string {
	text = whitespaceRuns.ReplaceAllString(strings.TrimSpace(text), " ")
	for _, re := range boilerplate {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
