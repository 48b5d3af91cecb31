// Package fetch retrieves web pages and extracts their readable content.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"clarion/internal/core"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultFetchTimeout is the per-URL fetch timeout.
	DefaultFetchTimeout = 8 * time.Second
	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 2 << 20
	// excerptLength is the target length of the excerpt, in characters.
	excerptLength = 300
)

// Extractor fetches URLs and produces PageExtracts. Any failure (transport,
// status, content type, empty content) yields an error and no extract; the
// caller drops the URL and continues.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// NewExtractor creates an extractor with the given timeout (zero for default).
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Extractor{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
	}
}

// Extract fetches the URL and strips it down to title, body, excerpt, and
// published date.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*core.PageExtract, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status code %d", pageURL, resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return nil, fmt.Errorf("unsupported content type %q for %s", contentType, pageURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	extract := &core.PageExtract{
		URL:           pageURL,
		Title:         extractTitle(doc),
		PublishedDate: extractPublishedDate(doc),
	}

	extract.Body = extractBody(doc)
	if strings.TrimSpace(extract.Body) == "" {
		return nil, fmt.Errorf("no readable content at %s", pageURL)
	}
	extract.Excerpt = makeExcerpt(extract.Body)
	if extract.Title == "" {
		extract.Title = fallbackTitle(extract.Body)
	}

	return extract, nil
}

// extractTitle tries common title sources in order of fidelity.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content"); strings.TrimSpace(ogTitle) != "" {
		return strings.TrimSpace(ogTitle)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

var multiNewline = regexp.MustCompile(`\n{3,}`)

// extractBody strips chrome and pulls the main textual content, preferring
// semantic containers before falling back to the whole body.
func extractBody(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner").Remove()

	mainContentSelectors := []string{
		"article", "main", ".main-content", ".entry-content", ".post-content", ".post-body", ".article-body",
		"[role='main']",
		".content", "#content",
	}

	var textBuilder strings.Builder
	collect := func(s *goquery.Selection) {
		s.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, pre").Each(func(_ int, item *goquery.Selection) {
			text := strings.TrimSpace(item.Text())
			if text == "" {
				return
			}
			textBuilder.WriteString(text)
			textBuilder.WriteString("\n\n")
		})
	}

	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			collect(s)
		})
		if textBuilder.Len() > 0 {
			break
		}
	}
	if textBuilder.Len() == 0 {
		collect(doc.Find("body"))
	}

	body := multiNewline.ReplaceAllString(textBuilder.String(), "\n\n")
	return strings.TrimSpace(body)
}

// extractPublishedDate reads publication dates from common meta tags.
func extractPublishedDate(doc *goquery.Document) *time.Time {
	candidates := []func() string{
		func() string { v, _ := doc.Find("meta[property='article:published_time']").Attr("content"); return v },
		func() string { v, _ := doc.Find("meta[property='og:published_time']").Attr("content"); return v },
		func() string { v, _ := doc.Find("meta[name='date']").Attr("content"); return v },
		func() string { v, _ := doc.Find("meta[name='publish-date']").Attr("content"); return v },
		func() string { v, _ := doc.Find("time[datetime]").First().Attr("datetime"); return v },
	}
	for _, candidate := range candidates {
		if t := ParseDateHint(candidate()); t != nil {
			return t
		}
	}
	return nil
}

var relativeAgePattern = regexp.MustCompile(`(?i)^(\d+)\s+(hour|day|week|month|year)s?\s+ago$`)

// ParseDateHint parses the loose date strings found in meta tags and search
// provider age hints: ISO timestamps, "Month D, YYYY", and "N units ago".
// Returns nil when the hint is empty or unparseable.
func ParseDateHint(hint string) *time.Time {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return nil
	}

	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"January 2, 2006",
		"Jan 2, 2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, hint); err == nil {
			return &t
		}
	}

	if m := relativeAgePattern.FindStringSubmatch(hint); m != nil {
		n := 0
		for _, c := range m[1] {
			n = n*10 + int(c-'0')
		}
		var d time.Duration
		switch strings.ToLower(m[2]) {
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		case "year":
			d = time.Duration(n) * 365 * 24 * time.Hour
		}
		t := time.Now().UTC().Add(-d)
		return &t
	}

	return nil
}

// makeExcerpt trims the body to a short excerpt, preferring a word boundary
// and never splitting a multi-byte rune.
func makeExcerpt(body string) string {
	flat := strings.Join(strings.Fields(body), " ")
	if len(flat) <= excerptLength {
		return flat
	}
	end := excerptLength
	for end > 0 && !utf8.RuneStart(flat[end]) {
		end--
	}
	cut := flat[:end]
	if idx := strings.LastIndex(cut, " "); idx > excerptLength/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// fallbackTitle derives a title from the first words of the body.
func fallbackTitle(body string) string {
	words := strings.Fields(body)
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}
