package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"clarion/internal/core"
	"clarion/internal/logger"
)

// DuckDuckGoProvider implements Provider by scraping the DuckDuckGo HTML
// endpoint. It needs no API key and serves as the keyless fallback backend.
type DuckDuckGoProvider struct {
	client    *http.Client
	userAgent string
	baseURL   string
	limiter   *rateLimiter
}

// NewDuckDuckGoProvider creates a new DuckDuckGo search provider.
func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
		baseURL:   "https://html.duckduckgo.com/html/",
		limiter:   newRateLimiter(2 * time.Second), // Be respectful with rate limiting
	}
}

// GetName returns the name of this provider.
func (d *DuckDuckGoProvider) GetName() string {
	return "DuckDuckGo"
}

// Search performs a search using DuckDuckGo and returns normalized hits.
func (d *DuckDuckGoProvider) Search(ctx context.Context, query string, config Config) ([]core.SearchHit, error) {
	if err := d.limiter.wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("kl", "us-en")
	searchURL := d.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	bodyStr := string(body)
	if strings.Contains(strings.ToLower(bodyStr), "captcha") {
		return nil, fmt.Errorf("DuckDuckGo search blocked by CAPTCHA")
	}

	hits := d.parseSearchResults(bodyStr, config.MaxResults)

	logger.Info("DuckDuckGo search completed", "query", query, "results_found", len(hits))

	return hits, nil
}

var (
	ddgResultPattern  = regexp.MustCompile(`<div class="result[^"]*"[^>]*>(.*?)</div>`)
	ddgTitlePattern   = regexp.MustCompile(`<a[^>]*class="result__a"[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`<a[^>]*class="result__snippet"[^>]*>(.*?)</a>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// parseSearchResults extracts search results from the DuckDuckGo HTML response.
func (d *DuckDuckGoProvider) parseSearchResults(html string, maxResults int) []core.SearchHit {
	var hits []core.SearchHit

	for _, match := range ddgResultPattern.FindAllStringSubmatch(html, -1) {
		if maxResults > 0 && len(hits) >= maxResults {
			break
		}
		resultHTML := match[1]

		titleMatch := ddgTitlePattern.FindStringSubmatch(resultHTML)
		if len(titleMatch) < 3 {
			continue
		}
		finalURL := d.extractFinalURL(titleMatch[1])
		if finalURL == "" {
			continue
		}

		snippet := ""
		if snippetMatch := ddgSnippetPattern.FindStringSubmatch(resultHTML); len(snippetMatch) >= 2 {
			snippet = cleanHTMLText(snippetMatch[1])
		}

		hits = append(hits, core.SearchHit{
			ID:      HitID(finalURL),
			URL:     finalURL,
			Title:   cleanHTMLText(titleMatch[2]),
			Snippet: snippet,
			Domain:  Domain(finalURL),
		})
	}

	return hits
}

// extractFinalURL extracts the actual URL from DuckDuckGo's redirect URL.
func (d *DuckDuckGoProvider) extractFinalURL(redirectURL string) string {
	// DuckDuckGo wraps targets as /l/?uddg=https%3A//example.com/...&rut=...
	if strings.HasPrefix(redirectURL, "/l/?") || strings.HasPrefix(redirectURL, "//duckduckgo.com/l/?") {
		parsed, err := url.Parse(redirectURL)
		if err != nil {
			return ""
		}
		if uddg := parsed.Query().Get("uddg"); uddg != "" {
			decoded, err := url.QueryUnescape(uddg)
			if err != nil {
				return ""
			}
			return decoded
		}
	}
	if strings.HasPrefix(redirectURL, "http") {
		return redirectURL
	}
	return ""
}

// cleanHTMLText removes HTML tags and decodes common HTML entities.
func cleanHTMLText(text string) string {
	text = htmlTagPattern.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	text = replacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
