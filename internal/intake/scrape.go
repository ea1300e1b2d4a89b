package intake

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrInvalidURL is returned when the posting URL is malformed
	ErrInvalidURL = fmt.Errorf("invalid URL")
	// ErrHTTPRequestFailed is returned when the posting fetch fails
	ErrHTTPRequestFailed = fmt.Errorf("HTTP request failed")
)

const fetchTimeout = 30 * time.Second

// Posting is what a scrape recovers from a job posting page.
type Posting struct {
	Company string
	Title   string
	Text    string
	URL     string
}

// noiseSelectors are removed before extracting the posting body text.
var noiseSelectors = []string{"script", "style", "nav", "header", "footer", "noscript", "iframe"}

// ScrapePosting fetches a posting URL and extracts company, title, and body
// text. Company falls back to the site name meta tag, then to the host.
func ScrapePosting(ctx context.Context, client *http.Client, rawURL string) (*Posting, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; job-pipeline/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHTTPRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrHTTPRequestFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing posting HTML: %w", err)
	}

	posting := &Posting{URL: rawURL}

	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		posting.Title = strings.TrimSpace(v)
	} else if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		posting.Title = h1
	} else {
		posting.Title = strings.TrimSpace(doc.Find("title").Text())
	}

	if v, ok := doc.Find(`meta[property="og:site_name"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		posting.Company = strings.TrimSpace(v)
	} else {
		posting.Company = strings.TrimPrefix(parsed.Host, "www.")
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}
	posting.Text = normalizeWhitespace(doc.Find("body").Text())
	return posting, nil
}

// normalizeWhitespace collapses runs of blank lines and trims each line.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
