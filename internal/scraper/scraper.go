// Package scraper fetches pages and extracts structured content: headings,
// paragraphs, links, CTA candidates, FAQ pairs and metadata.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/html/charset"

	"blogforge/internal/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// commonPaths are probed after the homepage during a site scrape. Order matters:
// pages are returned in the order they were fetched.
var commonPaths = []string{"/about", "/blog", "/contact", "/faq", "/help", "/support"}

// ctaKeywords mark a link or button as a call-to-action candidate when its
// lower-cased text contains any of them.
var ctaKeywords = []string{
	"sign up", "signup", "get started", "start free", "try free",
	"learn more", "read more", "download", "subscribe", "join", "register",
	"buy now", "shop now", "contact us", "get in touch", "book now", "order now",
}

var onclickURLPattern = regexp.MustCompile(`['"](https?://[^'"]+)['"]`)

// HTTPError reports a non-success response status. Callers inspect StatusCode
// to treat 404s on sub-pages as expected rather than fatal.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("failed to fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

type Scraper struct {
	client *http.Client

	mu     sync.Mutex
	robots map[string]*robotstxt.Group // per-origin, nil entry means no rules
}

func New(timeout time.Duration) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
		robots: make(map[string]*robotstxt.Group),
	}
}

// ScrapePage fetches a single page and extracts its structured content.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) (*models.ScrapedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	// Decode to UTF-8 before parsing; pages are not always served as UTF-8.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", pageURL, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}

	return extract(doc, pageURL, body), nil
}

func extract(doc *goquery.Document, pageURL string, rawHTML []byte) *models.ScrapedPage {
	origin := originOf(pageURL)

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}

	description, _ := doc.Find(`meta[name="description"]`).Attr("content")
	if description == "" {
		description, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	}

	var headings []string
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			headings = append(headings, text)
		}
	})

	var paragraphs []string
	doc.Find("p, article, .content, .post-content, main p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 50 {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		paragraphs = readableFallback(pageURL, rawHTML)
	}

	var links []models.Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		if text != "" && href != "" {
			links = append(links, models.Link{Text: text, Href: href})
		}
	})

	ctas := extractCTAs(doc, origin)
	faqs := extractFAQs(doc)

	metadata := models.PageMetadata{}
	metadata.Keywords, _ = doc.Find(`meta[name="keywords"]`).Attr("content")
	metadata.Author, _ = doc.Find(`meta[name="author"]`).Attr("content")
	if metadata.Author == "" {
		metadata.Author = strings.TrimSpace(doc.Find(`[rel="author"]`).First().Text())
	}
	metadata.PublishedDate, _ = doc.Find(`meta[property="article:published_time"]`).Attr("content")
	if metadata.PublishedDate == "" {
		metadata.PublishedDate, _ = doc.Find("time[datetime]").First().Attr("datetime")
	}

	parts := make([]string, 0, 2+len(headings)+len(paragraphs))
	parts = append(parts, title, description)
	parts = append(parts, headings...)
	parts = append(parts, paragraphs...)

	return &models.ScrapedPage{
		Title:         title,
		Description:   description,
		Headings:      headings,
		Paragraphs:    paragraphs,
		Links:         links,
		CTACandidates: ctas,
		FAQSections:   faqs,
		Metadata:      metadata,
		FullText:      strings.Join(parts, "\n\n"),
	}
}

// readableFallback distills the main article content when direct paragraph
// extraction comes up empty (heavily nested or non-semantic markup).
func readableFallback(pageURL string, rawHTML []byte) []string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(string(rawHTML)), parsed)
	if err != nil {
		return nil
	}
	var paragraphs []string
	for _, line := range strings.Split(article.TextContent, "\n") {
		if text := strings.TrimSpace(line); len(text) > 50 {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

func matchesCTAKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range ctaKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func extractCTAs(doc *goquery.Document, origin string) []models.Link {
	var ctas []models.Link

	// Anchor pass: links carry their own destination. mailto:/tel: pass
	// through unresolved.
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		if text == "" || href == "" || !matchesCTAKeyword(text) {
			return
		}
		resolved := href
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") &&
			!strings.HasPrefix(href, "mailto:") && !strings.HasPrefix(href, "tel:") {
			resolved = resolveAgainst(origin, href)
		}
		ctas = append(ctas, models.Link{Text: text, Href: resolved})
	})

	// Button pass: destination is discovered from the ancestry or attributes,
	// falling back to the site origin.
	doc.Find(`button, .btn, .button, [class*="button"], [class*="cta"], [id*="cta"]`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" || !matchesCTAKeyword(text) {
			return
		}
		href, _ := sel.Closest("a").Attr("href")
		if href == "" {
			href, _ = sel.Attr("data-href")
		}
		if href == "" {
			if onclick, ok := sel.Attr("onclick"); ok {
				if m := onclickURLPattern.FindStringSubmatch(onclick); m != nil {
					href = m[1]
				}
			}
		}
		if href == "" {
			href = origin
		} else if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			href = resolveAgainst(origin, href)
		}
		ctas = append(ctas, models.Link{Text: text, Href: href})
	})

	return ctas
}

func extractFAQs(doc *goquery.Document) []models.FAQ {
	var faqs []models.FAQ

	// Definition-list pattern.
	doc.Find(`dl.faq, .faq dl, [class*="faq"] dl`).Each(func(_ int, dl *goquery.Selection) {
		questions := dl.Find("dt")
		answers := dl.Find("dd")
		questions.Each(func(i int, dt *goquery.Selection) {
			question := strings.TrimSpace(dt.Text())
			answer := strings.TrimSpace(answers.Eq(i).Text())
			if question != "" && answer != "" {
				faqs = append(faqs, models.FAQ{Question: question, Answer: answer})
			}
		})
	})

	// Heading-followed-by-text pattern inside FAQ-marked containers.
	doc.Find(`[class*="faq"], [id*="faq"], section.faq`).Each(func(_ int, section *goquery.Selection) {
		section.Find("h3, h4").Each(func(_ int, heading *goquery.Selection) {
			question := strings.TrimSpace(heading.Text())
			answer := strings.TrimSpace(heading.NextUntil("h3, h4").Text())
			if question != "" && answer != "" {
				faqs = append(faqs, models.FAQ{Question: question, Answer: answer})
			}
		})
	})

	return faqs
}

// ScrapeSite scrapes the homepage plus up to maxPages-1 common sub-paths.
// A homepage failure aborts the scrape; sub-path failures are skipped, 404s
// silently since most sites lack some of the probed paths.
func (s *Scraper) ScrapeSite(ctx context.Context, siteURL string, maxPages int) ([]models.ScrapedPage, error) {
	homepage, err := s.ScrapePage(ctx, siteURL)
	if err != nil {
		return nil, fmt.Errorf("scraping homepage %s: %w", siteURL, err)
	}

	origin := originOf(siteURL)
	results := []models.ScrapedPage{*homepage}
	visited := map[string]bool{siteURL: true}

	paths := commonPaths
	if maxPages-1 < len(paths) {
		paths = paths[:maxPages-1]
	}
	for _, path := range paths {
		pageURL := origin + path
		if visited[pageURL] {
			continue
		}
		visited[pageURL] = true

		if !s.allowed(ctx, origin, path) {
			log.Printf("[scraper] skipping %s: disallowed by robots.txt", pageURL)
			continue
		}

		page, err := s.ScrapePage(ctx, pageURL)
		if err != nil {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
				continue // expected for pages that don't exist
			}
			log.Printf("[scraper] failed to scrape %s: %v", pageURL, err)
			continue
		}
		results = append(results, *page)
		log.Printf("[scraper] scraped %s", pageURL)
	}

	return results, nil
}

// allowed checks robots.txt for the origin, caching the parsed rule group.
// Any failure to fetch or parse robots.txt means "allowed".
func (s *Scraper) allowed(ctx context.Context, origin, path string) bool {
	s.mu.Lock()
	group, ok := s.robots[origin]
	s.mu.Unlock()

	if !ok {
		group = s.fetchRobots(ctx, origin)
		s.mu.Lock()
		s.robots[origin] = group
		s.mu.Unlock()
	}
	if group == nil {
		return true
	}
	return group.Test(path)
}

func (s *Scraper) fetchRobots(ctx context.Context, origin string) *robotstxt.Group {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots.FindGroup(userAgent)
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return rawURL
	}
	return parsed.Scheme + "://" + parsed.Host
}

func resolveAgainst(origin, href string) string {
	if strings.HasPrefix(href, "/") {
		return origin + href
	}
	return origin + "/" + href
}
