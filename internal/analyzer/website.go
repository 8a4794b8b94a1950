package analyzer

import (
	"context"
	"fmt"
	"log"
	"time"

	"blogforge/internal/models"
)

// SiteScraper is the slice of the scraper the orchestrator needs.
type SiteScraper interface {
	ScrapeSite(ctx context.Context, siteURL string, maxPages int) ([]models.ScrapedPage, error)
}

// WebsiteAnalysis is one analysis snapshot, ready to persist on the website.
type WebsiteAnalysis struct {
	AnalyzedContent *models.AnalyzedContent
	ScrapedAt       time.Time
	URL             string
}

// WebsiteAnalyzer composes the scraper and the content analyzer into a single
// "analyze a URL" operation.
type WebsiteAnalyzer struct {
	scraper  SiteScraper
	analyzer *ContentAnalyzer
	maxPages int
}

func NewWebsiteAnalyzer(scraper SiteScraper, analyzer *ContentAnalyzer, maxPages int) *WebsiteAnalyzer {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &WebsiteAnalyzer{scraper: scraper, analyzer: analyzer, maxPages: maxPages}
}

// AnalyzeWebsite scrapes up to maxPages pages and analyzes them. Scrape
// failures (unreachable homepage) propagate; the content analyzer degrades
// internally and never fails.
func (w *WebsiteAnalyzer) AnalyzeWebsite(ctx context.Context, siteURL string) (*WebsiteAnalysis, error) {
	log.Printf("[analyzer] starting website analysis for %s", siteURL)

	pages, err := w.scraper.ScrapeSite(ctx, siteURL, w.maxPages)
	if err != nil {
		return nil, fmt.Errorf("analyzing website %s: %w", siteURL, err)
	}
	log.Printf("[analyzer] scraped %d pages from %s", len(pages), siteURL)

	analyzed := w.analyzer.Analyze(ctx, pages, siteURL)
	log.Printf("[analyzer] analysis complete: %d FAQs, %d key topics", len(analyzed.FAQs), len(analyzed.KeyTopics))
	if analyzed.CTA != nil {
		log.Printf("[analyzer] CTA: %q → %s", analyzed.CTA.Text, analyzed.CTA.URL)
	}

	return &WebsiteAnalysis{
		AnalyzedContent: analyzed,
		ScrapedAt:       time.Now(),
		URL:             siteURL,
	}, nil
}
