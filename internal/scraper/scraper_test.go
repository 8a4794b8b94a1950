package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const homepageHTML = `<!DOCTYPE html>
<html>
<head>
<title>Acme Widgets</title>
<meta name="description" content="Widgets for professionals">
<meta name="keywords" content="widgets, tools">
<meta name="author" content="Jordan Lee">
</head>
<body>
<h1>Welcome to Acme</h1>
<h2>Why widgets matter</h2>
<p>Short.</p>
<p>This paragraph is comfortably longer than fifty characters so it must be extracted.</p>
<nav><a href="/pricing">Pricing</a></nav>
<a href="/start">Get Started</a>
<a href="https://partner.example.com/join">Sign Up</a>
<a href="mailto:sales@acme.example">Contact Us</a>
<button class="btn">Subscribe</button>
<div class="faq-section">
  <h3>What is a widget?</h3>
  <p>A small tool.</p>
  <h3>How much does it cost?</h3>
  <p>Ten dollars.</p>
</div>
<dl class="faq">
  <dt>Do you ship worldwide?</dt>
  <dd>Yes, everywhere.</dd>
</dl>
</body>
</html>`

const aboutHTML = `<!DOCTYPE html>
<html><head><title>About Acme</title></head>
<body><p>Acme has been building widgets for professionals since the very beginning of widgets.</p></body></html>`

func newSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(homepageHTML))
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(aboutHTML))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /contact\n"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapePageExtraction(t *testing.T) {
	srv := newSiteServer(t)
	s := New(5 * time.Second)

	page, err := s.ScrapePage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapePage: %v", err)
	}

	if page.Title != "Acme Widgets" {
		t.Errorf("title = %q, want %q", page.Title, "Acme Widgets")
	}
	if page.Description != "Widgets for professionals" {
		t.Errorf("description = %q", page.Description)
	}
	if len(page.Headings) < 2 || page.Headings[0] != "Welcome to Acme" {
		t.Errorf("headings = %v", page.Headings)
	}

	for _, p := range page.Paragraphs {
		if p == "Short." {
			t.Error("short paragraph should have been filtered out")
		}
	}
	found := false
	for _, p := range page.Paragraphs {
		if strings.Contains(p, "comfortably longer than fifty characters") {
			found = true
		}
	}
	if !found {
		t.Errorf("long paragraph missing from %v", page.Paragraphs)
	}

	if page.Metadata.Keywords != "widgets, tools" {
		t.Errorf("metadata keywords = %q", page.Metadata.Keywords)
	}
	if page.Metadata.Author != "Jordan Lee" {
		t.Errorf("metadata author = %q", page.Metadata.Author)
	}

	if !strings.Contains(page.FullText, "Acme Widgets") || !strings.Contains(page.FullText, "Why widgets matter") {
		t.Error("fullText should include title and headings")
	}
}

func TestScrapePageCTACandidates(t *testing.T) {
	srv := newSiteServer(t)
	s := New(5 * time.Second)

	page, err := s.ScrapePage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapePage: %v", err)
	}

	byText := map[string]string{}
	for _, cta := range page.CTACandidates {
		byText[cta.Text] = cta.Href
	}

	if got, want := byText["Get Started"], srv.URL+"/start"; got != want {
		t.Errorf("Get Started href = %q, want %q", got, want)
	}
	if got, want := byText["Sign Up"], "https://partner.example.com/join"; got != want {
		t.Errorf("Sign Up href = %q, want %q", got, want)
	}
	if got, want := byText["Contact Us"], "mailto:sales@acme.example"; got != want {
		t.Errorf("Contact Us href = %q, want %q", got, want)
	}
	// Button with no destination falls back to the site origin.
	if got, want := byText["Subscribe"], srv.URL; got != want {
		t.Errorf("Subscribe href = %q, want %q", got, want)
	}
	if _, ok := byText["Pricing"]; ok {
		t.Error("nav link without CTA keyword should not be a candidate")
	}
}

func TestScrapePageFAQs(t *testing.T) {
	srv := newSiteServer(t)
	s := New(5 * time.Second)

	page, err := s.ScrapePage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ScrapePage: %v", err)
	}

	want := map[string]string{
		"What is a widget?":      "A small tool.",
		"How much does it cost?": "Ten dollars.",
		"Do you ship worldwide?": "Yes, everywhere.",
	}
	got := map[string]string{}
	for _, faq := range page.FAQSections {
		got[faq.Question] = faq.Answer
	}
	for q, a := range want {
		if got[q] != a {
			t.Errorf("FAQ %q = %q, want %q", q, got[q], a)
		}
	}
}

func TestScrapeSiteSkipsMissingAndDisallowedPaths(t *testing.T) {
	srv := newSiteServer(t)
	s := New(5 * time.Second)

	// Only / and /about exist; /contact is disallowed by robots.txt and the
	// rest of the probed paths 404.
	pages, err := s.ScrapeSite(context.Background(), srv.URL, 7)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2 (homepage + /about)", len(pages))
	}
	if pages[1].Title != "About Acme" {
		t.Errorf("second page title = %q", pages[1].Title)
	}
}

func TestScrapeSiteHomepageFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(5 * time.Second)
	if _, err := s.ScrapeSite(context.Background(), srv.URL, 5); err == nil {
		t.Fatal("expected error when homepage fetch fails")
	}
}

func TestScrapeSiteRespectsMaxPages(t *testing.T) {
	var requested []string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		w.Write([]byte(aboutHTML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(5 * time.Second)
	pages, err := s.ScrapeSite(context.Background(), srv.URL, 3)
	if err != nil {
		t.Fatalf("ScrapeSite: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for _, path := range requested {
		if path == "/contact" || path == "/faq" || path == "/help" || path == "/support" {
			t.Errorf("path %s fetched beyond maxPages", path)
		}
	}
}
