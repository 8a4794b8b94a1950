// Package server exposes the JSON API and owns the fire-and-forget pipeline
// goroutines triggered by it.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"blogforge/internal/analyzer"
	"blogforge/internal/db"
	"blogforge/internal/generator"
	"blogforge/internal/github"
)

// scrapeRun tracks an in-flight background analysis for a website. Overlapping
// triggers are allowed and race last-write-wins on the stored analysis; this
// entry only makes the in-flight state observable.
type scrapeRun struct {
	StartedAt time.Time
}

type Server struct {
	queries      *db.Queries
	analyzer     *analyzer.WebsiteAnalyzer
	ideas        *generator.IdeaGenerator
	drafts       *generator.DraftGenerator
	githubAPIURL string
	userID       string

	httpSrv    *http.Server
	ln         net.Listener
	addr       string
	scrapeRuns sync.Map // website ID (string) → scrapeRun
}

func New(queries *db.Queries, websiteAnalyzer *analyzer.WebsiteAnalyzer, ideaGen *generator.IdeaGenerator, draftGen *generator.DraftGenerator, githubAPIURL, userID string) *Server {
	s := &Server{
		queries:      queries,
		analyzer:     websiteAnalyzer,
		ideas:        ideaGen,
		drafts:       draftGen,
		githubAPIURL: githubAPIURL,
		userID:       userID,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/websites", s.handleListWebsites)
	mux.HandleFunc("POST /api/websites", s.handleCreateWebsite)
	mux.HandleFunc("GET /api/websites/{id}", s.handleGetWebsite)
	mux.HandleFunc("PATCH /api/websites/{id}", s.handleUpdateWebsite)
	mux.HandleFunc("DELETE /api/websites/{id}", s.handleDeleteWebsite)
	mux.HandleFunc("POST /api/websites/{id}/scrape", s.handleScrape)
	mux.HandleFunc("GET /api/websites/{id}/scraping-status", s.handleScrapingStatus)

	mux.HandleFunc("GET /api/websites/{websiteId}/ideas", s.handleListIdeas)
	mux.HandleFunc("POST /api/websites/{websiteId}/generate-ideas", s.handleGenerateIdeas)
	mux.HandleFunc("PATCH /api/ideas/{id}", s.handleUpdateIdea)
	mux.HandleFunc("DELETE /api/ideas/{id}", s.handleDeleteIdea)

	mux.HandleFunc("GET /api/websites/{websiteId}/drafts", s.handleListDrafts)
	mux.HandleFunc("POST /api/ideas/{ideaId}/generate-draft", s.handleGenerateDraft)
	mux.HandleFunc("PATCH /api/drafts/{id}", s.handleUpdateDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDeleteDraft)
	mux.HandleFunc("POST /api/drafts/{id}/push-to-github", s.handlePushToGithub)

	mux.HandleFunc("GET /api/websites/{websiteId}/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	s.httpSrv = &http.Server{Handler: mux}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Listen binds the server to addr. Call Serve to start handling requests.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.ln = ln
	s.addr = ln.Addr().String()
	return nil
}

// Serve starts handling HTTP requests. Blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.httpSrv.Shutdown(context.Background())
	}()

	log.Printf("blogforge listening on http://%s", s.addr)

	if err := s.httpSrv.Serve(s.ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	log.Println("shutting down")
	return nil
}

func (s *Server) Addr() string {
	return s.addr
}

// runAnalysis is the detached scrape-then-analyze pipeline. The triggering
// request has already returned; results land in storage and are observed via
// the scraping-status endpoint.
func (s *Server) runAnalysis(websiteID, siteURL string) {
	s.scrapeRuns.Store(websiteID, scrapeRun{StartedAt: time.Now()})
	defer s.scrapeRuns.Delete(websiteID)

	analysis, err := s.analyzer.AnalyzeWebsite(context.Background(), siteURL)
	if err != nil {
		log.Printf("[server] analysis failed for website %s: %v", websiteID, err)
		return
	}

	if err := s.queries.SaveAnalysis(websiteID, analysis.AnalyzedContent, analysis.ScrapedAt); err != nil {
		log.Printf("[server] saving analysis for website %s: %v", websiteID, err)
		return
	}
	log.Printf("[server] analysis saved for website %s: %d FAQs, %d key topics, %d primary keywords",
		websiteID, len(analysis.AnalyzedContent.FAQs), len(analysis.AnalyzedContent.KeyTopics),
		len(analysis.AnalyzedContent.SEOInsights.PrimaryKeywords))
}

func (s *Server) scrapeInProgress(websiteID string) bool {
	_, ok := s.scrapeRuns.Load(websiteID)
	return ok
}

func (s *Server) newGithubClient(token string) *github.Client {
	return github.NewClient(token, s.githubAPIURL)
}
