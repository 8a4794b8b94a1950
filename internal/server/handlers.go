package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"blogforge/internal/db"
	"blogforge/internal/generator"
	"blogforge/internal/models"
)

const tempUsername = "temp"

// EnsureTempUser creates or refreshes the fixed pseudo-user every request is
// attributed to. Its github token follows the environment.
func EnsureTempUser(queries *db.Queries, githubToken string) (*models.User, error) {
	user, err := queries.GetUserByUsername(tempUsername)
	if err != nil {
		return nil, err
	}
	if user == nil {
		var token *string
		if githubToken != "" {
			token = &githubToken
		}
		return queries.CreateUser(tempUsername, tempUsername, token)
	}
	if githubToken != "" && (user.GithubToken == nil || *user.GithubToken != githubToken) {
		if err := queries.UpdateUserGithubToken(user.ID, githubToken); err != nil {
			return nil, err
		}
		user.GithubToken = &githubToken
	}
	return user, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

func respondErrorDetails(w http.ResponseWriter, status int, msg, details string) {
	respondJSON(w, status, map[string]string{"error": msg, "details": details})
}

// Websites

func (s *Server) handleListWebsites(w http.ResponseWriter, r *http.Request) {
	websites, err := s.queries.ListWebsites(s.userID)
	if err != nil {
		log.Printf("listing websites: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch websites")
		return
	}
	if websites == nil {
		websites = []models.Website{}
	}
	respondJSON(w, http.StatusOK, websites)
}

func (s *Server) handleGetWebsite(w http.ResponseWriter, r *http.Request) {
	website, err := s.queries.GetWebsite(r.PathValue("id"))
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch website")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}
	respondJSON(w, http.StatusOK, website)
}

type createWebsiteRequest struct {
	Name         string   `json:"name"`
	URL          string   `json:"url"`
	Keywords     []string `json:"keywords"`
	Tone         *string  `json:"tone"`
	Audience     *string  `json:"audience"`
	Status       string   `json:"status"`
	GithubRepo   *string  `json:"githubRepo"`
	GithubBranch string   `json:"githubBranch"`
	GithubPath   string   `json:"githubPath"`
}

// emptyToNil treats an empty string the way the form sends it: as unset.
func emptyToNil(s *string) *string {
	if s != nil && *s == "" {
		return nil
	}
	return s
}

func (s *Server) handleCreateWebsite(w http.ResponseWriter, r *http.Request) {
	var req createWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	parsed, err := url.Parse(req.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		respondError(w, http.StatusBadRequest, "url must be a valid absolute URL")
		return
	}
	if req.Keywords == nil {
		req.Keywords = []string{}
	}
	if req.Status == "" {
		req.Status = models.WebsiteActive
	}
	if req.GithubBranch == "" {
		req.GithubBranch = "main"
	}
	if req.GithubPath == "" {
		req.GithubPath = "blog"
	}

	website, err := s.queries.CreateWebsite(&models.Website{
		UserID:       s.userID,
		Name:         req.Name,
		URL:          req.URL,
		Keywords:     req.Keywords,
		Tone:         emptyToNil(req.Tone),
		Audience:     emptyToNil(req.Audience),
		Status:       req.Status,
		GithubRepo:   emptyToNil(req.GithubRepo),
		GithubBranch: req.GithubBranch,
		GithubPath:   req.GithubPath,
	})
	if err != nil {
		log.Printf("creating website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create website")
		return
	}

	// New websites are analyzed right away so ideas can be generated without
	// a manual scrape step.
	log.Printf("[server] starting auto-analysis for new website %s (%s)", website.ID, website.URL)
	go s.runAnalysis(website.ID, website.URL)

	respondJSON(w, http.StatusOK, website)
}

func (s *Server) handleUpdateWebsite(w http.ResponseWriter, r *http.Request) {
	website, err := s.queries.GetWebsite(r.PathValue("id"))
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update website")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := applyWebsitePatch(website, patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.queries.UpdateWebsite(website)
	if err != nil {
		log.Printf("updating website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update website")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func applyWebsitePatch(website *models.Website, patch map[string]json.RawMessage) error {
	for key, raw := range patch {
		var err error
		switch key {
		case "name":
			err = json.Unmarshal(raw, &website.Name)
		case "url":
			err = json.Unmarshal(raw, &website.URL)
		case "keywords":
			err = json.Unmarshal(raw, &website.Keywords)
			if website.Keywords == nil {
				website.Keywords = []string{}
			}
		case "tone":
			website.Tone = nil
			err = json.Unmarshal(raw, &website.Tone)
		case "audience":
			website.Audience = nil
			err = json.Unmarshal(raw, &website.Audience)
		case "status":
			err = json.Unmarshal(raw, &website.Status)
		case "githubRepo":
			website.GithubRepo = nil
			err = json.Unmarshal(raw, &website.GithubRepo)
		case "githubBranch":
			err = json.Unmarshal(raw, &website.GithubBranch)
		case "githubPath":
			err = json.Unmarshal(raw, &website.GithubPath)
		case "ctaText":
			website.CTAText = nil
			err = json.Unmarshal(raw, &website.CTAText)
		case "ctaUrl":
			website.CTAURL = nil
			err = json.Unmarshal(raw, &website.CTAURL)
		case "minWords":
			err = json.Unmarshal(raw, &website.MinWords)
		case "maxWords":
			err = json.Unmarshal(raw, &website.MaxWords)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s", key)
		}
	}
	return nil
}

func (s *Server) handleDeleteWebsite(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteWebsite(r.PathValue("id")); err != nil {
		log.Printf("deleting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete website")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Scraping

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	website, err := s.queries.GetWebsite(r.PathValue("id"))
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to trigger scraping")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	log.Printf("[server] manual scrape triggered for %s (%s)", website.Name, website.URL)
	go s.runAnalysis(website.ID, website.URL)

	respondJSON(w, http.StatusOK, map[string]string{
		"message":   "Scraping started in background. Check server logs for progress.",
		"websiteId": website.ID,
		"url":       website.URL,
		"name":      website.Name,
	})
}

type scrapingStats struct {
	FAQsCount              int `json:"faqsCount"`
	KeyTopicsCount         int `json:"keyTopicsCount"`
	CommonQuestionsCount   int `json:"commonQuestionsCount"`
	PrimaryKeywordsCount   int `json:"primaryKeywordsCount"`
	ContentGapsCount       int `json:"contentGapsCount"`
	RecommendedTopicsCount int `json:"recommendedTopicsCount"`
}

type scrapingStatusResponse struct {
	WebsiteID   string         `json:"websiteId"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	IsScraped   bool           `json:"isScraped"`
	InProgress  bool           `json:"inProgress"`
	LastScraped *time.Time     `json:"lastScraped"`
	Stats       *scrapingStats `json:"stats"`
	Summary     *string        `json:"summary"`
}

func (s *Server) handleScrapingStatus(w http.ResponseWriter, r *http.Request) {
	website, err := s.queries.GetWebsite(r.PathValue("id"))
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to check scraping status")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	resp := scrapingStatusResponse{
		WebsiteID:   website.ID,
		Name:        website.Name,
		URL:         website.URL,
		IsScraped:   website.ScrapedData != nil,
		InProgress:  s.scrapeInProgress(website.ID),
		LastScraped: website.LastScraped,
	}
	if sd := website.ScrapedData; sd != nil {
		resp.Stats = &scrapingStats{
			FAQsCount:              len(sd.FAQs),
			KeyTopicsCount:         len(sd.KeyTopics),
			CommonQuestionsCount:   len(sd.CommonQuestions),
			PrimaryKeywordsCount:   len(sd.SEOInsights.PrimaryKeywords),
			ContentGapsCount:       len(sd.SEOInsights.ContentGaps),
			RecommendedTopicsCount: len(sd.SEOInsights.RecommendedTopics),
		}
		if sd.Summary != "" {
			resp.Summary = &sd.Summary
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Article ideas

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.queries.ListArticleIdeas(r.PathValue("websiteId"), r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("listing ideas: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch ideas")
		return
	}
	if ideas == nil {
		ideas = []models.ArticleIdea{}
	}
	respondJSON(w, http.StatusOK, ideas)
}

func (s *Server) handleGenerateIdeas(w http.ResponseWriter, r *http.Request) {
	website, err := s.queries.GetWebsite(r.PathValue("websiteId"))
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate ideas")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Count <= 0 {
		req.Count = 5
	}

	generated, err := s.ideas.Generate(r.Context(), website, req.Count)
	if err != nil {
		log.Printf("generating ideas for website %s: %v", website.ID, err)
		s.recordFailure(website.ID, "Ideas Generation", nil, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate ideas")
		return
	}

	ideas := make([]models.ArticleIdea, 0, len(generated))
	for _, g := range generated {
		idea, err := s.queries.CreateArticleIdea(&models.ArticleIdea{
			WebsiteID:      website.ID,
			Headline:       g.Headline,
			Confidence:     g.Confidence,
			Keywords:       g.Keywords,
			EstimatedWords: g.EstimatedWords,
			SEOScore:       g.SEOScore,
		})
		if err != nil {
			log.Printf("persisting idea: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to generate ideas")
			return
		}
		ideas = append(ideas, *idea)
	}

	title := fmt.Sprintf("%d new ideas", len(ideas))
	s.recordSuccess(website.ID, "Ideas Generated", &title, nil)
	if err := s.queries.TouchLastGenerated(website.ID, time.Now()); err != nil {
		log.Printf("updating lastGenerated: %v", err)
	}

	respondJSON(w, http.StatusOK, ideas)
}

func (s *Server) handleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := s.queries.GetArticleIdea(r.PathValue("id"))
	if err != nil {
		log.Printf("getting idea: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update idea")
		return
	}
	if idea == nil {
		respondError(w, http.StatusNotFound, "Idea not found")
		return
	}

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := applyIdeaPatch(idea, patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.queries.UpdateArticleIdea(idea)
	if err != nil {
		log.Printf("updating idea: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update idea")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func applyIdeaPatch(idea *models.ArticleIdea, patch map[string]json.RawMessage) error {
	for key, raw := range patch {
		var err error
		switch key {
		case "headline":
			err = json.Unmarshal(raw, &idea.Headline)
		case "confidence":
			err = json.Unmarshal(raw, &idea.Confidence)
		case "keywords":
			err = json.Unmarshal(raw, &idea.Keywords)
			if idea.Keywords == nil {
				idea.Keywords = []string{}
			}
		case "estimatedWords":
			err = json.Unmarshal(raw, &idea.EstimatedWords)
		case "seoScore":
			err = json.Unmarshal(raw, &idea.SEOScore)
		case "status":
			err = json.Unmarshal(raw, &idea.Status)
		case "priority":
			idea.Priority = nil
			err = json.Unmarshal(raw, &idea.Priority)
		case "scheduledDate":
			idea.ScheduledDate = nil
			err = json.Unmarshal(raw, &idea.ScheduledDate)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s", key)
		}
	}
	return nil
}

func (s *Server) handleDeleteIdea(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteArticleIdea(r.PathValue("id")); err != nil {
		log.Printf("deleting idea: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete idea")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Drafts

func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.queries.ListDrafts(r.PathValue("websiteId"), r.URL.Query().Get("status"))
	if err != nil {
		log.Printf("listing drafts: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch drafts")
		return
	}
	if drafts == nil {
		drafts = []models.Draft{}
	}
	respondJSON(w, http.StatusOK, drafts)
}

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	idea, err := s.queries.GetArticleIdea(r.PathValue("ideaId"))
	if err != nil {
		log.Printf("getting idea: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate draft")
		return
	}
	if idea == nil {
		respondError(w, http.StatusNotFound, "Idea not found")
		return
	}

	website, err := s.queries.GetWebsite(idea.WebsiteID)
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate draft")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	generated, err := s.drafts.Generate(r.Context(), idea.Headline, website, idea.Keywords, idea.EstimatedWords)
	if err != nil {
		log.Printf("generating draft for idea %s: %v", idea.ID, err)
		s.recordFailure(website.ID, "Draft Generation", nil, err)
		respondError(w, http.StatusInternalServerError, "Failed to generate draft")
		return
	}

	var imageURL *string
	if generated.ImageURL != "" {
		imageURL = &generated.ImageURL
	}
	draft, err := s.queries.CreateDraft(&models.Draft{
		ArticleIdeaID:    idea.ID,
		WebsiteID:        website.ID,
		Title:            generated.Title,
		Content:          generated.Content,
		Excerpt:          generated.Excerpt,
		WordCount:        generated.WordCount,
		ReadabilityScore: generated.ReadabilityScore,
		KeywordDensity:   generated.KeywordDensity,
		Frontmatter:      generated.Frontmatter,
		ImageURL:         imageURL,
	})
	if err != nil {
		log.Printf("persisting draft: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to generate draft")
		return
	}

	s.recordSuccess(website.ID, "Draft Created", &draft.Title, nil)
	respondJSON(w, http.StatusOK, draft)
}

func (s *Server) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.queries.GetDraft(r.PathValue("id"))
	if err != nil {
		log.Printf("getting draft: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update draft")
		return
	}
	if draft == nil {
		respondError(w, http.StatusNotFound, "Draft not found")
		return
	}

	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := applyDraftPatch(draft, patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := s.queries.UpdateDraft(draft)
	if err != nil {
		log.Printf("updating draft: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to update draft")
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func applyDraftPatch(draft *models.Draft, patch map[string]json.RawMessage) error {
	for key, raw := range patch {
		var err error
		switch key {
		case "title":
			err = json.Unmarshal(raw, &draft.Title)
		case "content":
			err = json.Unmarshal(raw, &draft.Content)
		case "excerpt":
			err = json.Unmarshal(raw, &draft.Excerpt)
		case "wordCount":
			err = json.Unmarshal(raw, &draft.WordCount)
		case "readabilityScore":
			err = json.Unmarshal(raw, &draft.ReadabilityScore)
		case "keywordDensity":
			var v any
			if err = json.Unmarshal(raw, &v); err == nil {
				draft.KeywordDensity = generator.SanitizeKeywordDensity(v)
			}
		case "status":
			err = json.Unmarshal(raw, &draft.Status)
		case "prUrl":
			draft.PRURL = nil
			err = json.Unmarshal(raw, &draft.PRURL)
		case "frontmatter":
			err = json.Unmarshal(raw, &draft.Frontmatter)
		case "imageUrl":
			draft.ImageURL = nil
			err = json.Unmarshal(raw, &draft.ImageURL)
		}
		if err != nil {
			return fmt.Errorf("invalid value for %s", key)
		}
	}
	return nil
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.queries.DeleteDraft(r.PathValue("id")); err != nil {
		log.Printf("deleting draft: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to delete draft")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handlePushToGithub(w http.ResponseWriter, r *http.Request) {
	draft, err := s.queries.GetDraft(r.PathValue("id"))
	if err != nil {
		log.Printf("getting draft: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to push to GitHub")
		return
	}
	if draft == nil {
		respondError(w, http.StatusNotFound, "Draft not found")
		return
	}

	website, err := s.queries.GetWebsite(draft.WebsiteID)
	if err != nil {
		log.Printf("getting website: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to push to GitHub")
		return
	}
	if website == nil {
		respondError(w, http.StatusNotFound, "Website not found")
		return
	}

	user, err := s.queries.GetUserByUsername(tempUsername)
	if err != nil || user == nil {
		log.Printf("getting user: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to push to GitHub")
		return
	}
	if user.GithubToken == nil || *user.GithubToken == "" {
		respondError(w, http.StatusBadRequest, "GitHub token not configured")
		return
	}

	prURL, err := s.newGithubClient(*user.GithubToken).CreatePullRequest(r.Context(), draft, website)
	if err != nil {
		log.Printf("pushing draft %s to github: %v", draft.ID, err)
		s.recordFailure(website.ID, "PR Creation", &draft.Title, err)
		respondErrorDetails(w, http.StatusInternalServerError, "Failed to push to GitHub", err.Error())
		return
	}

	draft.Status = models.DraftPRCreated
	draft.PRURL = &prURL
	updated, err := s.queries.UpdateDraft(draft)
	if err != nil {
		log.Printf("updating draft after push: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to push to GitHub")
		return
	}

	s.recordSuccess(website.ID, "PR Created", &draft.Title, &prURL)
	if err := s.queries.IncrementTotalArticles(website.ID); err != nil {
		log.Printf("incrementing article count: %v", err)
	}

	respondJSON(w, http.StatusOK, updated)
}

// History and stats

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := s.queries.ListHistory(r.PathValue("websiteId"), limit)
	if err != nil {
		log.Printf("listing history: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	if history == nil {
		history = []models.GenerationHistory{}
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.GetStats(s.userID, time.Now())
	if err != nil {
		log.Printf("computing stats: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) recordSuccess(websiteID, action string, articleTitle, prURL *string) {
	_, err := s.queries.CreateHistory(&models.GenerationHistory{
		WebsiteID:    websiteID,
		Action:       action,
		ArticleTitle: articleTitle,
		Status:       models.HistorySuccess,
		PRURL:        prURL,
	})
	if err != nil {
		log.Printf("recording history: %v", err)
	}
}

func (s *Server) recordFailure(websiteID, action string, articleTitle *string, cause error) {
	msg := cause.Error()
	_, err := s.queries.CreateHistory(&models.GenerationHistory{
		WebsiteID:    websiteID,
		Action:       action,
		ArticleTitle: articleTitle,
		Status:       models.HistoryFailed,
		ErrorMessage: &msg,
	})
	if err != nil {
		log.Printf("recording history: %v", err)
	}
}
