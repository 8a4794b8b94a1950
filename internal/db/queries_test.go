package db

import (
	"path/filepath"
	"testing"
	"time"

	"blogforge/internal/models"
)

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewQueries(database)
}

func createTestUser(t *testing.T, q *Queries) *models.User {
	t.Helper()
	user, err := q.CreateUser("temp", "temp", nil)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

func createTestWebsite(t *testing.T, q *Queries, userID string) *models.Website {
	t.Helper()
	website, err := q.CreateWebsite(&models.Website{
		UserID:       userID,
		Name:         "Acme",
		URL:          "https://acme.example",
		Keywords:     []string{"widgets"},
		Status:       models.WebsiteActive,
		GithubBranch: "main",
		GithubPath:   "blog",
	})
	if err != nil {
		t.Fatalf("creating website: %v", err)
	}
	return website
}

func TestUserLifecycle(t *testing.T) {
	q := newTestQueries(t)

	if user, err := q.GetUserByUsername("missing"); err != nil || user != nil {
		t.Fatalf("missing user: got %v, %v", user, err)
	}

	user := createTestUser(t, q)
	if user.Username != "temp" || user.ID == "" {
		t.Errorf("user = %+v", user)
	}

	if err := q.UpdateUserGithubToken(user.ID, "tok123"); err != nil {
		t.Fatalf("updating token: %v", err)
	}
	reloaded, err := q.GetUserByUsername("temp")
	if err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	if reloaded.GithubToken == nil || *reloaded.GithubToken != "tok123" {
		t.Errorf("token = %v", reloaded.GithubToken)
	}
}

func TestWebsiteCRUD(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)

	if website.Status != models.WebsiteActive || website.MinWords != 1000 || website.MaxWords != 3000 {
		t.Errorf("defaults not applied: %+v", website)
	}
	if website.ScrapedData != nil || website.LastScraped != nil {
		t.Error("new website should have no analysis snapshot")
	}

	websites, err := q.ListWebsites(user.ID)
	if err != nil || len(websites) != 1 {
		t.Fatalf("ListWebsites = %v, %v", websites, err)
	}

	tone := "Casual"
	website.Tone = &tone
	website.Status = models.WebsitePaused
	updated, err := q.UpdateWebsite(website)
	if err != nil {
		t.Fatalf("updating website: %v", err)
	}
	if updated.Tone == nil || *updated.Tone != "Casual" || updated.Status != models.WebsitePaused {
		t.Errorf("updated = %+v", updated)
	}

	if err := q.DeleteWebsite(website.ID); err != nil {
		t.Fatalf("deleting website: %v", err)
	}
	if got, err := q.GetWebsite(website.ID); err != nil || got != nil {
		t.Errorf("after delete: %v, %v", got, err)
	}
}

func TestSaveAnalysisRoundTrip(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)

	analyzed := &models.AnalyzedContent{
		FAQs:            []models.ScoredFAQ{{Question: "Q?", Answer: "A.", RelevanceScore: 90}},
		KeyTopics:       []string{"widgets"},
		CommonQuestions: []string{},
		ContentThemes:   []string{},
		SEOInsights:     models.SEOInsights{PrimaryKeywords: []string{"widget"}},
		Summary:         "Acme sells widgets.",
		CTA:             &models.CTA{Text: "Get Started", URL: "https://acme.example/start"},
	}
	scrapedAt := time.Now().UTC().Truncate(time.Second)

	if err := q.SaveAnalysis(website.ID, analyzed, scrapedAt); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	reloaded, err := q.GetWebsite(website.ID)
	if err != nil {
		t.Fatalf("reloading: %v", err)
	}
	if reloaded.ScrapedData == nil {
		t.Fatal("scrapedData not persisted")
	}
	if reloaded.ScrapedData.Summary != "Acme sells widgets." || len(reloaded.ScrapedData.FAQs) != 1 {
		t.Errorf("scrapedData = %+v", reloaded.ScrapedData)
	}
	if reloaded.LastScraped == nil || !reloaded.LastScraped.Equal(scrapedAt) {
		t.Errorf("lastScraped = %v, want %v", reloaded.LastScraped, scrapedAt)
	}
	if reloaded.CTAText == nil || *reloaded.CTAText != "Get Started" {
		t.Errorf("ctaText = %v", reloaded.CTAText)
	}
	if reloaded.CTAURL == nil || *reloaded.CTAURL != "https://acme.example/start" {
		t.Errorf("ctaUrl = %v", reloaded.CTAURL)
	}

	if err := q.SaveAnalysis("no-such-id", analyzed, scrapedAt); err == nil {
		t.Error("saving against a missing website should fail")
	}
}

func TestArticleIdeaStatusFilter(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)

	for _, status := range []string{models.IdeaPending, models.IdeaApproved, models.IdeaPending} {
		if _, err := q.CreateArticleIdea(&models.ArticleIdea{
			WebsiteID:      website.ID,
			Headline:       "H " + status,
			Confidence:     80,
			Keywords:       []string{"k"},
			EstimatedWords: 1200,
			SEOScore:       70,
			Status:         status,
		}); err != nil {
			t.Fatalf("creating idea: %v", err)
		}
	}

	all, err := q.ListArticleIdeas(website.ID, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("all ideas = %d, %v", len(all), err)
	}
	pending, err := q.ListArticleIdeas(website.ID, models.IdeaPending)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending ideas = %d, %v", len(pending), err)
	}

	idea := pending[0]
	idea.Status = models.IdeaApproved
	updated, err := q.UpdateArticleIdea(&idea)
	if err != nil || updated.Status != models.IdeaApproved {
		t.Fatalf("updating idea: %v, %v", updated, err)
	}

	if err := q.DeleteArticleIdea(idea.ID); err != nil {
		t.Fatalf("deleting idea: %v", err)
	}
	if got, err := q.GetArticleIdea(idea.ID); err != nil || got != nil {
		t.Errorf("after delete: %v, %v", got, err)
	}
}

func TestDraftLifecycle(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)
	idea, err := q.CreateArticleIdea(&models.ArticleIdea{
		WebsiteID: website.ID, Headline: "H", Confidence: 80,
		Keywords: []string{"k"}, EstimatedWords: 1200, SEOScore: 70,
	})
	if err != nil {
		t.Fatalf("creating idea: %v", err)
	}

	draft, err := q.CreateDraft(&models.Draft{
		ArticleIdeaID:    idea.ID,
		WebsiteID:        website.ID,
		Title:            "T",
		Content:          "Body.",
		Excerpt:          "E",
		WordCount:        1,
		ReadabilityScore: 75,
		KeywordDensity:   2.5,
		Frontmatter:      map[string]any{"title": "T"},
	})
	if err != nil {
		t.Fatalf("creating draft: %v", err)
	}
	if draft.Status != models.DraftDraft {
		t.Errorf("status = %q, want draft", draft.Status)
	}
	if draft.Frontmatter["title"] != "T" {
		t.Errorf("frontmatter = %v", draft.Frontmatter)
	}

	prURL := "https://github.com/acme/blog/pull/1"
	draft.Status = models.DraftPRCreated
	draft.PRURL = &prURL
	updated, err := q.UpdateDraft(draft)
	if err != nil {
		t.Fatalf("updating draft: %v", err)
	}
	if updated.Status != models.DraftPRCreated || updated.PRURL == nil || *updated.PRURL != prURL {
		t.Errorf("updated = %+v", updated)
	}

	inStatus, err := q.ListDrafts(website.ID, models.DraftPRCreated)
	if err != nil || len(inStatus) != 1 {
		t.Fatalf("filtered drafts = %d, %v", len(inStatus), err)
	}
}

func TestCascadeDelete(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)
	idea, err := q.CreateArticleIdea(&models.ArticleIdea{
		WebsiteID: website.ID, Headline: "H", Confidence: 80,
		Keywords: []string{"k"}, EstimatedWords: 1200, SEOScore: 70,
	})
	if err != nil {
		t.Fatalf("creating idea: %v", err)
	}

	if err := q.DeleteWebsite(website.ID); err != nil {
		t.Fatalf("deleting website: %v", err)
	}
	if got, err := q.GetArticleIdea(idea.ID); err != nil || got != nil {
		t.Errorf("idea should cascade on website delete: %v, %v", got, err)
	}
}

func TestHistoryAndStats(t *testing.T) {
	q := newTestQueries(t)
	user := createTestUser(t, q)
	website := createTestWebsite(t, q, user.ID)

	title := "T"
	prURL := "https://github.com/acme/blog/pull/1"
	if _, err := q.CreateHistory(&models.GenerationHistory{
		WebsiteID:    website.ID,
		Action:       "PR Created",
		ArticleTitle: &title,
		Status:       models.HistorySuccess,
		PRURL:        &prURL,
	}); err != nil {
		t.Fatalf("creating history: %v", err)
	}
	if _, err := q.CreateHistory(&models.GenerationHistory{
		WebsiteID: website.ID,
		Action:    "Ideas Generated",
		Status:    models.HistorySuccess,
	}); err != nil {
		t.Fatalf("creating history: %v", err)
	}
	if _, err := q.CreateArticleIdea(&models.ArticleIdea{
		WebsiteID: website.ID, Headline: "H", Confidence: 80,
		Keywords: []string{"k"}, EstimatedWords: 1200, SEOScore: 70,
	}); err != nil {
		t.Fatalf("creating idea: %v", err)
	}

	history, err := q.ListHistory(website.ID, 50)
	if err != nil || len(history) != 2 {
		t.Fatalf("history = %d entries, %v", len(history), err)
	}
	limited, err := q.ListHistory(website.ID, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited history = %d entries, %v", len(limited), err)
	}

	stats, err := q.GetStats(user.ID, time.Now())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.ActiveWebsites != 1 {
		t.Errorf("activeWebsites = %d", stats.ActiveWebsites)
	}
	if stats.PendingApprovals != 1 {
		t.Errorf("pendingApprovals = %d", stats.PendingApprovals)
	}
	if stats.PublishedThisMonth != 1 {
		t.Errorf("publishedThisMonth = %d", stats.PublishedThisMonth)
	}
}
