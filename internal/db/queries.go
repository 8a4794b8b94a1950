package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blogforge/internal/models"
)

type Queries struct {
	db *sql.DB
}

func NewQueries(db *sql.DB) *Queries {
	return &Queries{db: db}
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.DateTime)
}

func marshalJSON(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// Users

func (q *Queries) GetUserByUsername(username string) (*models.User, error) {
	u := &models.User{}
	var createdAt string
	err := q.db.QueryRow(
		`SELECT id, username, password, github_token, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.Password, &u.GithubToken, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

func (q *Queries) CreateUser(username, password string, githubToken *string) (*models.User, error) {
	id := uuid.New().String()
	_, err := q.db.Exec(
		`INSERT INTO users (id, username, password, github_token) VALUES (?, ?, ?, ?)`,
		id, username, password, githubToken,
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return q.GetUserByUsername(username)
}

func (q *Queries) UpdateUserGithubToken(id string, token string) error {
	_, err := q.db.Exec(`UPDATE users SET github_token = ? WHERE id = ?`, token, id)
	if err != nil {
		return fmt.Errorf("updating github token: %w", err)
	}
	return nil
}

// Websites

const websiteColumns = `id, user_id, name, url, keywords, tone, audience, status,
	github_repo, github_branch, github_path, cta_text, cta_url,
	min_words, max_words, total_articles, last_generated, next_scheduled,
	scraped_data, last_scraped, created_at, updated_at`

func (q *Queries) scanWebsite(row interface{ Scan(...any) error }) (*models.Website, error) {
	w := &models.Website{}
	var keywords string
	var scrapedData sql.NullString
	var lastGenerated, nextScheduled, lastScraped sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&w.ID, &w.UserID, &w.Name, &w.URL, &keywords, &w.Tone, &w.Audience, &w.Status,
		&w.GithubRepo, &w.GithubBranch, &w.GithubPath, &w.CTAText, &w.CTAURL,
		&w.MinWords, &w.MaxWords, &w.TotalArticles, &lastGenerated, &nextScheduled,
		&scrapedData, &lastScraped, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &w.Keywords); err != nil {
		w.Keywords = nil
	}
	if w.Keywords == nil {
		w.Keywords = []string{}
	}
	if scrapedData.Valid && scrapedData.String != "" {
		var ac models.AnalyzedContent
		if err := json.Unmarshal([]byte(scrapedData.String), &ac); err == nil {
			w.ScrapedData = &ac
		}
	}
	w.LastGenerated = parseTimePtr(lastGenerated)
	w.NextScheduled = parseTimePtr(nextScheduled)
	w.LastScraped = parseTimePtr(lastScraped)
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return w, nil
}

func (q *Queries) CreateWebsite(w *models.Website) (*models.Website, error) {
	w.ID = uuid.New().String()
	_, err := q.db.Exec(
		`INSERT INTO websites (id, user_id, name, url, keywords, tone, audience, status,
		                       github_repo, github_branch, github_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, w.URL, marshalJSON(w.Keywords), w.Tone, w.Audience, w.Status,
		w.GithubRepo, w.GithubBranch, w.GithubPath,
	)
	if err != nil {
		return nil, fmt.Errorf("creating website: %w", err)
	}
	return q.GetWebsite(w.ID)
}

func (q *Queries) GetWebsite(id string) (*models.Website, error) {
	w, err := q.scanWebsite(q.db.QueryRow(
		`SELECT `+websiteColumns+` FROM websites WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting website: %w", err)
	}
	return w, nil
}

func (q *Queries) ListWebsites(userID string) ([]models.Website, error) {
	rows, err := q.db.Query(
		`SELECT `+websiteColumns+` FROM websites WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing websites: %w", err)
	}
	defer rows.Close()

	var results []models.Website
	for rows.Next() {
		w, err := q.scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning website: %w", err)
		}
		results = append(results, *w)
	}
	return results, rows.Err()
}

// UpdateWebsite persists the user-editable fields of w.
func (q *Queries) UpdateWebsite(w *models.Website) (*models.Website, error) {
	var lastGenerated, nextScheduled any
	if w.LastGenerated != nil {
		lastGenerated = formatTime(*w.LastGenerated)
	}
	if w.NextScheduled != nil {
		nextScheduled = formatTime(*w.NextScheduled)
	}
	_, err := q.db.Exec(
		`UPDATE websites SET name = ?, url = ?, keywords = ?, tone = ?, audience = ?, status = ?,
		        github_repo = ?, github_branch = ?, github_path = ?, cta_text = ?, cta_url = ?,
		        min_words = ?, max_words = ?, total_articles = ?, last_generated = ?, next_scheduled = ?,
		        updated_at = datetime('now')
		 WHERE id = ?`,
		w.Name, w.URL, marshalJSON(w.Keywords), w.Tone, w.Audience, w.Status,
		w.GithubRepo, w.GithubBranch, w.GithubPath, w.CTAText, w.CTAURL,
		w.MinWords, w.MaxWords, w.TotalArticles, lastGenerated, nextScheduled,
		w.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating website: %w", err)
	}
	return q.GetWebsite(w.ID)
}

// SaveAnalysis overwrites the cached analysis snapshot for a website. The CTA
// fields are only written when the analysis produced a CTA.
func (q *Queries) SaveAnalysis(websiteID string, analyzed *models.AnalyzedContent, scrapedAt time.Time) error {
	var ctaText, ctaURL any
	if analyzed.CTA != nil {
		ctaText = analyzed.CTA.Text
		ctaURL = analyzed.CTA.URL
	}
	var res sql.Result
	var err error
	if analyzed.CTA != nil {
		res, err = q.db.Exec(
			`UPDATE websites SET scraped_data = ?, last_scraped = ?, cta_text = ?, cta_url = ?,
			        updated_at = datetime('now')
			 WHERE id = ?`,
			marshalJSON(analyzed), formatTime(scrapedAt), ctaText, ctaURL, websiteID,
		)
	} else {
		res, err = q.db.Exec(
			`UPDATE websites SET scraped_data = ?, last_scraped = ?, updated_at = datetime('now')
			 WHERE id = ?`,
			marshalJSON(analyzed), formatTime(scrapedAt), websiteID,
		)
	}
	if err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("saving analysis: website %s not found", websiteID)
	}
	return nil
}

func (q *Queries) TouchLastGenerated(websiteID string, at time.Time) error {
	_, err := q.db.Exec(
		`UPDATE websites SET last_generated = ?, updated_at = datetime('now') WHERE id = ?`,
		formatTime(at), websiteID,
	)
	return err
}

func (q *Queries) IncrementTotalArticles(websiteID string) error {
	_, err := q.db.Exec(
		`UPDATE websites SET total_articles = total_articles + 1, updated_at = datetime('now') WHERE id = ?`,
		websiteID,
	)
	return err
}

func (q *Queries) DeleteWebsite(id string) error {
	_, err := q.db.Exec(`DELETE FROM websites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting website: %w", err)
	}
	return nil
}

// Article ideas

const ideaColumns = `id, website_id, headline, confidence, keywords, estimated_words,
	seo_score, status, priority, scheduled_date, created_at`

func scanIdea(row interface{ Scan(...any) error }) (*models.ArticleIdea, error) {
	idea := &models.ArticleIdea{}
	var keywords string
	var scheduledDate sql.NullString
	var createdAt string
	err := row.Scan(&idea.ID, &idea.WebsiteID, &idea.Headline, &idea.Confidence, &keywords,
		&idea.EstimatedWords, &idea.SEOScore, &idea.Status, &idea.Priority, &scheduledDate, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(keywords), &idea.Keywords); err != nil || idea.Keywords == nil {
		idea.Keywords = []string{}
	}
	idea.ScheduledDate = parseTimePtr(scheduledDate)
	idea.CreatedAt = parseTime(createdAt)
	return idea, nil
}

func (q *Queries) CreateArticleIdea(idea *models.ArticleIdea) (*models.ArticleIdea, error) {
	idea.ID = uuid.New().String()
	if idea.Status == "" {
		idea.Status = models.IdeaPending
	}
	_, err := q.db.Exec(
		`INSERT INTO article_ideas (id, website_id, headline, confidence, keywords, estimated_words, seo_score, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		idea.ID, idea.WebsiteID, idea.Headline, idea.Confidence, marshalJSON(idea.Keywords),
		idea.EstimatedWords, idea.SEOScore, idea.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating article idea: %w", err)
	}
	return q.GetArticleIdea(idea.ID)
}

func (q *Queries) GetArticleIdea(id string) (*models.ArticleIdea, error) {
	idea, err := scanIdea(q.db.QueryRow(
		`SELECT `+ideaColumns+` FROM article_ideas WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting article idea: %w", err)
	}
	return idea, nil
}

// ListArticleIdeas returns the ideas for a website, optionally filtered by status.
func (q *Queries) ListArticleIdeas(websiteID, status string) ([]models.ArticleIdea, error) {
	query := `SELECT ` + ideaColumns + ` FROM article_ideas WHERE website_id = ?`
	args := []any{websiteID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing article ideas: %w", err)
	}
	defer rows.Close()

	var results []models.ArticleIdea
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article idea: %w", err)
		}
		results = append(results, *idea)
	}
	return results, rows.Err()
}

func (q *Queries) UpdateArticleIdea(idea *models.ArticleIdea) (*models.ArticleIdea, error) {
	var scheduledDate any
	if idea.ScheduledDate != nil {
		scheduledDate = formatTime(*idea.ScheduledDate)
	}
	_, err := q.db.Exec(
		`UPDATE article_ideas SET headline = ?, confidence = ?, keywords = ?, estimated_words = ?,
		        seo_score = ?, status = ?, priority = ?, scheduled_date = ?
		 WHERE id = ?`,
		idea.Headline, idea.Confidence, marshalJSON(idea.Keywords), idea.EstimatedWords,
		idea.SEOScore, idea.Status, idea.Priority, scheduledDate, idea.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating article idea: %w", err)
	}
	return q.GetArticleIdea(idea.ID)
}

func (q *Queries) DeleteArticleIdea(id string) error {
	_, err := q.db.Exec(`DELETE FROM article_ideas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article idea: %w", err)
	}
	return nil
}

// Drafts

const draftColumns = `id, article_idea_id, website_id, title, content, excerpt, word_count,
	readability_score, keyword_density, status, pr_url, frontmatter, image_url, created_at, updated_at`

func scanDraft(row interface{ Scan(...any) error }) (*models.Draft, error) {
	d := &models.Draft{}
	var frontmatter sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&d.ID, &d.ArticleIdeaID, &d.WebsiteID, &d.Title, &d.Content, &d.Excerpt,
		&d.WordCount, &d.ReadabilityScore, &d.KeywordDensity, &d.Status, &d.PRURL,
		&frontmatter, &d.ImageURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if frontmatter.Valid && frontmatter.String != "" {
		_ = json.Unmarshal([]byte(frontmatter.String), &d.Frontmatter)
	}
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

func (q *Queries) CreateDraft(d *models.Draft) (*models.Draft, error) {
	d.ID = uuid.New().String()
	if d.Status == "" {
		d.Status = models.DraftDraft
	}
	_, err := q.db.Exec(
		`INSERT INTO drafts (id, article_idea_id, website_id, title, content, excerpt,
		                     word_count, readability_score, keyword_density, status, frontmatter, image_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ArticleIdeaID, d.WebsiteID, d.Title, d.Content, d.Excerpt,
		d.WordCount, d.ReadabilityScore, d.KeywordDensity, d.Status, marshalJSON(d.Frontmatter), d.ImageURL,
	)
	if err != nil {
		return nil, fmt.Errorf("creating draft: %w", err)
	}
	return q.GetDraft(d.ID)
}

func (q *Queries) GetDraft(id string) (*models.Draft, error) {
	d, err := scanDraft(q.db.QueryRow(
		`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting draft: %w", err)
	}
	return d, nil
}

func (q *Queries) ListDrafts(websiteID, status string) ([]models.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE website_id = ?`
	args := []any{websiteID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := q.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing drafts: %w", err)
	}
	defer rows.Close()

	var results []models.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning draft: %w", err)
		}
		results = append(results, *d)
	}
	return results, rows.Err()
}

func (q *Queries) UpdateDraft(d *models.Draft) (*models.Draft, error) {
	_, err := q.db.Exec(
		`UPDATE drafts SET title = ?, content = ?, excerpt = ?, word_count = ?,
		        readability_score = ?, keyword_density = ?, status = ?, pr_url = ?,
		        frontmatter = ?, image_url = ?, updated_at = datetime('now')
		 WHERE id = ?`,
		d.Title, d.Content, d.Excerpt, d.WordCount,
		d.ReadabilityScore, d.KeywordDensity, d.Status, d.PRURL,
		marshalJSON(d.Frontmatter), d.ImageURL, d.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating draft: %w", err)
	}
	return q.GetDraft(d.ID)
}

func (q *Queries) DeleteDraft(id string) error {
	_, err := q.db.Exec(`DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting draft: %w", err)
	}
	return nil
}

// Generation history

func (q *Queries) CreateHistory(h *models.GenerationHistory) (*models.GenerationHistory, error) {
	h.ID = uuid.New().String()
	_, err := q.db.Exec(
		`INSERT INTO generation_history (id, website_id, action, article_title, status, pr_url, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.WebsiteID, h.Action, h.ArticleTitle, h.Status, h.PRURL, h.ErrorMessage,
	)
	if err != nil {
		return nil, fmt.Errorf("creating history entry: %w", err)
	}
	var createdAt string
	err = q.db.QueryRow(`SELECT created_at FROM generation_history WHERE id = ?`, h.ID).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("reading history entry: %w", err)
	}
	h.CreatedAt = parseTime(createdAt)
	return h, nil
}

func (q *Queries) ListHistory(websiteID string, limit int) ([]models.GenerationHistory, error) {
	rows, err := q.db.Query(
		`SELECT id, website_id, action, article_title, status, pr_url, error_message, created_at
		 FROM generation_history WHERE website_id = ?
		 ORDER BY created_at DESC LIMIT ?`, websiteID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var results []models.GenerationHistory
	for rows.Next() {
		var h models.GenerationHistory
		var createdAt string
		if err := rows.Scan(&h.ID, &h.WebsiteID, &h.Action, &h.ArticleTitle, &h.Status,
			&h.PRURL, &h.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		h.CreatedAt = parseTime(createdAt)
		results = append(results, h)
	}
	return results, rows.Err()
}

// Dashboard stats

type Stats struct {
	ActiveWebsites          int `json:"activeWebsites"`
	PendingApprovals        int `json:"pendingApprovals"`
	PublishedThisMonth      int `json:"publishedThisMonth"`
	LastMonthActiveWebsites int `json:"lastMonthActiveWebsites"`
	ThisMonthApprovedIdeas  int `json:"thisMonthApprovedIdeas"`
	LastMonthApprovedIdeas  int `json:"lastMonthApprovedIdeas"`
	LastMonthPublished      int `json:"lastMonthPublished"`
}

// GetStats aggregates dashboard counters for a user relative to now.
func (q *Queries) GetStats(userID string, now time.Time) (*Stats, error) {
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	startOfLastMonth := startOfMonth.AddDate(0, -1, 0)

	s := &Stats{}

	count := func(dst *int, query string, args ...any) error {
		return q.db.QueryRow(query, args...).Scan(dst)
	}

	if err := count(&s.ActiveWebsites,
		`SELECT COUNT(*) FROM websites WHERE user_id = ? AND status = 'active'`, userID); err != nil {
		return nil, fmt.Errorf("counting active websites: %w", err)
	}
	if err := count(&s.PendingApprovals,
		`SELECT COUNT(*) FROM article_ideas i JOIN websites w ON w.id = i.website_id
		 WHERE w.user_id = ? AND i.status = 'pending'`, userID); err != nil {
		return nil, fmt.Errorf("counting pending approvals: %w", err)
	}
	if err := count(&s.PublishedThisMonth,
		`SELECT COUNT(*) FROM generation_history h JOIN websites w ON w.id = h.website_id
		 WHERE w.user_id = ? AND h.action = 'PR Created' AND h.created_at >= ?`,
		userID, formatTime(startOfMonth)); err != nil {
		return nil, fmt.Errorf("counting published this month: %w", err)
	}
	if err := count(&s.LastMonthActiveWebsites,
		`SELECT COUNT(*) FROM websites WHERE user_id = ? AND status = 'active' AND created_at < ?`,
		userID, formatTime(startOfMonth)); err != nil {
		return nil, fmt.Errorf("counting last month active websites: %w", err)
	}
	if err := count(&s.ThisMonthApprovedIdeas,
		`SELECT COUNT(*) FROM article_ideas i JOIN websites w ON w.id = i.website_id
		 WHERE w.user_id = ? AND i.status = 'approved' AND i.created_at >= ?`,
		userID, formatTime(startOfMonth)); err != nil {
		return nil, fmt.Errorf("counting this month approved ideas: %w", err)
	}
	if err := count(&s.LastMonthApprovedIdeas,
		`SELECT COUNT(*) FROM article_ideas i JOIN websites w ON w.id = i.website_id
		 WHERE w.user_id = ? AND i.status = 'approved' AND i.created_at >= ? AND i.created_at < ?`,
		userID, formatTime(startOfLastMonth), formatTime(startOfMonth)); err != nil {
		return nil, fmt.Errorf("counting last month approved ideas: %w", err)
	}
	if err := count(&s.LastMonthPublished,
		`SELECT COUNT(*) FROM generation_history h JOIN websites w ON w.id = h.website_id
		 WHERE w.user_id = ? AND h.action = 'PR Created' AND h.created_at >= ? AND h.created_at < ?`,
		userID, formatTime(startOfLastMonth), formatTime(startOfMonth)); err != nil {
		return nil, fmt.Errorf("counting last month published: %w", err)
	}

	return s, nil
}
