package models

import "time"

// Website statuses.
const (
	WebsiteActive = "active"
	WebsitePaused = "paused"
	WebsiteError  = "error"
)

// Article idea statuses.
const (
	IdeaPending  = "pending"
	IdeaApproved = "approved"
	IdeaRejected = "rejected"
)

// Draft statuses.
const (
	DraftDraft     = "draft"
	DraftReview    = "review"
	DraftPRCreated = "pr_created"
	DraftMerged    = "merged"
)

// Generation history statuses.
const (
	HistorySuccess = "success"
	HistoryFailed  = "failed"
	HistoryPending = "pending"
)

type User struct {
	ID          string
	Username    string
	Password    string
	GithubToken *string
	CreatedAt   time.Time
}

type Website struct {
	ID            string           `json:"id"`
	UserID        string           `json:"userId"`
	Name          string           `json:"name"`
	URL           string           `json:"url"`
	Keywords      []string         `json:"keywords"`
	Tone          *string          `json:"tone"`
	Audience      *string          `json:"audience"`
	Status        string           `json:"status"`
	GithubRepo    *string          `json:"githubRepo"`
	GithubBranch  string           `json:"githubBranch"`
	GithubPath    string           `json:"githubPath"`
	CTAText       *string          `json:"ctaText"`
	CTAURL        *string          `json:"ctaUrl"`
	MinWords      int              `json:"minWords"`
	MaxWords      int              `json:"maxWords"`
	TotalArticles int              `json:"totalArticles"`
	LastGenerated *time.Time       `json:"lastGenerated"`
	NextScheduled *time.Time       `json:"nextScheduled"`
	ScrapedData   *AnalyzedContent `json:"scrapedData"`
	LastScraped   *time.Time       `json:"lastScraped"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

type ArticleIdea struct {
	ID             string     `json:"id"`
	WebsiteID      string     `json:"websiteId"`
	Headline       string     `json:"headline"`
	Confidence     int        `json:"confidence"`
	Keywords       []string   `json:"keywords"`
	EstimatedWords int        `json:"estimatedWords"`
	SEOScore       int        `json:"seoScore"`
	Status         string     `json:"status"`
	Priority       *int       `json:"priority"`
	ScheduledDate  *time.Time `json:"scheduledDate"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type Draft struct {
	ID               string         `json:"id"`
	ArticleIdeaID    string         `json:"articleIdeaId"`
	WebsiteID        string         `json:"websiteId"`
	Title            string         `json:"title"`
	Content          string         `json:"content"`
	Excerpt          string         `json:"excerpt"`
	WordCount        int            `json:"wordCount"`
	ReadabilityScore int            `json:"readabilityScore"`
	KeywordDensity   float64        `json:"keywordDensity"`
	Status           string         `json:"status"`
	PRURL            *string        `json:"prUrl"`
	Frontmatter      map[string]any `json:"frontmatter"`
	ImageURL         *string        `json:"imageUrl"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

type GenerationHistory struct {
	ID           string    `json:"id"`
	WebsiteID    string    `json:"websiteId"`
	Action       string    `json:"action"`
	ArticleTitle *string   `json:"articleTitle"`
	Status       string    `json:"status"`
	PRURL        *string   `json:"prUrl"`
	ErrorMessage *string   `json:"errorMessage"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ScrapedPage is the structured content of a single fetched page. It is
// consumed by the analyzer right away and never persisted on its own.
type ScrapedPage struct {
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Headings      []string     `json:"headings"`
	Paragraphs    []string     `json:"paragraphs"`
	Links         []Link       `json:"links"`
	CTACandidates []Link       `json:"ctaCandidates"`
	FAQSections   []FAQ        `json:"faqSections"`
	Metadata      PageMetadata `json:"metadata"`
	FullText      string       `json:"fullText"`
}

type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type PageMetadata struct {
	Keywords      string `json:"keywords,omitempty"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
}

// AnalyzedContent is the AI-plus-heuristic synthesis of a scraped website,
// stored as a JSON blob on the website row and overwritten on every re-scrape.
type AnalyzedContent struct {
	FAQs            []ScoredFAQ `json:"faqs"`
	KeyTopics       []string    `json:"keyTopics"`
	CommonQuestions []string    `json:"commonQuestions"`
	ContentThemes   []string    `json:"contentThemes"`
	SEOInsights     SEOInsights `json:"seoInsights"`
	Summary         string      `json:"summary"`
	CTA             *CTA        `json:"cta,omitempty"`
}

type ScoredFAQ struct {
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	RelevanceScore int    `json:"relevanceScore"`
}

type SEOInsights struct {
	PrimaryKeywords   []string `json:"primaryKeywords"`
	SemanticKeywords  []string `json:"semanticKeywords"`
	ContentGaps       []string `json:"contentGaps"`
	RecommendedTopics []string `json:"recommendedTopics"`
}

type CTA struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}
