// Package analyzer synthesizes scraped pages into FAQs, topics and SEO
// insights, blending model output with the heuristic extraction and degrading
// to heuristics alone when the model call fails.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"

	"blogforge/internal/ai"
	"blogforge/internal/models"
)

const (
	// promptTextBudget caps the combined page text sent to the model.
	promptTextBudget = 15000

	heuristicFAQScore = 90
	degradedFAQScore  = 80
	maxFAQs           = 20

	analyzeSystemPrompt = "You are an expert SEO content analyst who extracts valuable insights from website content to improve SEO and content strategy. Always respond with valid JSON."
)

type ContentAnalyzer struct {
	ai ai.Client
}

func NewContentAnalyzer(client ai.Client) *ContentAnalyzer {
	return &ContentAnalyzer{ai: client}
}

// modelAnalysis is the JSON shape requested from the model. Every field is
// optional; defaults are applied after parsing.
type modelAnalysis struct {
	FAQs            []models.ScoredFAQ `json:"faqs"`
	KeyTopics       []string           `json:"keyTopics"`
	CommonQuestions []string           `json:"commonQuestions"`
	ContentThemes   []string           `json:"contentThemes"`
	SEOInsights     *models.SEOInsights `json:"seoInsights"`
	Summary         string             `json:"summary"`
	CTA             *models.CTA        `json:"cta"`
}

// Analyze combines the scraped pages into one model request and merges the
// response with the heuristic FAQs and CTA candidates. It never fails: any
// model error yields a heuristics-only result so website creation is never
// blocked on the AI being unavailable.
func (a *ContentAnalyzer) Analyze(ctx context.Context, pages []models.ScrapedPage, siteURL string) *models.AnalyzedContent {
	var allFAQs []models.FAQ
	var allHeadings []string
	var allCTAs []models.Link
	for _, page := range pages {
		allFAQs = append(allFAQs, page.FAQSections...)
		allHeadings = append(allHeadings, page.Headings...)
		allCTAs = append(allCTAs, page.CTACandidates...)
	}

	prompt := buildAnalysisPrompt(pages, allFAQs, allHeadings, allCTAs)

	raw, err := a.ai.CompleteJSON(ctx, analyzeSystemPrompt, prompt, 0.7)
	if err != nil {
		log.Printf("[analyzer] model call failed, using heuristics only: %v", err)
		return degraded(pages, siteURL, allFAQs, allHeadings, allCTAs)
	}

	var parsed modelAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Printf("[analyzer] unparsable model response, using heuristics only: %v", err)
		return degraded(pages, siteURL, allFAQs, allHeadings, allCTAs)
	}

	base := baseURL(siteURL, pages)

	result := &models.AnalyzedContent{
		FAQs:            mergeFAQs(allFAQs, parsed.FAQs),
		KeyTopics:       orEmpty(parsed.KeyTopics),
		CommonQuestions: orEmpty(parsed.CommonQuestions),
		ContentThemes:   orEmpty(parsed.ContentThemes),
		Summary:         parsed.Summary,
		CTA:             resolveCTA(parsed.CTA, allCTAs, base, siteURL),
	}
	if parsed.SEOInsights != nil {
		result.SEOInsights = normalizeInsights(*parsed.SEOInsights)
	}
	return result
}

func buildAnalysisPrompt(pages []models.ScrapedPage, faqs []models.FAQ, headings []string, ctas []models.Link) string {
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		texts = append(texts, page.FullText)
	}
	combined := strings.Join(texts, "\n\n---\n\n")
	truncMarker := ""
	if len(combined) > promptTextBudget {
		combined = combined[:promptTextBudget]
		truncMarker = " ... (truncated)"
	}

	var faqLines []string
	for _, faq := range faqs {
		faqLines = append(faqLines, fmt.Sprintf("Q: %s\nA: %s", faq.Question, faq.Answer))
	}
	var ctaLines []string
	for _, cta := range ctas {
		ctaLines = append(ctaLines, fmt.Sprintf("Text: %q → URL: %s", cta.Text, cta.Href))
	}

	return fmt.Sprintf(`You are an expert SEO content analyst. Analyze the following website content and extract valuable insights for content generation.

Website Content:
%s%s

Existing FAQs Found:
%s

Headings Found:
%s

CTA Candidates Found:
%s

Your task:
1. Extract and enhance FAQs - identify questions that users commonly ask about this topic, even if not explicitly stated. Rate each FAQ's relevance (0-100).
2. Identify key topics and themes from the content
3. Generate common questions that potential readers might have
4. Provide SEO insights including:
   - Primary keywords (most important)
   - Semantic keywords (related terms)
   - Content gaps (topics not covered but should be)
   - Recommended topics for new articles
5. Suggest the best Call-to-Action (CTA) based on the CTA candidates found. Choose the most prominent and relevant CTA that would work well for blog articles. If no good CTA candidates are found, suggest a generic one like "Learn More" with the website's homepage URL.

Return your response as JSON with this exact structure:
{
  "faqs": [{"question": string, "answer": string, "relevanceScore": number}],
  "keyTopics": [string],
  "commonQuestions": [string],
  "contentThemes": [string],
  "seoInsights": {
    "primaryKeywords": [string],
    "semanticKeywords": [string],
    "contentGaps": [string],
    "recommendedTopics": [string]
  },
  "summary": "A 2-3 sentence summary of the website's main focus and content",
  "cta": {
    "text": "Suggested CTA text (e.g., 'Learn More', 'Get Started', 'Sign Up')",
    "url": "Full URL for the CTA (use homepage if no specific URL found)"
  }
}`, combined, truncMarker, strings.Join(faqLines, "\n\n"), strings.Join(headings, "\n"), strings.Join(ctaLines, "\n"))
}

// mergeFAQs keeps every heuristic FAQ at a fixed high score, appends model
// FAQs whose question is novel (case-insensitive), sorts by relevance
// descending and caps the list.
func mergeFAQs(heuristic []models.FAQ, fromModel []models.ScoredFAQ) []models.ScoredFAQ {
	seen := make(map[string]int, len(heuristic))
	var merged []models.ScoredFAQ
	for _, faq := range heuristic {
		key := strings.ToLower(faq.Question)
		scored := models.ScoredFAQ{Question: faq.Question, Answer: faq.Answer, RelevanceScore: heuristicFAQScore}
		if i, ok := seen[key]; ok {
			merged[i] = scored
			continue
		}
		seen[key] = len(merged)
		merged = append(merged, scored)
	}
	for _, faq := range fromModel {
		if _, ok := seen[strings.ToLower(faq.Question)]; ok {
			continue
		}
		merged = append(merged, faq)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if len(merged) > maxFAQs {
		merged = merged[:maxFAQs]
	}
	if merged == nil {
		merged = []models.ScoredFAQ{}
	}
	return merged
}

// baseURL picks the origin used to absolutize CTA links: the site URL when it
// parses, otherwise the origin of the first link found on the first page.
func baseURL(siteURL string, pages []models.ScrapedPage) string {
	if origin := originOf(siteURL); origin != "" {
		return origin
	}
	if len(pages) > 0 && len(pages[0].Links) > 0 {
		return originOf(pages[0].Links[0].Href)
	}
	return ""
}

func originOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

// resolveURL absolutizes href against base. Already-absolute URLs pass
// through unchanged, making resolution idempotent.
func resolveURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "/") {
		return base + href
	}
	return base + "/" + href
}

func resolveCTA(fromModel *models.CTA, candidates []models.Link, base, siteURL string) *models.CTA {
	if fromModel == nil {
		if len(candidates) > 0 {
			first := candidates[0]
			return &models.CTA{Text: first.Text, URL: resolveURL(base, first.Href)}
		}
		fallback := base
		if fallback == "" {
			fallback = siteURL
		}
		if fallback == "" {
			fallback = "/"
		}
		return &models.CTA{Text: "Learn More", URL: fallback}
	}
	cta := *fromModel
	if cta.URL != "" && !strings.HasPrefix(cta.URL, "http") {
		cta.URL = resolveURL(base, cta.URL)
	}
	return &cta
}

func degraded(pages []models.ScrapedPage, siteURL string, faqs []models.FAQ, headings []string, ctas []models.Link) *models.AnalyzedContent {
	scored := make([]models.ScoredFAQ, 0, len(faqs))
	for _, faq := range faqs {
		scored = append(scored, models.ScoredFAQ{
			Question:       faq.Question,
			Answer:         faq.Answer,
			RelevanceScore: degradedFAQScore,
		})
	}

	topics := headings
	if len(topics) > 10 {
		topics = topics[:10]
	}

	return &models.AnalyzedContent{
		FAQs:            scored,
		KeyTopics:       orEmpty(topics),
		CommonQuestions: []string{},
		ContentThemes:   []string{},
		SEOInsights:     normalizeInsights(models.SEOInsights{}),
		Summary:         "Content analysis unavailable",
		CTA:             resolveCTA(nil, ctas, baseURL(siteURL, pages), siteURL),
	}
}

func normalizeInsights(in models.SEOInsights) models.SEOInsights {
	in.PrimaryKeywords = orEmpty(in.PrimaryKeywords)
	in.SemanticKeywords = orEmpty(in.SemanticKeywords)
	in.ContentGaps = orEmpty(in.ContentGaps)
	in.RecommendedTopics = orEmpty(in.RecommendedTopics)
	return in
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
