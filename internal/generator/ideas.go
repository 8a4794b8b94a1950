// Package generator produces article ideas and full drafts from a website's
// profile and its cached analysis snapshot. Unlike the analyzer, generation
// has no heuristic fallback: model failures propagate to the caller.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"blogforge/internal/ai"
	"blogforge/internal/models"
)

const (
	defaultTone     = "Professional and informative"
	defaultAudience = "General audience"

	ideasSystemPrompt = "You are an expert SEO content strategist who generates high-quality article ideas optimized for search engines and user engagement. Always respond with valid JSON."
)

type GeneratedIdea struct {
	Headline       string   `json:"headline"`
	Confidence     int      `json:"confidence"`
	Keywords       []string `json:"keywords"`
	EstimatedWords int      `json:"estimatedWords"`
	SEOScore       int      `json:"seoScore"`
}

type IdeaGenerator struct {
	ai ai.Client
}

func NewIdeaGenerator(client ai.Client) *IdeaGenerator {
	return &IdeaGenerator{ai: client}
}

// Generate asks the model for count headline ideas, enriching the prompt with
// the website's cached analysis when present.
func (g *IdeaGenerator) Generate(ctx context.Context, website *models.Website, count int) ([]GeneratedIdea, error) {
	prompt := buildIdeasPrompt(website, count)

	log.Printf("[generator] generating %d article ideas for website %s", count, website.Name)
	raw, err := g.ai.CompleteJSON(ctx, ideasSystemPrompt, prompt, 0.8)
	if err != nil {
		return nil, fmt.Errorf("generating ideas: %w", err)
	}

	// Models have been observed returning either key; tolerate both.
	var parsed struct {
		Ideas    []GeneratedIdea `json:"ideas"`
		Articles []GeneratedIdea `json:"articles"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing ideas response: %w", err)
	}
	ideas := parsed.Ideas
	if ideas == nil {
		ideas = parsed.Articles
	}
	return ideas, nil
}

func buildIdeasPrompt(website *models.Website, count int) string {
	scrapedContext := ""
	if sd := website.ScrapedData; sd != nil {
		var faqLines []string
		for _, faq := range firstN(sd.FAQs, 3) {
			faqLines = append(faqLines, "Q: "+faq.Question)
		}
		scrapedContext = fmt.Sprintf(`
REAL-WORLD DATA FROM WEBSITE ANALYSIS:
- Key Topics Found: %s
- Common Questions: %s
- Recommended Topics: %s
- Primary SEO Keywords: %s
- Semantic Keywords: %s
- Content Gaps: %s
- Top FAQs Found: %s

Use this real-world data to generate article ideas that:
1. Address actual user questions and FAQs
2. Fill content gaps identified in the analysis
3. Target the primary and semantic keywords found
4. Cover recommended topics that will improve SEO
`,
			strings.Join(sd.KeyTopics, ", "),
			strings.Join(firstNStrings(sd.CommonQuestions, 5), ", "),
			strings.Join(sd.SEOInsights.RecommendedTopics, ", "),
			orNA(strings.Join(sd.SEOInsights.PrimaryKeywords, ", ")),
			orNA(strings.Join(firstNStrings(sd.SEOInsights.SemanticKeywords, 10), ", ")),
			orDefault(strings.Join(sd.SEOInsights.ContentGaps, ", "), "None identified"),
			strings.Join(faqLines, "\n"))
	}

	priority := ""
	if website.ScrapedData != nil {
		priority = "IMPORTANT: Prioritize ideas that answer the FAQs and common questions found on the website. This will significantly improve SEO rankings.\n\n"
	}

	return fmt.Sprintf(`You are an expert SEO content strategist. Generate %d compelling article ideas for a blog with the following context:

Website: %s
URL: %s
Target Keywords: %s
Tone: %s
Target Audience: %s
%s
For each article idea, provide:
1. A compelling, SEO-optimized headline that addresses real user questions
2. Confidence score (0-100) based on SEO potential and relevance to actual user needs
3. Primary keywords to target (3-5) - prioritize keywords from the real-world data
4. Estimated word count (1000-3000)
5. SEO score (0-100) based on keyword relevance, search intent, and alignment with user questions

%sReturn your response as a JSON object with an "ideas" array of objects with these exact fields: headline, confidence, keywords (array), estimatedWords, seoScore.`,
		count, website.Name, website.URL, strings.Join(website.Keywords, ", "),
		strOr(website.Tone, defaultTone), strOr(website.Audience, defaultAudience),
		scrapedContext, priority)
}

func strOr(s *string, fallback string) string {
	if s != nil && *s != "" {
		return *s
	}
	return fallback
}

func orNA(s string) string {
	return orDefault(s, "N/A")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func firstN(faqs []models.ScoredFAQ, n int) []models.ScoredFAQ {
	if len(faqs) > n {
		return faqs[:n]
	}
	return faqs
}

func firstNStrings(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
