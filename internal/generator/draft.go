package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"blogforge/internal/ai"
	"blogforge/internal/models"
)

const (
	draftSystemPrompt = "You are an expert SEO content writer who creates comprehensive, engaging blog posts optimized for search engines. Always respond with valid JSON."

	// defaultKeywordDensity protects the numeric column from whatever the
	// model put in the keywordDensity field.
	defaultKeywordDensity   = 2.5
	defaultReadabilityScore = 75

	maxRelevantFAQs = 5
)

type GeneratedDraft struct {
	Title            string
	Content          string
	Excerpt          string
	WordCount        int
	ReadabilityScore int
	KeywordDensity   float64
	Frontmatter      map[string]any
	ImageURL         string
}

type DraftGenerator struct {
	ai ai.Client
}

func NewDraftGenerator(client ai.Client) *DraftGenerator {
	return &DraftGenerator{ai: client}
}

// Generate produces full MDX article content for an approved headline, then
// makes a best-effort image generation call. Image failures leave the draft
// without an image; they never fail the draft.
func (g *DraftGenerator) Generate(ctx context.Context, headline string, website *models.Website, keywords []string, estimatedWords int) (*GeneratedDraft, error) {
	prompt := buildDraftPrompt(headline, website, keywords, estimatedWords)

	log.Printf("[generator] generating draft for headline %q", headline)
	raw, err := g.ai.CompleteJSON(ctx, draftSystemPrompt, prompt, 0.7)
	if err != nil {
		return nil, fmt.Errorf("generating draft: %w", err)
	}

	var parsed struct {
		Title            string         `json:"title"`
		Content          string         `json:"content"`
		Excerpt          string         `json:"excerpt"`
		Frontmatter      map[string]any `json:"frontmatter"`
		ReadabilityScore int            `json:"readabilityScore"`
		KeywordDensity   any            `json:"keywordDensity"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing draft response: %w", err)
	}
	if parsed.Content == "" {
		return nil, fmt.Errorf("no content generated by model")
	}

	title := parsed.Title
	if title == "" {
		title = headline
	}
	readability := parsed.ReadabilityScore
	if readability == 0 {
		readability = defaultReadabilityScore
	}

	frontmatter := parsed.Frontmatter
	if frontmatter == nil {
		frontmatter = map[string]any{
			"title":       title,
			"description": parsed.Excerpt,
			"date":        time.Now().UTC().Format(time.RFC3339),
			"keywords":    keywords,
			"author":      "AI Content Generator",
		}
	}

	draft := &GeneratedDraft{
		Title:            title,
		Content:          parsed.Content,
		Excerpt:          parsed.Excerpt,
		WordCount:        len(strings.Fields(parsed.Content)), // never trusted from the model
		ReadabilityScore: readability,
		KeywordDensity:   SanitizeKeywordDensity(parsed.KeywordDensity),
		Frontmatter:      frontmatter,
	}

	imageURL, err := g.ai.GenerateImage(ctx, buildImagePrompt(headline, keywords))
	if err != nil {
		log.Printf("[generator] image generation failed for %q, continuing without image: %v", headline, err)
	} else {
		draft.ImageURL = imageURL
		frontmatter["image"] = imageURL
		frontmatter["imageUrl"] = imageURL
	}

	return draft, nil
}

// SanitizeKeywordDensity coerces whatever the model returned into a finite
// float, accepting "3.5%"-style strings and defaulting on anything invalid.
func SanitizeKeywordDensity(v any) float64 {
	density := defaultKeywordDensity
	switch value := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%")), 64)
		if err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			density = parsed
		}
	case float64:
		if !math.IsNaN(value) && !math.IsInf(value, 0) {
			density = value
		}
	case json.Number:
		if parsed, err := value.Float64(); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
			density = parsed
		}
	}
	if math.IsNaN(density) || math.IsInf(density, 0) {
		density = defaultKeywordDensity
	}
	return density
}

func buildDraftPrompt(headline string, website *models.Website, keywords []string, estimatedWords int) string {
	scrapedContext := ""
	if sd := website.ScrapedData; sd != nil {
		relevant := relevantFAQs(headline, sd.FAQs)
		var faqLines []string
		for _, faq := range relevant {
			faqLines = append(faqLines, fmt.Sprintf("Q: %s\nA: %s", faq.Question, faq.Answer))
		}
		scrapedContext = fmt.Sprintf(`
REAL-WORLD DATA TO INCORPORATE:
- Relevant FAQs to address: %s
- Key Topics: %s
- SEO Insights: %s

CRITICAL: Naturally incorporate answers to the relevant FAQs into your content. This real-world data will significantly improve SEO and user engagement.
`,
			strings.Join(faqLines, "\n\n"),
			orNA(strings.Join(sd.KeyTopics, ", ")),
			orNA(strings.Join(sd.SEOInsights.PrimaryKeywords, ", ")))
	}

	hasCTA := website.CTAText != nil && *website.CTAText != "" && website.CTAURL != nil && *website.CTAURL != ""
	var ctaInstruction, ctaRequirement string
	if hasCTA {
		ctaInstruction = fmt.Sprintf(`
CALL-TO-ACTION REQUIREMENT:
- CTA Text: %q
- CTA URL: %s
- IMPORTANT: You MUST conclude the article with a call-to-action section that includes a link using the exact CTA text and URL provided above.
- Format the CTA as a prominent button or link at the end of the article.
- Example format: [%s](%s) or use MDX button component if available.
`, *website.CTAText, *website.CTAURL, *website.CTAText, *website.CTAURL)
		ctaRequirement = fmt.Sprintf("MUST include the specified CTA at the end: %q linking to %s", *website.CTAText, *website.CTAURL)
	} else {
		ctaInstruction = `
CALL-TO-ACTION REQUIREMENT:
- Conclude the article with a clear, compelling call-to-action that encourages readers to engage further.
- If no specific CTA is provided, create an appropriate CTA based on the article topic and website context.
`
		ctaRequirement = "Conclude with a clear, compelling call-to-action"
	}

	return fmt.Sprintf(`You are an expert SEO content writer. Write a comprehensive, SEO-optimized blog post with the following specifications:

Headline: %s
Website: %s
Target Keywords: %s
Additional Context Keywords: %s
Target Word Count: %d
Tone: %s
Audience: %s
%s%s

Requirements:
1. Write in MDX format (Markdown with optional JSX)
2. Include proper frontmatter with: title, description, date, keywords, author
3. Use headers (H2, H3) for structure
4. Naturally incorporate target keywords (aim for 2-3%% density)
5. Write clear, engaging content optimized for readability
6. Include a compelling meta description (150-160 characters)
7. Add practical examples and actionable advice
8. %s

Return your response as JSON with these fields:
- title: The article title
- content: The full MDX content (without frontmatter)
- frontmatter: Object with metadata
- excerpt: A 2-3 sentence summary
- readabilityScore: 0-100 based on clarity
- keywordDensity: percentage of keyword usage`,
		headline, website.Name, strings.Join(keywords, ", "), strings.Join(website.Keywords, ", "),
		estimatedWords, strOr(website.Tone, defaultTone), strOr(website.Audience, defaultAudience),
		scrapedContext, ctaInstruction, ctaRequirement)
}

// relevantFAQs picks cached FAQs whose question shares a leading word with
// the headline, capped at maxRelevantFAQs. Deliberately crude: the model does
// the real relevance work, this just trims the prompt.
func relevantFAQs(headline string, faqs []models.ScoredFAQ) []models.ScoredFAQ {
	headlineLower := strings.ToLower(headline)
	headlineFirst := firstWord(headlineLower)

	var relevant []models.ScoredFAQ
	for _, faq := range faqs {
		questionLower := strings.ToLower(faq.Question)
		if strings.Contains(headlineLower, firstWord(questionLower)) ||
			strings.Contains(questionLower, headlineFirst) {
			relevant = append(relevant, faq)
			if len(relevant) == maxRelevantFAQs {
				break
			}
		}
	}
	return relevant
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return s
}

func buildImagePrompt(headline string, keywords []string) string {
	return fmt.Sprintf(`A professional, high-quality, modern illustration or photograph related to: %s.
Keywords: %s.
Style: Clean, modern, suitable for a blog article header image.
Aspect ratio: 16:9 landscape format.
No text overlays.`, headline, strings.Join(firstNStrings(keywords, 3), ", "))
}
