package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"blogforge/internal/models"
)

type fakeAI struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeAI) CompleteJSON(ctx context.Context, system, prompt string, temperature float64) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeAI) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("not supported")
}

func samplePages() []models.ScrapedPage {
	return []models.ScrapedPage{
		{
			Title:      "Acme Widgets",
			Headings:   []string{"Welcome", "Features", "Pricing"},
			Paragraphs: []string{"Widgets for professionals, built to last."},
			Links:      []models.Link{{Text: "Home", Href: "https://acme.example/home"}},
			CTACandidates: []models.Link{
				{Text: "Get Started", Href: "/start"},
			},
			FAQSections: []models.FAQ{
				{Question: "What is a widget?", Answer: "A small tool."},
			},
			FullText: "Acme Widgets\n\nWidgets for professionals, built to last.",
		},
	}
}

func TestMergeFAQs(t *testing.T) {
	heuristic := []models.FAQ{
		{Question: "What is a widget?", Answer: "A small tool."},
		{Question: "How much?", Answer: "Ten dollars."},
		{Question: "what is a widget?", Answer: "A refined answer."},
	}
	fromModel := []models.ScoredFAQ{
		{Question: "WHAT IS A WIDGET?", Answer: "Model duplicate", RelevanceScore: 99},
		{Question: "Where do you ship?", Answer: "Everywhere.", RelevanceScore: 70},
	}

	merged := mergeFAQs(heuristic, fromModel)

	if len(merged) != 3 {
		t.Fatalf("got %d FAQs, want 3: %v", len(merged), merged)
	}
	// Duplicate heuristic question keeps its original position but the later
	// answer wins; the model duplicate is dropped entirely.
	if merged[0].Question != "what is a widget?" || merged[0].Answer != "A refined answer." {
		t.Errorf("merged[0] = %+v", merged[0])
	}
	if merged[0].RelevanceScore != 90 || merged[1].RelevanceScore != 90 {
		t.Errorf("heuristic FAQs should score 90, got %d and %d", merged[0].RelevanceScore, merged[1].RelevanceScore)
	}
	if merged[2].Question != "Where do you ship?" || merged[2].RelevanceScore != 70 {
		t.Errorf("merged[2] = %+v", merged[2])
	}
}

func TestMergeFAQsCap(t *testing.T) {
	var heuristic []models.FAQ
	for i := 0; i < 25; i++ {
		heuristic = append(heuristic, models.FAQ{
			Question: fmt.Sprintf("Question %d?", i),
			Answer:   "Answer.",
		})
	}
	merged := mergeFAQs(heuristic, nil)
	if len(merged) != 20 {
		t.Errorf("got %d FAQs, want capped at 20", len(merged))
	}
}

func TestMergeFAQsSortsByRelevanceDescending(t *testing.T) {
	fromModel := []models.ScoredFAQ{
		{Question: "Low?", Answer: "a", RelevanceScore: 40},
		{Question: "High?", Answer: "b", RelevanceScore: 95},
		{Question: "Mid?", Answer: "c", RelevanceScore: 60},
	}
	merged := mergeFAQs(nil, fromModel)
	for i := 1; i < len(merged); i++ {
		if merged[i].RelevanceScore > merged[i-1].RelevanceScore {
			t.Fatalf("not sorted descending: %v", merged)
		}
	}
}

func TestResolveCTA(t *testing.T) {
	base := "https://acme.example"

	tests := []struct {
		name       string
		fromModel  *models.CTA
		candidates []models.Link
		wantText   string
		wantURL    string
	}{
		{
			name:      "relative model URL is absolutized",
			fromModel: &models.CTA{Text: "Sign Up", URL: "/signup"},
			wantText:  "Sign Up",
			wantURL:   "https://acme.example/signup",
		},
		{
			name:      "absolute model URL passes through",
			fromModel: &models.CTA{Text: "Sign Up", URL: "https://acme.example/signup"},
			wantText:  "Sign Up",
			wantURL:   "https://acme.example/signup",
		},
		{
			name:       "no model CTA falls back to first candidate",
			candidates: []models.Link{{Text: "Get Started", Href: "/start"}, {Text: "More", Href: "/more"}},
			wantText:   "Get Started",
			wantURL:    "https://acme.example/start",
		},
		{
			name:     "nothing available yields generic CTA at origin",
			wantText: "Learn More",
			wantURL:  "https://acme.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cta := resolveCTA(tt.fromModel, tt.candidates, base, base)
			if cta == nil {
				t.Fatal("got nil CTA")
			}
			if cta.Text != tt.wantText || cta.URL != tt.wantURL {
				t.Errorf("got %+v, want {%s %s}", cta, tt.wantText, tt.wantURL)
			}
		})
	}
}

func TestResolveURLIdempotent(t *testing.T) {
	base := "https://acme.example"
	once := resolveURL(base, "/signup")
	twice := resolveURL(base, once)
	if once != twice {
		t.Errorf("resolution not idempotent: %q vs %q", once, twice)
	}
}

func TestAnalyzeDegradesOnModelFailure(t *testing.T) {
	a := NewContentAnalyzer(&fakeAI{err: fmt.Errorf("model unavailable")})

	result := a.Analyze(context.Background(), samplePages(), "https://acme.example")

	if result.Summary != "Content analysis unavailable" {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.FAQs) != 1 || result.FAQs[0].RelevanceScore != 80 {
		t.Errorf("degraded FAQs = %v", result.FAQs)
	}
	if len(result.KeyTopics) != 3 {
		t.Errorf("degraded keyTopics = %v, want the page headings", result.KeyTopics)
	}
	if result.CTA == nil || result.CTA.URL != "https://acme.example/start" {
		t.Errorf("degraded CTA = %+v", result.CTA)
	}
	if result.SEOInsights.PrimaryKeywords == nil || result.CommonQuestions == nil {
		t.Error("degraded output must use empty slices, not nil")
	}
}

func TestAnalyzeDegradesOnUnparsableResponse(t *testing.T) {
	a := NewContentAnalyzer(&fakeAI{response: "this is not json"})
	result := a.Analyze(context.Background(), samplePages(), "https://acme.example")
	if result.Summary != "Content analysis unavailable" {
		t.Errorf("summary = %q, want degraded output", result.Summary)
	}
}

func TestAnalyzeMergesModelOutput(t *testing.T) {
	fake := &fakeAI{response: `{
		"faqs": [{"question": "Where do you ship?", "answer": "Everywhere.", "relevanceScore": 75}],
		"keyTopics": ["widgets"],
		"commonQuestions": ["how do widgets work"],
		"contentThemes": ["tools"],
		"seoInsights": {
			"primaryKeywords": ["widget"],
			"semanticKeywords": ["gadget"],
			"contentGaps": [],
			"recommendedTopics": ["widget care"]
		},
		"summary": "Acme sells widgets.",
		"cta": {"text": "Get Started", "url": "/start"}
	}`}
	a := NewContentAnalyzer(fake)

	result := a.Analyze(context.Background(), samplePages(), "https://acme.example")

	if result.Summary != "Acme sells widgets." {
		t.Errorf("summary = %q", result.Summary)
	}
	if len(result.FAQs) != 2 {
		t.Fatalf("FAQs = %v, want heuristic + model", result.FAQs)
	}
	if result.FAQs[0].Question != "What is a widget?" || result.FAQs[0].RelevanceScore != 90 {
		t.Errorf("heuristic FAQ should rank first at 90: %+v", result.FAQs[0])
	}
	if result.CTA == nil || result.CTA.URL != "https://acme.example/start" {
		t.Errorf("CTA = %+v, want absolutized /start", result.CTA)
	}
}

func TestAnalyzePromptTruncation(t *testing.T) {
	fake := &fakeAI{err: fmt.Errorf("force degraded, prompt is still recorded")}
	a := NewContentAnalyzer(fake)

	pages := []models.ScrapedPage{{FullText: strings.Repeat("Z", promptTextBudget+500)}}
	a.Analyze(context.Background(), pages, "https://acme.example")

	if len(fake.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(fake.prompts))
	}
	if !strings.Contains(fake.prompts[0], " ... (truncated)") {
		t.Error("oversized content should carry the truncation marker")
	}
	if strings.Count(fake.prompts[0], "Z") > promptTextBudget {
		t.Error("content was not truncated to the budget")
	}
}
