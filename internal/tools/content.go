package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agentsmith/internal/agent"
)

type researchArgs struct {
	Topic          string `json:"topic" jsonschema:"required" jsonschema_description:"Topic to research"`
	ContentType    string `json:"contentType" jsonschema:"required,enum=blog,enum=article,enum=social,enum=email,enum=landing"`
	TargetAudience string `json:"targetAudience" jsonschema:"required" jsonschema_description:"Target audience for the content"`
}

type Research struct {
	KeyPoints          []string       `json:"keyPoints"`
	Statistics         []string       `json:"statistics"`
	CompetitorAnalysis []string       `json:"competitorAnalysis"`
	SEOKeywords        []string       `json:"seoKeywords"`
	WebResults         []SearchResult `json:"webResults,omitempty"`
}

const researchWebResults = 3

func researchTopic(searcher Searcher) func(context.Context, researchArgs) (Research, error) {
	return func(ctx context.Context, a researchArgs) (Research, error) {
		topic, audience := a.Topic, a.TargetAudience
		r := Research{
			KeyPoints: []string{
				fmt.Sprintf("%s is trending in %s communities", topic, audience),
				fmt.Sprintf("Recent studies show increased interest in %s", topic),
				fmt.Sprintf("Best practices for %s have evolved significantly", topic),
				"Common challenges include implementation and adoption",
			},
			Statistics: []string{
				fmt.Sprintf("85%% of %s consider %s important", audience, topic),
				fmt.Sprintf("Market size for %s solutions: $2.3B", topic),
				"Average ROI improvement: 40%",
			},
			CompetitorAnalysis: []string{
				"Most content focuses on basic concepts",
				"Gap in advanced implementation guides",
				"Opportunity for practical case studies",
			},
			SEOKeywords: []string{
				strings.ToLower(topic),
				topic + " guide",
				topic + " best practices",
				fmt.Sprintf("%s for %s", topic, strings.ToLower(audience)),
			},
		}

		if searcher != nil {
			results, err := searcher.Search(ctx, topic, researchWebResults)
			if err != nil {
				slog.Warn("tools: research web search failed", "topic", topic, "error", err)
			} else {
				r.WebResults = results
			}
		}
		return r, nil
	}
}

type outlineArgs struct {
	Topic       string  `json:"topic" jsonschema:"required" jsonschema_description:"Main topic"`
	ContentType string  `json:"contentType" jsonschema:"required,enum=blog,enum=article,enum=social,enum=email,enum=landing"`
	WordCount   float64 `json:"wordCount" jsonschema:"required" jsonschema_description:"Target word count"`
	Tone        string  `json:"tone" jsonschema:"required,enum=professional,enum=casual,enum=technical,enum=conversational"`
}

type Outline struct {
	Structure         []string `json:"structure"`
	EstimatedSections int      `json:"estimatedSections"`
	WordsPerSection   int      `json:"wordsPerSection"`
}

// Content types without a dedicated structure use the blog one.
var outlineStructures = map[string][]string{
	"blog": {
		"Hook/Opening Question",
		"Problem Statement",
		"Solution Overview",
		"Detailed Steps/Methods",
		"Real-world Examples",
		"Common Pitfalls",
		"Conclusion & CTA",
	},
	"article": {
		"Executive Summary",
		"Introduction",
		"Background/Context",
		"Main Analysis",
		"Case Studies",
		"Future Implications",
		"Conclusion",
	},
	"landing": {
		"Hero Section",
		"Problem/Pain Points",
		"Solution Benefits",
		"Social Proof",
		"Features Overview",
		"Pricing/CTA",
		"FAQ",
	},
}

func generateOutline(_ context.Context, a outlineArgs) (Outline, error) {
	structure, ok := outlineStructures[a.ContentType]
	if !ok {
		structure = outlineStructures["blog"]
	}
	sections := len(structure)
	return Outline{
		Structure:         append([]string(nil), structure...),
		EstimatedSections: sections,
		WordsPerSection:   int(jsRound(a.WordCount / float64(sections))),
	}, nil
}

type seoArgs struct {
	Content           string   `json:"content" jsonschema:"required" jsonschema_description:"Content to optimize"`
	PrimaryKeyword    string   `json:"primaryKeyword" jsonschema:"required" jsonschema_description:"Primary SEO keyword"`
	SecondaryKeywords []string `json:"secondaryKeywords" jsonschema:"required" jsonschema_description:"Secondary keywords"`
}

type KeywordDensity struct {
	Keyword string  `json:"keyword"`
	Density float64 `json:"density"`
}

type SEOAnalysis struct {
	KeywordDensity struct {
		Primary   float64          `json:"primary"`
		Secondary []KeywordDensity `json:"secondary"`
	} `json:"keywordDensity"`
	Recommendations []string `json:"recommendations"`
	SEOScore        int      `json:"seoScore"`
	Improvements    []string `json:"improvements"`
}

// keywordDensity is occurrences of keyword per space-separated word, as a
// percentage with two decimals. Matching is case-insensitive.
func keywordDensity(content, keyword string) float64 {
	if keyword == "" {
		return 0
	}
	occurrences := strings.Count(strings.ToLower(content), strings.ToLower(keyword))
	words := len(strings.Split(content, " "))
	return jsRound(float64(occurrences)/float64(words)*100*100) / 100
}

func optimizeForSEO(_ context.Context, a seoArgs) (SEOAnalysis, error) {
	var out SEOAnalysis
	out.KeywordDensity.Primary = keywordDensity(a.Content, a.PrimaryKeyword)
	out.KeywordDensity.Secondary = make([]KeywordDensity, 0, len(a.SecondaryKeywords))
	for _, kw := range a.SecondaryKeywords {
		out.KeywordDensity.Secondary = append(out.KeywordDensity.Secondary, KeywordDensity{
			Keyword: kw,
			Density: keywordDensity(a.Content, kw),
		})
	}
	out.Recommendations = []string{
		"Add primary keyword to title and first paragraph",
		"Include secondary keywords naturally throughout",
		"Add meta description with primary keyword",
		"Use header tags (H1, H2, H3) with keywords",
		"Include internal and external links",
		"Optimize images with alt text",
	}
	out.SEOScore = 75
	out.Improvements = []string{
		"Increase keyword density to 1-2%",
		"Add more semantic keywords",
		"Improve readability score",
	}
	return out, nil
}

func newResearchTopic(searcher Searcher) agent.Tool {
	return agent.MustTool(ResearchTopic, "Research a topic for content creation", researchTopic(searcher))
}

func newGenerateOutline() agent.Tool {
	return agent.MustTool(GenerateOutline, "Generate a content outline based on research", generateOutline)
}

func newOptimizeForSEO() agent.Tool {
	return agent.MustTool(OptimizeForSEO, "Optimize content for search engines", optimizeForSEO)
}
