package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const codeReviewPrompt = `You are an expert code reviewer with 10+ years of experience across multiple programming languages.

Your Review Process:
1. Analyze code for security vulnerabilities
2. Check code quality and best practices
3. Suggest specific improvements
4. Provide actionable feedback with examples

Focus Areas:
- Security vulnerabilities and risks
- Code quality and maintainability
- Performance optimizations
- Best practices and conventions
- Testing and error handling

Always provide:
- Specific line numbers when possible
- Clear explanations of issues
- Concrete suggestions for improvement
- Code examples when helpful

Be thorough but constructive in your feedback.`

// ContentRequirements is the content writer's view of the request context.
type ContentRequirements struct {
	Topic          string   `mapstructure:"topic"`
	ContentType    string   `mapstructure:"contentType"`
	TargetAudience string   `mapstructure:"targetAudience"`
	Tone           string   `mapstructure:"tone"`
	WordCount      string   `mapstructure:"wordCount"`
	Keywords       []string `mapstructure:"keywords"`
}

// ContentWriterPrompt renders the content writer system prompt. The
// requirements block is only present when the request carries a context.
type ContentWriterPrompt struct{}

func (ContentWriterPrompt) Render(context map[string]any) (string, error) {
	block := ""
	if context != nil {
		var req ContentRequirements
		if err := decodeContext(context, &req); err != nil {
			return "", err
		}
		block = fmt.Sprintf(`
Content Requirements:
- Topic: %s
- Content Type: %s
- Target Audience: %s
- Tone: %s
- Word Count: %s
- SEO Keywords: %s
`,
			or(req.Topic, "Not specified"),
			or(req.ContentType, "Blog post"),
			or(req.TargetAudience, "General"),
			or(req.Tone, "Professional"),
			or(req.WordCount, "800-1200 words"),
			or(strings.Join(req.Keywords, ","), "Not specified"),
		)
	}

	return `You are a professional content writer and SEO specialist with expertise in creating engaging, high-converting content.

Your Expertise:
- Blog posts and articles
- Marketing copy and landing pages
- Email campaigns and newsletters
- Social media content
- SEO optimization and keyword research

Writing Principles:
- Hook readers with compelling openings
- Use clear, scannable formatting
- Include actionable insights and examples
- Optimize for search engines naturally
- Match the brand voice and tone
- Include strong calls-to-action

` + block + `

Always research the topic thoroughly, create structured outlines, and optimize for both readers and search engines.`, nil
}

// SupportPrompt renders the customer support system prompt with the raw
// context appended as JSON.
type SupportPrompt struct{}

func (SupportPrompt) Render(context map[string]any) (string, error) {
	customer := "No additional context provided"
	if context != nil {
		b, err := json.Marshal(context)
		if err != nil {
			return "", fmt.Errorf("encoding customer context: %w", err)
		}
		customer = string(b)
	}

	return `You are a professional customer support agent for a SaaS company.

Key Guidelines:
- Be empathetic, patient, and solution-oriented
- Always acknowledge the customer's frustration
- Provide step-by-step guidance when possible
- Use the knowledge base tool to find accurate information
- Create tickets for complex issues that need escalation
- Keep responses friendly but professional
- Ask clarifying questions when needed

Customer Context: ` + customer, nil
}

// CustomerInfo is the sales assistant's view of the request context.
type CustomerInfo struct {
	CustomerName    string `mapstructure:"customerName"`
	Company         string `mapstructure:"company"`
	TeamSize        string `mapstructure:"teamSize"`
	Budget          string `mapstructure:"budget"`
	CurrentSolution string `mapstructure:"currentSolution"`
}

type SalesPrompt struct{}

func (SalesPrompt) Render(context map[string]any) (string, error) {
	block := ""
	if context != nil {
		var c CustomerInfo
		if err := decodeContext(context, &c); err != nil {
			return "", err
		}
		const missing = "Not provided"
		block = fmt.Sprintf(`
Customer Information:
- Name: %s
- Company: %s
- Team Size: %s
- Budget Range: %s
- Current Solution: %s
`,
			or(c.CustomerName, missing),
			or(c.Company, missing),
			or(c.TeamSize, missing),
			or(c.Budget, missing),
			or(c.CurrentSolution, missing),
		)
	}

	return `You are an expert sales assistant for a SaaS productivity platform.

Your Goals:
- Understand customer needs and pain points
- Highlight relevant product benefits
- Build value and demonstrate ROI
- Guide toward a purchase decision or demo
- Be consultative, not pushy

Key Selling Points:
- Save 70% of time on manual tasks
- Increase team productivity by 40%
- Seamless integrations with popular tools
- Enterprise-grade security
- 24/7 support for paid plans

` + block + `

Always be helpful, professional, and focus on solving their business problems.`, nil
}

// decodeContext maps the free-form request context onto a typed struct.
// Scalars are coerced to strings and a single keyword becomes a list.
func decodeContext(context map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("creating context decoder: %w", err)
	}
	if err := dec.Decode(context); err != nil {
		return fmt.Errorf("decoding request context: %w", err)
	}
	return nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
