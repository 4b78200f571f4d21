package tools

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"agentsmith/internal/agent"
)

type codeArgs struct {
	Code     string `json:"code" jsonschema:"required" jsonschema_description:"Code to analyze"`
	Language string `json:"language" jsonschema:"required" jsonschema_description:"Programming language"`
}

type Vulnerability struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Line        string `json:"line"`
	Description string `json:"description"`
}

type SecurityReport struct {
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	RiskLevel       string          `json:"riskLevel"`
	Recommendations []string        `json:"recommendations"`
	CommonRisks     []string        `json:"commonRisks,omitempty"`
}

var commonVulnerabilities = map[string][]string{
	"javascript": {"XSS vulnerabilities", "Prototype pollution", "Unsafe eval usage"},
	"python":     {"SQL injection", "Command injection", "Unsafe deserialization"},
	"java":       {"SQL injection", "Path traversal", "Unsafe reflection"},
	"php":        {"SQL injection", "XSS", "File inclusion vulnerabilities"},
}

func analyzeCodeSecurity(_ context.Context, a codeArgs) (SecurityReport, error) {
	issues := []Vulnerability{}

	if strings.Contains(a.Code, "eval(") || strings.Contains(a.Code, "exec(") {
		issues = append(issues, Vulnerability{
			Type:        "Code Injection",
			Severity:    "High",
			Line:        "Multiple locations",
			Description: "Avoid using eval() or exec() with user input",
		})
	}
	if strings.Contains(a.Code, "SELECT * FROM") && strings.Contains(a.Code, "+") {
		issues = append(issues, Vulnerability{
			Type:        "SQL Injection",
			Severity:    "Critical",
			Line:        "Database query",
			Description: "Use parameterized queries instead of string concatenation",
		})
	}

	risk := "Low"
	if len(issues) > 0 {
		risk = "Medium"
	}
	return SecurityReport{
		Vulnerabilities: issues,
		RiskLevel:       risk,
		Recommendations: []string{
			"Use parameterized queries for database operations",
			"Validate and sanitize all user inputs",
			"Implement proper error handling",
		},
		CommonRisks: commonVulnerabilities[strings.ToLower(strings.TrimSpace(a.Language))],
	}, nil
}

type QualityIssue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

type QualityReport struct {
	QualityScore int            `json:"qualityScore"`
	Issues       []QualityIssue `json:"issues"`
	Suggestions  []string       `json:"suggestions"`
}

var functionRe = regexp.MustCompile(`function|def |public |private `)

const maxLineLength = 120

func checkCodeQuality(_ context.Context, a codeArgs) (QualityReport, error) {
	issues := []QualityIssue{}
	score := 100

	for _, line := range strings.Split(a.Code, "\n") {
		if utf8.RuneCountInString(line) > maxLineLength {
			issues = append(issues, QualityIssue{
				Type:        "Line Length",
				Severity:    "Minor",
				Description: "Lines should be under 120 characters",
			})
			score -= 5
			break
		}
	}

	if !strings.Contains(a.Code, "//") && !strings.Contains(a.Code, "/*") && !strings.Contains(a.Code, "#") {
		issues = append(issues, QualityIssue{
			Type:        "Documentation",
			Severity:    "Medium",
			Description: "Add comments to explain complex logic",
		})
		score -= 15
	}

	if len(functionRe.FindAllStringIndex(a.Code, -1)) > 10 {
		issues = append(issues, QualityIssue{
			Type:        "Complexity",
			Severity:    "Medium",
			Description: "Consider breaking large files into smaller modules",
		})
		score -= 10
	}

	return QualityReport{
		QualityScore: max(score, 0),
		Issues:       issues,
		Suggestions: []string{
			"Add comprehensive comments and documentation",
			"Follow consistent naming conventions",
			"Break large functions into smaller, focused ones",
			"Add error handling and input validation",
		},
	}, nil
}

type improvementArgs struct {
	Code     string `json:"code" jsonschema:"required" jsonschema_description:"Code to improve"`
	Language string `json:"language" jsonschema:"required" jsonschema_description:"Programming language"`
	Focus    string `json:"focus,omitempty" jsonschema:"enum=performance,enum=readability,enum=maintainability,enum=all"`
}

type Improvement struct {
	Category    string   `json:"category"`
	Suggestions []string `json:"suggestions"`
}

type ImprovementPlan struct {
	Improvements        []Improvement `json:"improvements"`
	RefactoringPriority string        `json:"refactoringPriority"`
	EstimatedEffort     string        `json:"estimatedEffort"`
}

var improvementCatalog = []struct {
	focus string
	Improvement
}{
	{"performance", Improvement{Category: "Performance", Suggestions: []string{
		"Use efficient data structures (Map/Set instead of arrays for lookups)",
		"Implement caching for expensive operations",
		"Avoid nested loops where possible",
		"Use lazy loading for large datasets",
	}}},
	{"readability", Improvement{Category: "Readability", Suggestions: []string{
		"Use descriptive variable and function names",
		"Extract magic numbers into named constants",
		"Add JSDoc/docstring comments",
		"Use consistent indentation and formatting",
	}}},
	{"maintainability", Improvement{Category: "Maintainability", Suggestions: []string{
		"Follow SOLID principles",
		"Implement proper error handling",
		"Add unit tests for critical functions",
		"Use dependency injection for better testability",
	}}},
}

func suggestImprovements(_ context.Context, a improvementArgs) (ImprovementPlan, error) {
	focus := a.Focus
	if focus == "" {
		focus = "all"
	}

	improvements := []Improvement{}
	for _, entry := range improvementCatalog {
		if focus == entry.focus || focus == "all" {
			improvements = append(improvements, Improvement{
				Category:    entry.Category,
				Suggestions: append([]string(nil), entry.Suggestions...),
			})
		}
	}
	return ImprovementPlan{
		Improvements:        improvements,
		RefactoringPriority: "Medium",
		EstimatedEffort:     "2-4 hours",
	}, nil
}

func newAnalyzeCodeSecurity() agent.Tool {
	return agent.MustTool(AnalyzeCodeSecurity, "Analyze code for security vulnerabilities", analyzeCodeSecurity)
}

func newCheckCodeQuality() agent.Tool {
	return agent.MustTool(CheckCodeQuality, "Analyze code quality and best practices", checkCodeQuality)
}

func newSuggestImprovements() agent.Tool {
	return agent.MustTool(SuggestImprovements, "Suggest specific code improvements and refactoring", suggestImprovements)
}
