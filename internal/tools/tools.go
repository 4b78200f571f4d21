// Package tools holds the built-in tool executors offered to agents. Bodies
// are deterministic heuristics over their arguments. Only webSearch,
// researchTopic and fetchPage reach the network.
package tools

import (
	"fmt"
	"math"
	"time"

	"agentsmith/internal/agent"
)

// Tool names. The model sees these verbatim.
const (
	AnalyzeCodeSecurity = "analyzeCodeSecurity"
	CheckCodeQuality    = "checkCodeQuality"
	SuggestImprovements = "suggestImprovements"
	ResearchTopic       = "researchTopic"
	GenerateOutline     = "generateOutline"
	OptimizeForSEO      = "optimizeForSEO"
	SearchKnowledgeBase = "searchKnowledgeBase"
	CreateTicket        = "createTicket"
	GetProductInfo      = "getProductInfo"
	CalculateROI        = "calculateROI"
	ScheduleDemo        = "scheduleDemo"
	WebSearch           = "webSearch"
	FetchPage           = "fetchPage"
)

type Options struct {
	// Now stamps ticket and demo ids. Defaults to time.Now.
	Now func() time.Time
	// Searcher enables live results in researchTopic and registers webSearch.
	Searcher Searcher
}

// NewRegistry returns a registry holding every built-in tool.
func NewRegistry(opts Options) (*agent.Registry, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	r := agent.NewRegistry()
	all := []agent.Tool{
		newAnalyzeCodeSecurity(),
		newCheckCodeQuality(),
		newSuggestImprovements(),
		newResearchTopic(opts.Searcher),
		newGenerateOutline(),
		newOptimizeForSEO(),
		newSearchKnowledgeBase(),
		newCreateTicket(opts.Now),
		newGetProductInfo(),
		newCalculateROI(),
		newScheduleDemo(opts.Now),
		newFetchPage(nil),
	}
	if opts.Searcher != nil {
		all = append(all, newWebSearch(opts.Searcher))
	}
	for _, t := range all {
		if err := r.Register(t); err != nil {
			return nil, fmt.Errorf("registering built-in tools: %w", err)
		}
	}
	return r, nil
}

// jsRound rounds half up, matching the arithmetic the ROI and density
// figures were specified with.
func jsRound(x float64) float64 {
	return math.Floor(x + 0.5)
}
