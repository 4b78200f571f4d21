package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"agentsmith/internal/agent"
)

type knowledgeArgs struct {
	Query    string `json:"query" jsonschema:"required" jsonschema_description:"Search query for the knowledge base"`
	Category string `json:"category,omitempty" jsonschema:"enum=billing,enum=technical,enum=account,enum=general"`
}

type KnowledgeResults struct {
	Results  []string `json:"results"`
	Category string   `json:"category"`
}

var knowledgeCategories = []string{"billing", "technical", "account", "general"}

var knowledgeBase = map[string][]string{
	"billing": {
		"Billing cycles run monthly on the date you signed up",
		"You can update payment methods in Account Settings",
		"Refunds are processed within 5-7 business days",
	},
	"technical": {
		"Try clearing your browser cache and cookies",
		"Check if JavaScript is enabled in your browser",
		"Our system status page shows current uptime",
	},
	"account": {
		"Password resets are sent to your registered email",
		"You can update your profile in Account Settings",
		"Account deletion requests take 24-48 hours to process",
	},
	"general": {
		"Our support hours are 9 AM - 6 PM EST, Monday-Friday",
		"Premium users get priority support response",
		"You can reach us via chat, email, or phone",
	},
}

const maxKnowledgeResults = 3

// searchKnowledgeBase returns up to three entries containing the query
// (case-insensitive). Without a category every category is searched.
func searchKnowledgeBase(_ context.Context, a knowledgeArgs) (KnowledgeResults, error) {
	var pool []string
	if a.Category != "" {
		pool = knowledgeBase[a.Category]
	} else {
		for _, c := range knowledgeCategories {
			pool = append(pool, knowledgeBase[c]...)
		}
	}

	query := strings.ToLower(a.Query)
	results := []string{}
	for _, entry := range pool {
		if len(results) == maxKnowledgeResults {
			break
		}
		if strings.Contains(strings.ToLower(entry), query) {
			results = append(results, entry)
		}
	}

	category := a.Category
	if category == "" {
		category = "general"
	}
	return KnowledgeResults{Results: results, Category: category}, nil
}

type ticketArgs struct {
	Title       string `json:"title" jsonschema:"required" jsonschema_description:"Brief title for the ticket"`
	Description string `json:"description" jsonschema:"required" jsonschema_description:"Detailed description of the issue"`
	Priority    string `json:"priority" jsonschema:"required,enum=low,enum=medium,enum=high,enum=urgent"`
	Category    string `json:"category" jsonschema:"required,enum=billing,enum=technical,enum=account,enum=feature_request"`
}

type Ticket struct {
	TicketID          string `json:"ticketId"`
	Status            string `json:"status"`
	EstimatedResponse string `json:"estimatedResponse"`
	Message           string `json:"message"`
}

func estimatedResponse(priority string) string {
	switch priority {
	case "urgent":
		return "1 hour"
	case "high":
		return "4 hours"
	default:
		return "24 hours"
	}
}

func createTicket(now func() time.Time) func(context.Context, ticketArgs) (Ticket, error) {
	return func(_ context.Context, a ticketArgs) (Ticket, error) {
		id := fmt.Sprintf("TICK-%d", now().UnixMilli())
		return Ticket{
			TicketID:          id,
			Status:            "created",
			EstimatedResponse: estimatedResponse(a.Priority),
			Message:           fmt.Sprintf("Ticket %s has been created. You'll receive updates via email.", id),
		}, nil
	}
}

func newSearchKnowledgeBase() agent.Tool {
	return agent.MustTool(SearchKnowledgeBase, "Search the company knowledge base for answers", searchKnowledgeBase)
}

func newCreateTicket(now func() time.Time) agent.Tool {
	return agent.MustTool(CreateTicket, "Create a support ticket for complex issues", createTicket(now))
}
