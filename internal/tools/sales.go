package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"agentsmith/internal/agent"
)

type productArgs struct {
	Product string `json:"product,omitempty" jsonschema:"enum=starter,enum=professional,enum=enterprise"`
	Feature string `json:"feature,omitempty" jsonschema_description:"Specific feature to inquire about"`
}

type Product struct {
	Price    string   `json:"price"`
	Features []string `json:"features"`
	BestFor  string   `json:"bestFor"`
}

type ProductCatalog struct {
	Starter      Product `json:"starter"`
	Professional Product `json:"professional"`
	Enterprise   Product `json:"enterprise"`
}

type ProductOverview struct {
	AllProducts    ProductCatalog `json:"allProducts"`
	Recommendation string         `json:"recommendation"`
}

var products = ProductCatalog{
	Starter: Product{
		Price:    "$29/month",
		Features: []string{"Up to 5 users", "Basic analytics", "Email support", "10GB storage"},
		BestFor:  "Small teams and startups",
	},
	Professional: Product{
		Price:    "$99/month",
		Features: []string{"Up to 25 users", "Advanced analytics", "Priority support", "100GB storage", "API access"},
		BestFor:  "Growing businesses",
	},
	Enterprise: Product{
		Price:    "Custom pricing",
		Features: []string{"Unlimited users", "Custom integrations", "Dedicated support", "Unlimited storage", "SLA guarantee"},
		BestFor:  "Large organizations",
	},
}

func getProductInfo(_ context.Context, a productArgs) (any, error) {
	switch a.Product {
	case "starter":
		return products.Starter, nil
	case "professional":
		return products.Professional, nil
	case "enterprise":
		return products.Enterprise, nil
	}
	return ProductOverview{
		AllProducts:    products,
		Recommendation: "I can help you choose the right plan based on your needs!",
	}, nil
}

type roiArgs struct {
	CurrentCost float64 `json:"currentCost" jsonschema:"required" jsonschema_description:"Current monthly cost of their solution"`
	TeamSize    float64 `json:"teamSize" jsonschema:"required" jsonschema_description:"Number of team members"`
	TimeSpent   float64 `json:"timeSpent" jsonschema:"required" jsonschema_description:"Hours per week spent on manual tasks"`
}

type ROI struct {
	MonthlySavings    int    `json:"monthlySavings"`
	OurCost           int    `json:"ourCost"`
	NetMonthlySavings int    `json:"netMonthlySavings"`
	AnnualROI         int    `json:"annualROI"`
	PaybackPeriod     string `json:"paybackPeriod"`
}

const (
	hourlyRate        = 50
	timeSavingsFactor = 0.7
	weeksPerMonth     = 4
)

func planCost(teamSize float64) int {
	switch {
	case teamSize <= 5:
		return 29
	case teamSize <= 25:
		return 99
	default:
		return 299
	}
}

// calculateROI estimates savings from automating manual hours. When the plan
// costs at least as much as it saves, the payback period is "never".
func calculateROI(_ context.Context, a roiArgs) (ROI, error) {
	weeklySavings := a.TimeSpent * hourlyRate * timeSavingsFactor
	monthlySavings := weeklySavings * weeksPerMonth
	ourCost := planCost(a.TeamSize)
	netSavings := monthlySavings - float64(ourCost)
	roi := (netSavings * 12) / (float64(ourCost) * 12) * 100

	payback := "never"
	if netSavings > 0 {
		payback = fmt.Sprintf("%d months", int(math.Ceil(float64(ourCost)/netSavings)))
	}

	return ROI{
		MonthlySavings:    int(jsRound(monthlySavings)),
		OurCost:           ourCost,
		NetMonthlySavings: int(jsRound(netSavings)),
		AnnualROI:         int(jsRound(roi)),
		PaybackPeriod:     payback,
	}, nil
}

type demoArgs struct {
	PreferredTime     string `json:"preferredTime" jsonschema:"required" jsonschema_description:"Preferred time for the demo"`
	ContactInfo       string `json:"contactInfo" jsonschema:"required" jsonschema_description:"Email or phone number"`
	SpecificInterests string `json:"specificInterests,omitempty" jsonschema_description:"Specific features they want to see"`
}

type Demo struct {
	DemoID           string `json:"demoId"`
	ScheduledTime    string `json:"scheduledTime"`
	ConfirmationSent bool   `json:"confirmationSent"`
	DemoLink         string `json:"demoLink"`
	Message          string `json:"message"`
	Agenda           string `json:"agenda"`
}

func scheduleDemo(now func() time.Time) func(context.Context, demoArgs) (Demo, error) {
	return func(_ context.Context, a demoArgs) (Demo, error) {
		id := fmt.Sprintf("DEMO-%d", now().UnixMilli())
		agenda := "Standard product overview"
		if a.SpecificInterests != "" {
			agenda = "Custom demo focusing on: " + a.SpecificInterests
		}
		return Demo{
			DemoID:           id,
			ScheduledTime:    a.PreferredTime,
			ConfirmationSent: true,
			DemoLink:         "https://calendly.com/sales-demo/" + id,
			Message:          "Demo scheduled! You'll receive a calendar invite at " + a.ContactInfo,
			Agenda:           agenda,
		}, nil
	}
}

func newGetProductInfo() agent.Tool {
	return agent.MustTool(GetProductInfo, "Get detailed information about our products and pricing", getProductInfo)
}

func newCalculateROI() agent.Tool {
	return agent.MustTool(CalculateROI, "Calculate potential ROI and savings for the customer", calculateROI)
}

func newScheduleDemo(now func() time.Time) agent.Tool {
	return agent.MustTool(ScheduleDemo, "Schedule a product demo or sales call", scheduleDemo(now))
}
