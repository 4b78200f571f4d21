package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"agentsmith/internal/agent"

	bravesearch "github.com/cnosuke/go-brave-search"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Searcher runs a web search.
type Searcher interface {
	Search(ctx context.Context, query string, count int) ([]SearchResult, error)
}

// BraveSearcher queries the Brave Search API.
type BraveSearcher struct {
	brave *bravesearch.Client
}

func NewBraveSearcher(apiKey string) (*BraveSearcher, error) {
	client, err := bravesearch.NewClient(apiKey)
	if err != nil {
		return nil, fmt.Errorf("brave search client: %w", err)
	}
	return &BraveSearcher{brave: client}, nil
}

const maxSearchResults = 20

func (b *BraveSearcher) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if count <= 0 {
		count = 5
	}
	count = min(count, maxSearchResults)

	slog.Debug("tools: web search", "query", query, "count", count)

	resp, err := b.brave.WebSearch(ctx, query, &bravesearch.WebSearchParams{
		Count: count,
	})
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}

	results := []SearchResult{}
	for _, r := range resp.GetWebResults() {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	slog.Debug("tools: web search done", "query", query, "results", len(results))
	return results, nil
}

type webSearchArgs struct {
	Query string `json:"query" jsonschema:"required" jsonschema_description:"Search query"`
	Count int    `json:"count,omitempty" jsonschema_description:"Number of results to return (default 5, max 20)"`
}

type WebSearchResults struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

func newWebSearch(searcher Searcher) agent.Tool {
	return agent.MustTool(WebSearch, "Search the web for current information",
		func(ctx context.Context, a webSearchArgs) (WebSearchResults, error) {
			if strings.TrimSpace(a.Query) == "" {
				return WebSearchResults{}, fmt.Errorf("query must not be empty")
			}
			results, err := searcher.Search(ctx, a.Query, a.Count)
			if err != nil {
				return WebSearchResults{}, err
			}
			return WebSearchResults{Query: a.Query, Results: results}, nil
		})
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

const (
	maxFetchBody   = 100 * 1024
	maxFetchOutput = 10_000
)

type fetchArgs struct {
	URL string `json:"url" jsonschema:"required" jsonschema_description:"http or https URL to fetch"`
}

type Page struct {
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated,omitempty"`
}

func fetchPage(client *http.Client) func(context.Context, fetchArgs) (Page, error) {
	return func(ctx context.Context, a fetchArgs) (Page, error) {
		u, err := url.Parse(a.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Page{}, fmt.Errorf("url must be an absolute http or https URL")
		}

		slog.Debug("tools: fetching page", "url", a.URL)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
		if err != nil {
			return Page{}, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("User-Agent", "agentsmith/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return Page{}, fmt.Errorf("fetching url: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return Page{}, fmt.Errorf("HTTP %s", resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
		if err != nil {
			return Page{}, fmt.Errorf("reading response: %w", err)
		}

		text := htmlTagRe.ReplaceAllString(string(body), " ")
		text = strings.Join(strings.Fields(text), " ")

		page := Page{URL: a.URL, Status: resp.StatusCode, Text: text}
		if len(text) > maxFetchOutput {
			page.Text = truncateUTF8(text, maxFetchOutput)
			page.Truncated = true
		}
		slog.Debug("tools: fetch done", "url", a.URL, "bytes", len(text))
		return page, nil
	}
}

func newFetchPage(client *http.Client) agent.Tool {
	if client == nil {
		client = publicClient()
	}
	return agent.MustTool(FetchPage, "Fetch a web page and return its text content", fetchPage(client))
}

const maxFetchRedirects = 5

var errBlockedAddress = errors.New("destination address is not publicly routable")

// publicClient only connects to public unicast addresses. The check runs on
// the resolved IP of every dial, redirects included.
func publicClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 10 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			return checkPublicAddr(address)
		},
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 20 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(transport),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxFetchRedirects {
				return fmt.Errorf("stopped after %d redirects", maxFetchRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
			}
			return nil
		},
	}
}

func checkPublicAddr(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, host)
	}
	ip = ip.Unmap()
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || sharedAddressSpace.Contains(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

// RFC 6598 carrier-grade NAT range.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
