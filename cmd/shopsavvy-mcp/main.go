package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/shopsavvy/models"
)

// apiClient talks to a running shopsavvy HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client

	// pollEvery is the batch status polling interval.
	pollEvery time.Duration
}

func main() {
	apiURL := os.Getenv("SHOPSAVVY_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	api := &apiClient{
		baseURL:   strings.TrimRight(apiURL, "/"),
		apiKey:    os.Getenv("SHOPSAVVY_API_KEY"),
		http:      &http.Client{Timeout: 180 * time.Second},
		pollEvery: 2 * time.Second,
	}

	s := server.NewMCPServer(
		"shopsavvy",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_products",
		mcp.WithDescription("Search Jumia and Kilimall (Kenya) for a product and return the listings ordered by price in KSh."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to search for, e.g. 'samsung a15' or 'electric kettle'"),
		),
		mcp.WithNumber("min_price",
			mcp.Description("Lowest price to include, in whole KSh"),
		),
		mcp.WithNumber("max_price",
			mcp.Description("Highest price to include, in whole KSh"),
		),
		mcp.WithArray("platforms",
			mcp.Description("Restrict to these platforms: 'Jumia', 'Kilimall'"),
		),
		mcp.WithString("sort",
			mcp.Description("Price order: 'asc' (default) or 'desc'"),
			mcp.Enum("asc", "desc"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of listings to return"),
		),
	)
	s.AddTool(searchTool, handleSearchProducts(api))

	compareTool := mcp.NewTool("compare_prices",
		mcp.WithDescription("Search several products at once and report the cheapest listing and price spread for each."),
		mcp.WithArray("queries",
			mcp.Required(),
			mcp.Description("Product searches to compare, up to 20"),
		),
	)
	s.AddTool(compareTool, handleComparePrices(api))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// do sends a request to the API and returns the response body. Non-2xx
// bodies are returned too; the API puts structured errors in them.
func (a *apiClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.apiKey != "" {
		req.Header.Set("X-API-Key", a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollBatch polls a batch job until it leaves "processing" or ctx ends.
func (a *apiClient) pollBatch(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(a.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := a.do(ctx, http.MethodGet, "/api/v1/batch/"+url.PathEscape(id), nil)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}

			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != "processing" {
				return &status, nil
			}
		}
	}
}

func handleSearchProducts(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query is required"), nil
		}

		params := url.Values{"q": {query}}
		args := request.GetArguments()
		for _, key := range []string{"min_price", "max_price", "limit"} {
			if n, ok := args[key].(float64); ok && n > 0 {
				params.Set(key, strconv.FormatInt(int64(n), 10))
			}
		}
		if sort := request.GetString("sort", ""); sort != "" {
			params.Set("sort", sort)
		}
		if platforms, ok := args["platforms"].([]any); ok {
			for _, p := range platforms {
				if name, ok := p.(string); ok {
					params.Add("platforms", name)
				}
			}
		}

		body, err := api.do(ctx, http.MethodGet, "/api/v1/search?"+params.Encode(), nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.SearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse search response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(failureMessage("search failed", resp.Error)), nil
		}

		return mcp.NewToolResultText(formatSearch(&resp)), nil
	}
}

func handleComparePrices(api *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queries, err := request.RequireStringSlice("queries")
		if err != nil || len(queries) == 0 {
			return mcp.NewToolResultError("queries is required and must be a non-empty array of strings"), nil
		}

		body, err := api.do(ctx, http.MethodPost, "/api/v1/batch/search", models.BatchSearchRequest{Queries: queries})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var accepted models.BatchResponse
		if err := json.Unmarshal(body, &accepted); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse batch response: %v: %s", err, snippet(body))), nil
		}
		if accepted.ID == "" {
			var failed models.SearchResponse
			if err := json.Unmarshal(body, &failed); err != nil || failed.Error == nil {
				return mcp.NewToolResultError("batch job creation failed: " + snippet(body)), nil
			}
			return mcp.NewToolResultError(failureMessage("batch job creation failed", failed.Error)), nil
		}

		status, err := api.pollBatch(ctx, accepted.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatComparison(queries, status)), nil
	}
}

// snippet shortens a raw response body for an error message.
func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty response"
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func failureMessage(fallback string, detail *models.ErrorDetail) string {
	if detail == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", detail.Code, detail.Message)
}

func formatSearch(resp *models.SearchResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d listings for %q", resp.Stats.Total, resp.Query)
	if resp.Stats.Total > 0 {
		fmt.Fprintf(&sb, " (KSh %d to KSh %d, average KSh %d)", resp.Stats.Cheapest, resp.Stats.Priciest, resp.Stats.Average)
	}
	sb.WriteString("\n\n")

	for i, p := range resp.Products {
		fmt.Fprintf(&sb, "%d. %s\n   KSh %d on %s", i+1, p.Name, p.Price, p.Platform)
		if pct := p.DiscountPercent(); pct > 0 {
			fmt.Fprintf(&sb, " (was KSh %d, %d%% off)", p.OriginalPrice, pct)
		}
		fmt.Fprintf(&sb, "\n   %s\n", p.URL)
	}

	for _, src := range resp.Sources {
		if src.Error != "" {
			fmt.Fprintf(&sb, "\nNote: %s was unavailable (%s)", src.Platform, src.Error)
		}
	}
	return sb.String()
}

func formatComparison(queries []string, status *models.BatchStatusResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Compared %d searches (%s)\n\n", status.Total, status.Status)

	for i, res := range status.Results {
		label := fmt.Sprintf("[%d]", i+1)
		if i < len(queries) {
			label = queries[i]
		}
		switch {
		case res == nil:
			fmt.Fprintf(&sb, "- %s: no result\n", label)
		case !res.Success:
			fmt.Fprintf(&sb, "- %s: %s\n", label, failureMessage("failed", res.Error))
		case len(res.Products) == 0:
			fmt.Fprintf(&sb, "- %s: no listings found\n", label)
		default:
			best := res.Products[0]
			fmt.Fprintf(&sb, "- %s: cheapest KSh %d on %s (%s), %d listings up to KSh %d\n  %s\n",
				label, best.Price, best.Platform, best.Name, res.Stats.Total, res.Stats.Priciest, best.URL)
		}
	}
	return sb.String()
}
