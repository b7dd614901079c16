// Command benchmark runs a fixed set of searches against a running shopsavvy
// API with the cache bypassed and reports latency and per-source yield. A
// source whose yield drops to zero across the board usually means its markup
// changed.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/shopsavvy/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "shopsavvy API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per query for averaging")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Queries covering common catalogue areas.
var testQueries = []struct {
	Label string
	Query string
}{
	{"Phone", "samsung galaxy a15"},
	{"Audio", "bluetooth earbuds"},
	{"Kitchen", "electric kettle"},
	{"TV", "43 inch smart tv"},
	{"Fashion", "men sneakers"},
}

// --- Benchmark result types ---

type sourceRun struct {
	Found       int    `json:"found"`
	Rejected    int    `json:"rejected"`
	DurationMs  int64  `json:"duration_ms"`
	Engine      string `json:"engine,omitempty"`
	LayoutDrift bool   `json:"layout_drift,omitempty"`
	Error       string `json:"error,omitempty"`
}

type runResult struct {
	Run        int                           `json:"run"`
	TotalMs    int64                         `json:"total_ms"`
	SearchMs   int64                         `json:"search_ms"`
	Products   int                           `json:"products"`
	Cheapest   int64                         `json:"cheapest"`
	Sources    map[models.Platform]sourceRun `json:"sources"`
	HTTPStatus int                           `json:"http_status"`
	Success    bool                          `json:"success"`
	Error      string                        `json:"error,omitempty"`
}

type queryAverages struct {
	TotalMs  float64                     `json:"total_ms"`
	Products float64                     `json:"products"`
	Found    map[models.Platform]float64 `json:"found"`
}

type queryResult struct {
	Query    string         `json:"query"`
	Label    string         `json:"label"`
	Runs     []runResult    `json:"runs"`
	Averages *queryAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp    string        `json:"timestamp"`
	APIURL       string        `json:"api_url"`
	RunsPerQuery int           `json:"runs_per_query"`
	Results      []queryResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== shopsavvy Search Benchmark ===")
	fmt.Printf("API URL:    %s\n", *apiURL)
	fmt.Printf("Runs/query: %d\n", *runs)
	fmt.Printf("Output:     %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 120 * time.Second}

	// Quick connectivity check.
	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure shopsavvy is running (go run ./cmd/shopsavvy)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		APIURL:       *apiURL,
		RunsPerQuery: *runs,
	}

	for _, t := range testQueries {
		fmt.Printf("Benchmarking [%s] %q ...\n", t.Label, t.Query)
		qr := queryResult{Query: t.Query, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkQuery(client, t.Query, i)
			if rr.Success {
				fmt.Printf("OK  %dms  %d products\n", rr.TotalMs, rr.Products)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			qr.Runs = append(qr.Runs, rr)
		}

		qr.Averages = computeAverages(qr.Runs)
		report.Results = append(report.Results, qr)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

func benchmarkQuery(client *http.Client, query string, run int) runResult {
	rr := runResult{Run: run, Sources: make(map[models.Platform]sourceRun)}

	params := url.Values{"q": {query}, "max_age": {"-1"}}
	req, err := http.NewRequest(http.MethodGet, *apiURL+"/api/v1/search?"+params.Encode(), nil)
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	if *apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+*apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()
	rr.HTTPStatus = resp.StatusCode

	var sr models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.TotalMs = sr.Timing.TotalMs
	rr.SearchMs = sr.Timing.SearchMs
	rr.Products = len(sr.Products)
	rr.Cheapest = sr.Stats.Cheapest
	for _, s := range sr.Sources {
		rr.Sources[s.Platform] = sourceRun{
			Found:       s.Found,
			Rejected:    s.Rejected,
			DurationMs:  s.DurationMs,
			Engine:      s.Engine,
			LayoutDrift: s.LayoutDrift,
			Error:       s.Error,
		}
	}
	if sr.Error != nil {
		rr.Error = sr.Error.Message
	}

	return rr
}

func computeAverages(runs []runResult) *queryAverages {
	var successCount int
	avg := queryAverages{Found: make(map[models.Platform]float64)}

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.Products += float64(r.Products)
		for p, s := range r.Sources {
			avg.Found[p] += float64(s.Found)
		}
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.Products /= n
	for p := range avg.Found {
		avg.Found[p] /= n
	}
	return &avg
}

func printTable(results []queryResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Query\tAvg Latency\tProducts\tFound per source\tDrift\n")
	fmt.Fprintf(w, "─────\t───────────\t────────\t────────────────\t─────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncate(r.Query, 30))
			continue
		}

		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%s\t%s\n",
			truncate(r.Query, 30),
			int64(r.Averages.TotalMs),
			r.Averages.Products,
			formatFound(r.Averages.Found),
			driftedSources(r.Runs),
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func formatFound(found map[models.Platform]float64) string {
	parts := make([]string, 0, len(found))
	for p, n := range found {
		parts = append(parts, fmt.Sprintf("%s %.1f", p, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// driftedSources lists the sources that reported a layout change in any run.
func driftedSources(runs []runResult) string {
	seen := map[models.Platform]bool{}
	for _, r := range runs {
		for p, s := range r.Sources {
			if s.LayoutDrift {
				seen[p] = true
			}
		}
	}
	if len(seen) == 0 {
		return "-"
	}
	var names []string
	for p := range seen {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
