// Kestrel - Business licensing requirements, matched in milliseconds.
// Copyright (c) 2025 opensource-regtech
// Licensed under the Apache License 2.0

// Load tool for exercising Kestrel with recorded business profiles.
//
// Usage:
//
//	go run ./cmd/loadtest -csv profiles.csv -url http://localhost:8080
//
// The CSV needs a header with businessType, seatingCapacity and floorArea
// columns. An optional flags column lists capability flags separated by
// ';' and an optional expectedComplexity column is compared against the
// returned complexity tier.
//
// This tool:
//  1. Reads the profiles
//  2. Posts each one to /api/v1/requirements/match from concurrent workers
//  3. Reports latency percentiles, error rate and the complexity distribution
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Profile is one CSV row.
type Profile struct {
	BusinessType       string
	SeatingCapacity    int
	FloorArea          float64
	Flags              []string
	ExpectedComplexity string
}

// MatchRequest is the Kestrel match request body.
type MatchRequest struct {
	BusinessType    string          `json:"businessType"`
	SeatingCapacity int             `json:"seatingCapacity"`
	FloorArea       float64         `json:"floorArea"`
	Services        map[string]bool `json:"services,omitempty"`
}

// MatchResponse is the part of the Kestrel response the tool reads.
type MatchResponse struct {
	Result struct {
		Summary struct {
			TotalRequirements int    `json:"totalRequirements"`
			ComplexityLevel   string `json:"complexityLevel"`
		} `json:"summary"`
	} `json:"result"`
}

// Results aggregates one run.
type Results struct {
	mu sync.Mutex

	Latencies   []time.Duration
	Errors      int
	RateLimited int
	Complexity  map[string]int
	Expected    int
	Agreements  int
}

func (r *Results) record(p Profile, elapsed time.Duration, resp *MatchResponse, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Latencies = append(r.Latencies, elapsed)
	if err != nil {
		r.Errors++
		if errors.Is(err, errRateLimited) {
			r.RateLimited++
		}
		return
	}

	tier := resp.Result.Summary.ComplexityLevel
	r.Complexity[tier]++
	if p.ExpectedComplexity != "" {
		r.Expected++
		if strings.EqualFold(p.ExpectedComplexity, tier) {
			r.Agreements++
		}
	}
}

var errRateLimited = errors.New("rate limited")

func main() {
	csvPath := flag.String("csv", "", "Path to a business profile CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	limit := flag.Int("limit", 0, "Maximum profiles to send (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	repeat := flag.Int("repeat", 1, "Send the profile set this many times")
	verbose := flag.Bool("verbose", false, "Print each result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: loadtest -csv profiles.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║             KESTREL LOAD TEST - Requirement Matching          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kestrel URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Repeat:      %d\n", *repeat)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run ./cmd/kestrel")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	file, err := os.Open(*csvPath)
	if err != nil {
		fmt.Printf("ERROR: Failed to open CSV: %v\n", err)
		os.Exit(1)
	}
	profiles, err := readProfiles(file, *limit)
	file.Close()
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d profiles\n", len(profiles))

	var all []Profile
	for i := 0; i < *repeat; i++ {
		all = append(all, profiles...)
	}

	fmt.Printf("\nSending %d requests with %d workers...\n", len(all), *workers)
	start := time.Now()
	results := run(all, *baseURL, *workers, *verbose)
	printResults(results, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// readProfiles parses the CSV. Rows with unparseable numbers are skipped.
func readProfiles(r io.Reader, limit int) ([]Profile, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"businesstype", "seatingcapacity", "floorarea"} {
		if _, ok := colIndex[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var profiles []Profile
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		seats, err := strconv.Atoi(field(record, "seatingcapacity"))
		if err != nil {
			continue
		}
		area, err := strconv.ParseFloat(field(record, "floorarea"), 64)
		if err != nil {
			continue
		}

		var flags []string
		for _, f := range strings.Split(field(record, "flags"), ";") {
			if f = strings.TrimSpace(f); f != "" {
				flags = append(flags, f)
			}
		}

		profiles = append(profiles, Profile{
			BusinessType:       field(record, "businesstype"),
			SeatingCapacity:    seats,
			FloorArea:          area,
			Flags:              flags,
			ExpectedComplexity: field(record, "expectedcomplexity"),
		})

		if limit > 0 && len(profiles) >= limit {
			break
		}
	}

	return profiles, nil
}

func run(profiles []Profile, baseURL string, numWorkers int, verbose bool) *Results {
	results := &Results{Complexity: make(map[string]int)}
	if numWorkers <= 0 {
		numWorkers = 1
	}

	work := make(chan Profile, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for p := range work {
				start := time.Now()
				resp, err := match(client, baseURL, p)
				elapsed := time.Since(start)
				results.record(p, elapsed, resp, err)

				if verbose {
					if err != nil {
						fmt.Printf("ERROR: %-16s -> %v\n", p.BusinessType, err)
						continue
					}
					fmt.Printf("%-16s | seats %4d | area %7.1f | %2d requirements | %-6s | %v\n",
						p.BusinessType, p.SeatingCapacity, p.FloorArea,
						resp.Result.Summary.TotalRequirements, resp.Result.Summary.ComplexityLevel,
						elapsed.Round(time.Microsecond),
					)
				}
			}
		}()
	}

	for _, p := range profiles {
		work <- p
	}
	close(work)
	wg.Wait()

	return results
}

func match(client *http.Client, baseURL string, p Profile) (*MatchResponse, error) {
	req := MatchRequest{
		BusinessType:    p.BusinessType,
		SeatingCapacity: p.SeatingCapacity,
		FloorArea:       p.FloorArea,
	}
	if len(p.Flags) > 0 {
		req.Services = make(map[string]bool, len(p.Flags))
		for _, f := range p.Flags {
			req.Services[f] = true
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/requirements/match", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result MatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// percentile returns the p-th percentile (0-100) of sorted using the
// nearest-rank method.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(float64(len(sorted))*p/100+0.999999) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func printResults(r *Results, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                       LOAD TEST RESULTS                       ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	total := len(r.Latencies)
	fmt.Printf("\n📊 REQUESTS\n")
	fmt.Printf("   Total:         %d\n", total)
	fmt.Printf("   Errors:        %d\n", r.Errors)
	fmt.Printf("   Rate limited:  %d\n", r.RateLimited)
	if total > 0 {
		fmt.Printf("   Error rate:    %.2f%%\n", 100*float64(r.Errors)/float64(total))
	}

	sorted := append([]time.Duration(nil), r.Latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	fmt.Printf("\n⏱️  LATENCY\n")
	for _, p := range []float64{50, 90, 95, 99} {
		fmt.Printf("   p%-3.0f         %v\n", p, percentile(sorted, p).Round(time.Microsecond))
	}
	if total > 0 {
		fmt.Printf("   Max:          %v\n", sorted[total-1].Round(time.Microsecond))
		fmt.Printf("   Throughput:   %.2f req/sec\n", float64(total)/duration.Seconds())
	}
	fmt.Printf("   Duration:     %v\n", duration.Round(time.Millisecond))

	fmt.Printf("\n📈 COMPLEXITY DISTRIBUTION\n")
	for _, tier := range []string{"Low", "Medium", "High"} {
		fmt.Printf("   %-8s %d\n", tier, r.Complexity[tier])
	}

	if r.Expected > 0 {
		fmt.Printf("\n🎯 EXPECTED COMPLEXITY\n")
		fmt.Printf("   Agreement:    %d / %d (%.2f%%)\n", r.Agreements, r.Expected, 100*float64(r.Agreements)/float64(r.Expected))
	}

	fmt.Println()
}
