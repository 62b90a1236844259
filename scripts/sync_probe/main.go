// Command sync_probe runs one assignment sync against an LMS proxy and
// reports how many records survive each stage. It is meant for checking a
// proxy deployment before pointing the API at it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/models"
	"github.com/noah-isme/duetable-api/internal/service"
	"github.com/noah-isme/duetable-api/pkg/lmsproxy"
)

type report struct {
	Term        string
	Courses     int
	TermCourses int
	Summaries   int
	Details     int
	Combined    int
	Stats       models.AssignmentStats
	Elapsed     time.Duration
}

func main() {
	var (
		proxyBase string
		canvasURL string
		apiKey    string
		email     string
		term      string
		batchSize int
		timeout   time.Duration
		minRatio  float64
	)

	flag.StringVar(&proxyBase, "proxy-base", "http://localhost:3000", "LMS proxy base URL")
	flag.StringVar(&canvasURL, "canvas-url", "", "Canvas base URL of the school")
	flag.StringVar(&apiKey, "api-key", os.Getenv("CANVAS_API_KEY"), "Canvas API key")
	flag.StringVar(&email, "email", "", "User email")
	flag.StringVar(&term, "term", service.DefaultSemester(time.Now()), "Semester, e.g. \"2025 Fall\"")
	flag.IntVar(&batchSize, "batch-size", 5, "Detail requests per batch")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Float64Var(&minRatio, "min-detail-ratio", 0.9, "Fail when fewer details than this share of summaries arrive")
	flag.Parse()

	if canvasURL == "" || apiKey == "" || email == "" {
		log.Fatal("canvas-url, api-key and email are required")
	}
	if !service.ValidSemester(term) {
		log.Fatalf("invalid term %q", term)
	}

	logr, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	client := lmsproxy.New(lmsproxy.Config{BaseURL: proxyBase, Timeout: timeout, Logger: logr})
	fetcher := service.NewAssignmentFetcher(client, logr, service.AssignmentFetcherConfig{BatchSize: batchSize, BatchDelay: 100 * time.Millisecond})
	creds := models.Credentials{APIKey: apiKey, BaseURL: canvasURL, Email: email}

	rep, err := probe(context.Background(), client, fetcher, creds, term)
	if err != nil {
		log.Fatalf("probe failed: %v", err)
	}
	printReport(rep)

	if rep.Summaries > 0 && float64(rep.Details)/float64(rep.Summaries) < minRatio {
		fmt.Printf("Detail ratio below %.2f\n", minRatio)
		os.Exit(1)
	}
}

func probe(ctx context.Context, client *lmsproxy.Client, fetcher *service.AssignmentFetcher, creds models.Credentials, term string) (report, error) {
	start := time.Now()
	rep := report{Term: term}

	courses, err := client.FetchCourses(ctx, creds.APIKey, creds.BaseURL)
	if err != nil {
		return rep, err
	}
	rep.Courses = len(courses)
	termCourses := service.FilterBySemester(courses, term)
	rep.TermCourses = len(termCourses)
	if len(termCourses) == 0 {
		rep.Elapsed = time.Since(start)
		return rep, nil
	}

	summaries, err := fetcher.FetchSummaries(ctx, creds, models.CourseIDs(termCourses), term)
	if err != nil {
		return rep, err
	}
	rep.Summaries = len(summaries)

	lastPrinted := -1
	details := fetcher.FetchDetails(ctx, creds, summaries, func(completed, total int) {
		pct := completed * 100 / total
		if pct/10 != lastPrinted/10 {
			lastPrinted = pct
			fmt.Printf("  details %3d%% (%d/%d)\n", pct, completed, total)
		}
	})
	rep.Details = len(details)

	combined := service.MergeAssignments(summaries, details, nil)
	rep.Combined = len(combined)
	rep.Stats = service.ComputeStats(combined, time.Now())
	rep.Elapsed = time.Since(start)
	return rep, nil
}

func printReport(rep report) {
	fmt.Printf("Term:          %s\n", rep.Term)
	fmt.Printf("Courses:       %d (%d in term)\n", rep.Courses, rep.TermCourses)
	fmt.Printf("Summaries:     %d\n", rep.Summaries)
	fmt.Printf("Details:       %d\n", rep.Details)
	fmt.Printf("Combined:      %d (%d dropped without detail)\n", rep.Combined, rep.Summaries-rep.Combined)
	fmt.Printf("Overdue:       %d\n", rep.Stats.Overdue)
	fmt.Printf("Due this week: %d\n", rep.Stats.DueThisWeek)
	fmt.Printf("Done (7 days): %d\n", rep.Stats.CompletedThisWeek)
	fmt.Printf("Elapsed:       %s\n", rep.Elapsed.Round(time.Millisecond))
}
