// Command scan runs a one-shot compliance scan against a URL and prints the
// report to stdout or a file.
// Usage: go run ./cmd/scan -url https://example.com [-backend chromedp] [-format text|markdown|json] [-o report.md]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdprscanner/gdprscan/internal/capture"
	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/engine"
	"github.com/gdprscanner/gdprscan/internal/history"
	"github.com/gdprscanner/gdprscan/internal/logging"
	"github.com/gdprscanner/gdprscan/internal/report"
	"github.com/gdprscanner/gdprscan/internal/rules"
)

func main() {
	var (
		url     = flag.String("url", "", "URL to scan (required)")
		backend = flag.String("backend", capture.BackendNetHTTP, "capture backend: nethttp or chromedp")
		format  = flag.String("format", "text", "report format: text, markdown, or json")
		outPath = flag.String("o", "", "write the report to this file instead of stdout")
		timeout = flag.Duration("timeout", 60*time.Second, "overall scan timeout")
	)
	flag.Parse()

	if *url == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := logging.NewStdoutLogger("scan")

	capturer, err := capture.New(capture.Config{Backend: *backend}, logger)
	if err != nil {
		log.Fatalf("creating capturer: %v", err)
	}
	defer capturer.Close()

	eng, err := engine.New(rules.Default(), engine.Config{}, logger)
	if err != nil {
		log.Fatalf("creating engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snap, err := capturer.Capture(ctx, *url)
	if err != nil {
		log.Fatalf("capturing %s: %v", *url, err)
	}
	doc, err := docmodel.NewDocument(snap)
	if err != nil {
		log.Fatalf("building document: %v", err)
	}
	res, err := eng.Scan(ctx, doc)
	if err != nil {
		log.Fatalf("scanning: %v", err)
	}

	// The writers consume stored scans; wrap the fresh result in one.
	scan := &history.StoredScan{
		URL:         res.URL,
		Score:       res.Score,
		Findings:    res.Findings,
		Suggestions: res.Suggestions,
		CreatedAt:   res.TimestampMillis / 1000,
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	var wr report.Writer
	switch *format {
	case "text":
		wr = report.NewTextWriter(out)
	case "markdown":
		wr = report.NewMarkdownWriter(out)
	case "json":
		wr = report.NewJSONWriter(out)
	default:
		log.Fatalf("unknown format %q", *format)
	}

	if _, err := wr.Write(scan); err != nil {
		log.Fatalf("writing report: %v", err)
	}

	fmt.Fprintf(os.Stderr, "score: %d/100, violations: %d\n", res.Score, len(res.Findings))
}
