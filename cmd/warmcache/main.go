// Package main provides an operator CLI tool that pre-resolves imagery
// for a list of locations, so a content import or a landing page hits a
// warm cache instead of burning interactive request budget.
// Input is a text file with one "local,regional,national" triple per
// line; missing fields may be left empty ("Lofthus,,Norway").
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/db"
	"fernweh/pkg/fetch"
	"fernweh/pkg/imagery"
	"fernweh/pkg/ratelimit"
	"fernweh/pkg/request"
	"fernweh/pkg/sources/brave"
	"fernweh/pkg/sources/wikimedia"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "configs/fernweh.yaml", "Path to config file")
	file := flag.String("file", "", "Locations file, one local,regional,national per line")
	target := flag.Int("target", imagery.DefaultTargetCount, "Image target per location")
	csv := flag.Bool("csv", false, "Emit machine-readable output")
	flag.Parse()

	if *file == "" {
		return fmt.Errorf("usage: warmcache -file locations.txt [-config ...] [-target N] [-csv]")
	}

	// Quiet down the libraries; the tool reports through stdout.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	hierarchies, err := readLocations(*file)
	if err != nil {
		return err
	}
	if len(hierarchies) == 0 {
		return fmt.Errorf("no locations in %s", *file)
	}

	dbConn, err := db.Init(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	// Unmetered admission: the operator decides how hard to push, and
	// the request client still paces politely per service.
	tr := tracker.New()
	fetcher := fetch.New(cache.NewTiers(cache.NewMemory(), st), ratelimit.Unlimited{}, tr)
	reqClient := request.New(tr, request.Config{
		Retries:   cfg.Request.Retries,
		Timeout:   time.Duration(cfg.Request.Timeout),
		BaseDelay: time.Duration(cfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(cfg.Request.Backoff.MaxDelay),
	})

	primary := brave.New(cfg.Sources.Brave, reqClient, fetcher)
	fallback := wikimedia.New(cfg.Sources.Wikimedia, reqClient, fetcher)
	if !primary.Configured() {
		fmt.Fprintln(os.Stderr, "WARN: no Brave API key; warming from the fallback source only")
	}

	resolver := imagery.NewResolver(primary, fallback, imagery.ResolverOptions{
		TargetCount: cfg.Resolver.Target,
		MaxPerLevel: cfg.Resolver.MaxPerLevel,
		MinPerLevel: cfg.Resolver.MinPerLevel,
		MicroTTL:    time.Duration(cfg.Resolver.MicroTTL),
		GlobalTerm:  cfg.Resolver.GlobalTerm,
	})

	ctx := context.Background()
	start := time.Now()
	totalImages := 0

	for i, h := range hierarchies {
		results := resolver.Resolve(ctx, h, *target)
		images := imagery.Flatten(results, *target)
		totalImages += len(images)

		name := h.Local
		if name == "" {
			name = h.Regional
		}
		if name == "" {
			name = h.National
		}

		if *csv {
			fmt.Printf("%s,%d,%d\n", name, len(results), len(images))
		} else {
			fmt.Printf("[%3d/%3d] %-30s levels=%d images=%d\n", i+1, len(hierarchies), name, len(results), len(images))
		}
	}

	if !*csv {
		fmt.Printf("\nWarmed %d locations, %d images in %s\n", len(hierarchies), totalImages, time.Since(start).Round(time.Second))
		printStats(tr)
	}
	return nil
}

// readLocations parses the input file. Blank lines and # comments are
// skipped.
func readLocations(path string) ([]imagery.Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locations file: %w", err)
	}
	defer f.Close()

	var hierarchies []imagery.Hierarchy
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		h := imagery.Hierarchy{}
		if len(parts) > 0 {
			h.Local = strings.TrimSpace(parts[0])
		}
		if len(parts) > 1 {
			h.Regional = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			h.National = strings.TrimSpace(parts[2])
		}
		if h.IsZero() {
			fmt.Fprintf(os.Stderr, "WARN: line %d has no usable terms, skipping\n", lineNo)
			continue
		}
		hierarchies = append(hierarchies, h)
	}
	return hierarchies, scanner.Err()
}

func printStats(tr *tracker.Tracker) {
	snapshot := tr.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	fmt.Println("\nPer-service usage:")
	for service, s := range snapshot {
		fmt.Printf("  %-12s hits=%d misses=%d success=%d failures=%d\n",
			service, s.CacheHits, s.CacheMisses, s.APISuccess, s.APIFailures)
	}
}
