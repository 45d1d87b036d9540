package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"page-harvester/common"
	"page-harvester/internal/fetcher"
	"page-harvester/internal/frontier"
	"page-harvester/internal/kafka"
	"page-harvester/internal/models"
	"page-harvester/internal/sites"
)

// siteResult is one site's outcome in the batch output file.
type siteResult struct {
	Site      string               `json:"site"`
	SessionID string               `json:"session_id"`
	Pages     []models.ScrapedPage `json:"pages"`
	Error     string               `json:"error,omitempty"`
}

func main() {
	sitesPath := flag.String("sites", "sites.json", "Path to JSON file with an array of site configs")
	outPath := flag.String("out", "", "Write scraped pages to this JSON file (stdout if empty)")
	publish := flag.Bool("publish", false, "Also publish scraped pages to the Kafka pages topic")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var prod kafka.PageProducer
	if *publish {
		broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
		pagesTopic := common.GetEnv("KAFKA_PAGES_TOPIC", "harvester.crawl.pages")
		p := kafka.NewProducer(broker, pagesTopic)
		defer func() {
			if err := p.Close(); err != nil {
				log.Printf("failed to close producer: %v", err)
			}
		}()
		prod = p
	}

	crawlDelay := common.ParseDuration(common.GetEnv("CRAWL_DELAY", "1s"), frontier.DefaultDelay)
	crawler := frontier.New(fetcher.New(nil), crawlDelay)

	if err := run(ctx, crawler, sites.NewFileSource(*sitesPath), prod, *outPath); err != nil {
		log.Fatal(err)
	}
}

type crawlRunner interface {
	Crawl(ctx context.Context, cfg models.SiteConfig) ([]models.ScrapedPage, error)
}

// run crawls every configured site sequentially and writes the combined
// results. A failing site is recorded and skipped; only a canceled context
// stops the batch early.
func run(ctx context.Context, crawler crawlRunner, source sites.Source, prod kafka.PageProducer, outPath string) error {
	configs, err := source.Sites(ctx)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		return fmt.Errorf("no sites configured")
	}

	var (
		results    []siteResult
		totalPages int
		failed     int
	)
	start := time.Now()

	for _, cfg := range configs {
		if ctx.Err() != nil {
			log.Printf("batch canceled sites_done=%d", len(results))
			break
		}

		sessionID := uuid.New().String()
		log.Printf("crawling site=%s url=%s session=%s", cfg.Name, cfg.URL, sessionID)

		pages, err := crawler.Crawl(ctx, cfg)
		result := siteResult{Site: cfg.URL, SessionID: sessionID, Pages: pages}
		if err != nil {
			failed++
			result.Error = err.Error()
			log.Printf("crawl failed site=%s pages=%d err=%v", cfg.URL, len(pages), err)
		}
		totalPages += len(pages)

		if prod != nil {
			for _, page := range pages {
				if pubErr := prod.WritePage(ctx, sessionID, page); pubErr != nil {
					log.Printf("publish page error session=%s url=%s err=%v", sessionID, page.URL, pubErr)
				}
			}
		}
		results = append(results, result)
	}

	if err := writeResults(outPath, results); err != nil {
		return err
	}

	log.Printf("batch done sites=%d failed=%d pages=%d elapsed=%s",
		len(results), failed, totalPages, time.Since(start).Round(time.Millisecond))
	return ctx.Err()
}

func writeResults(outPath string, results []siteResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	data = append(data, '\n')

	if outPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write results file: %w", err)
	}
	log.Printf("results written path=%s", outPath)
	return nil
}
