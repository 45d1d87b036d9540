package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"page-harvester/common"
	"page-harvester/internal/fetcher"
	"page-harvester/internal/frontier"
	"page-harvester/internal/kafka"
	"page-harvester/internal/models"
	"page-harvester/internal/store"
)

var (
	// Counters for crawl throughput and failures exposed on /metrics.
	apiCrawlsStarted   uint64
	apiCrawlsCompleted uint64
	apiCrawlsFailed    uint64
	apiPagesPublished  uint64
	apiPublishFailed   uint64
)

// crawlRunner abstracts frontier.Crawler for tests.
type crawlRunner interface {
	Crawl(ctx context.Context, cfg models.SiteConfig) ([]models.ScrapedPage, error)
}

type server struct {
	crawler      crawlRunner
	prod         kafka.PageProducer
	store        store.StatusStore
	crawlTimeout time.Duration
}

func newServer(crawler crawlRunner, prod kafka.PageProducer, statusStore store.StatusStore, crawlTimeout time.Duration) *server {
	return &server{
		crawler:      crawler,
		prod:         prod,
		store:        statusStore,
		crawlTimeout: crawlTimeout,
	}
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	pagesTopic := common.GetEnv("KAFKA_PAGES_TOPIC", "harvester.crawl.pages")
	redisAddr := common.GetEnv("REDIS_ADDR", "localhost:6379")
	statusTTL := common.ParseDuration(common.GetEnv("STATUS_TTL", "24h"), 24*time.Hour)
	crawlDelay := common.ParseDuration(common.GetEnv("CRAWL_DELAY", "1s"), frontier.DefaultDelay)
	crawlTimeout := common.ParseDuration(common.GetEnv("CRAWL_TIMEOUT", "10m"), 10*time.Minute)

	prod := kafka.NewProducer(broker, pagesTopic)
	defer func() {
		if err := prod.Close(); err != nil {
			log.Printf("failed to close producer: %v", err)
		}
	}()

	statusStore := store.NewRedisStatusStore(redisAddr, "crawl:status:", statusTTL)
	defer func() {
		if err := statusStore.Close(); err != nil {
			log.Printf("failed to close status store: %v", err)
		}
	}()

	crawler := frontier.New(fetcher.New(nil), crawlDelay)
	srv := newServer(crawler, prod, statusStore, crawlTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/crawl", srv.handleCrawl)
	mux.HandleFunc("/crawl/", srv.handleCrawlStatus)
	mux.HandleFunc("/metrics", srv.handleMetrics)

	addr := common.GetEnv("API_ADDR", ":8080")
	log.Printf("api listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}

// handleCrawl accepts POST requests with a site configuration and starts an
// asynchronous crawl of that site.
//
// Method: POST
// Path:   /crawl
// Example:
//
//	curl -X POST "http://localhost:8080/crawl" \
//	  -d '{"url":"https://example.com","recursive":true,"max_depth":2,"max_pages":50}'
func (s *server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cfg models.SiteConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid site config", http.StatusBadRequest)
		return
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	status := models.CrawlStatus{
		SessionID: id,
		SiteURL:   cfg.URL,
		Status:    "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.store.SetStatus(ctx, status); err != nil {
		http.Error(w, "failed to persist status", http.StatusBadGateway)
		return
	}

	atomic.AddUint64(&apiCrawlsStarted, 1)
	go s.runCrawl(id, cfg, now)

	writeJSON(w, status, http.StatusAccepted)
}

// runCrawl executes one site crawl in the background, publishing pages to
// the pages topic and keeping the session status current.
func (s *server) runCrawl(sessionID string, cfg models.SiteConfig, createdAt time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.crawlTimeout)
	defer cancel()

	s.updateStatus(ctx, sessionID, cfg.URL, "running", 0, "", createdAt)

	pages, err := s.crawler.Crawl(ctx, cfg)
	for _, page := range pages {
		if pubErr := s.prod.WritePage(ctx, sessionID, page); pubErr != nil {
			atomic.AddUint64(&apiPublishFailed, 1)
			log.Printf("publish page error session=%s url=%s err=%v", sessionID, page.URL, pubErr)
			continue
		}
		atomic.AddUint64(&apiPagesPublished, 1)
	}

	if err != nil {
		atomic.AddUint64(&apiCrawlsFailed, 1)
		log.Printf("crawl failed session=%s site=%s pages=%d err=%v", sessionID, cfg.URL, len(pages), err)
		s.updateStatus(ctx, sessionID, cfg.URL, "failed", len(pages), err.Error(), createdAt)
		return
	}

	atomic.AddUint64(&apiCrawlsCompleted, 1)
	s.updateStatus(ctx, sessionID, cfg.URL, "done", len(pages), "", createdAt)
}

func (s *server) updateStatus(ctx context.Context, sessionID, siteURL, state string, pages int, errMsg string, createdAt time.Time) {
	// Status writes use a short independent deadline so a crawl timeout
	// doesn't also lose the final status update.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	status := models.CrawlStatus{
		SessionID:    sessionID,
		SiteURL:      siteURL,
		Status:       state,
		PagesScraped: pages,
		Error:        errMsg,
		CreatedAt:    createdAt,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.store.SetStatus(writeCtx, status); err != nil {
		log.Printf("status update error session=%s state=%s err=%v", sessionID, state, err)
	}
}

// handleCrawlStatus returns status for a previously started crawl session.
//
// Method: GET
// Path:   /crawl/{sessionID}
func (s *server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/crawl/"), "/")
	if sessionID == "" {
		http.Error(w, "missing session id", http.StatusBadRequest)
		return
	}

	status, ok, err := s.store.GetStatus(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "failed to load status", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	writeJSON(w, status, http.StatusOK)
}

// handleMetrics exposes a minimal Prometheus-compatible endpoint.
//
// Method: GET
// Path:   /metrics
func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"harvester_api_up 1\n"+
			"harvester_api_crawls_started_total %d\n"+
			"harvester_api_crawls_completed_total %d\n"+
			"harvester_api_crawls_failed_total %d\n"+
			"harvester_api_pages_published_total %d\n"+
			"harvester_api_publish_failed_total %d\n",
		atomic.LoadUint64(&apiCrawlsStarted),
		atomic.LoadUint64(&apiCrawlsCompleted),
		atomic.LoadUint64(&apiCrawlsFailed),
		atomic.LoadUint64(&apiPagesPublished),
		atomic.LoadUint64(&apiPublishFailed),
	)
	_, _ = w.Write([]byte(body))
}

func writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
