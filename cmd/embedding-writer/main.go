package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"page-harvester/common"
	"page-harvester/internal/dedup"
	ikafka "page-harvester/internal/kafka"
	"page-harvester/internal/store"
)

var (
	// Counters for embedding-writer throughput and failures exposed on /metrics.
	// received: messages fetched from Kafka; failed: store errors; skipped:
	// messages dropped as near-duplicates of an already stored record.
	embeddingsReceived uint64
	embeddingsFailed   uint64
	embeddingsInvalid  uint64
	embeddingsSkipped  uint64
	embeddingsCreated  uint64
)

// embeddingMessage is the ingest payload: one vectorized page ready for
// storage. The id is assigned by the store, never by the producer.
type embeddingMessage struct {
	Content  string            `json:"content"`
	Title    string            `json:"title,omitempty"`
	Vector   []float64         `json:"vector"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type embeddingWriter struct {
	store  store.VectorStore
	engine *dedup.Engine
}

func main() {
	broker := common.GetEnv("KAFKA_BROKER", "localhost:9092")
	embeddingsTopic := common.GetEnv("KAFKA_EMBEDDINGS_TOPIC", "harvester.embeddings")
	embeddingsGroup := common.GetEnv("KAFKA_EMBEDDINGS_GROUP", "harvester-embedding-writer")
	metricsAddr := common.GetEnv("METRICS_ADDR", ":9091")

	neo4jURI := common.GetEnv("NEO4J_URI", "neo4j://localhost:7687")
	neo4jUser := common.GetEnv("NEO4J_USER", "neo4j")
	neo4jPassword := common.GetEnv("NEO4J_PASSWORD", "neo4j")

	vectorStore, err := store.NewNeo4jVectorStore(neo4jURI, neo4jUser, neo4jPassword)
	if err != nil {
		log.Fatalf("neo4j driver error: %v", err)
	}
	defer func() {
		if err := vectorStore.Close(context.Background()); err != nil {
			log.Printf("neo4j close error: %v", err)
		}
	}()

	thresholds := dedup.DefaultThresholds()
	thresholds.High = common.ParseFloat(common.GetEnv("DEDUP_HIGH_THRESHOLD", ""), thresholds.High)
	thresholds.Duplicate = common.ParseFloat(common.GetEnv("DEDUP_DUPLICATE_THRESHOLD", ""), thresholds.Duplicate)
	thresholds.Title = common.ParseFloat(common.GetEnv("DEDUP_TITLE_THRESHOLD", ""), thresholds.Title)

	writer := &embeddingWriter{
		store:  vectorStore,
		engine: dedup.NewEngine(vectorStore, thresholds),
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   embeddingsTopic,
		GroupID: embeddingsGroup,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			log.Printf("embeddings reader close error: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		startMetricsServer(ctx, metricsAddr)
	}

	log.Printf("embedding-writer consuming topic=%s group=%s broker=%s", embeddingsTopic, embeddingsGroup, broker)
	consumeEmbeddings(ctx, reader, writer)
}

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", handleMetrics)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics shutdown error: %v", err)
		}
	}()

	go func() {
		log.Printf("metrics listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
}

func handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	body := fmt.Sprintf(
		"harvester_embedding_writer_up 1\n"+
			"harvester_embedding_writer_received_total %d\n"+
			"harvester_embedding_writer_failed_total %d\n"+
			"harvester_embedding_writer_invalid_total %d\n"+
			"harvester_embedding_writer_skipped_total %d\n"+
			"harvester_embedding_writer_created_total %d\n",
		atomic.LoadUint64(&embeddingsReceived),
		atomic.LoadUint64(&embeddingsFailed),
		atomic.LoadUint64(&embeddingsInvalid),
		atomic.LoadUint64(&embeddingsSkipped),
		atomic.LoadUint64(&embeddingsCreated),
	)
	_, _ = w.Write([]byte(body))
}

func consumeEmbeddings(ctx context.Context, reader ikafka.MessageReader, writer *embeddingWriter) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("embeddings fetch error: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		atomic.AddUint64(&embeddingsReceived, 1)
		if err := writer.writeEmbedding(ctx, msg.Value); err != nil {
			atomic.AddUint64(&embeddingsFailed, 1)
			log.Printf("embedding write error: %v", err)
			continue
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Printf("embeddings commit error: %v", err)
		}
	}
}

// writeEmbedding stores one ingest payload unless a near-duplicate already
// exists. Malformed payloads are dropped (and committed) rather than retried:
// they will never become valid.
func (w *embeddingWriter) writeEmbedding(ctx context.Context, payload []byte) error {
	var msg embeddingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		atomic.AddUint64(&embeddingsInvalid, 1)
		log.Printf("invalid embedding payload: %v", err)
		return nil
	}
	if msg.Content == "" || len(msg.Vector) == 0 {
		atomic.AddUint64(&embeddingsInvalid, 1)
		log.Printf("embedding payload missing content or vector title=%q", msg.Title)
		return nil
	}

	match, sim, found, err := w.engine.FindDuplicate(ctx, msg.Vector, msg.Title)
	if err != nil {
		return err
	}
	if found {
		atomic.AddUint64(&embeddingsSkipped, 1)
		log.Printf("skipping near-duplicate title=%q existing=%s similarity=%.3f", msg.Title, match.ID, sim)
		return nil
	}

	id, err := w.store.Create(ctx, msg.Content, msg.Title, msg.Vector, msg.Metadata)
	if err != nil {
		return err
	}
	atomic.AddUint64(&embeddingsCreated, 1)
	log.Printf("embedding stored id=%s title=%q dims=%d", id, msg.Title, len(msg.Vector))
	return nil
}
