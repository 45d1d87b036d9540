// Package kafka publishes crawl output to the pages topic. Persisting pages
// (vectorizing them into embedding records) happens downstream.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"page-harvester/internal/models"
)

// PageProducer publishes ScrapedPage messages.
type PageProducer interface {
	WritePage(ctx context.Context, sessionID string, page models.ScrapedPage) error
}

// Producer wraps a Kafka writer for publishing scraped pages.
type Producer struct {
	writer MessageWriter
}

// NewProducer creates a Kafka producer for the given broker and topic.
func NewProducer(broker, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(broker),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: false,
		},
	}
}

// NewProducerWithWriter builds a producer using a custom writer (tests).
func NewProducerWithWriter(writer MessageWriter) *Producer {
	return &Producer{writer: writer}
}

// Close shuts down the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// WritePage publishes a scraped page to Kafka, keyed by crawl session so one
// site's pages stay on one partition.
func (p *Producer) WritePage(ctx context.Context, sessionID string, page models.ScrapedPage) error {
	payload, err := json.Marshal(page)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(sessionID),
		Value: payload,
		Time:  time.Now().UTC(),
	}

	return p.writer.WriteMessages(ctx, msg)
}
