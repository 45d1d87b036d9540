package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kgo "github.com/segmentio/kafka-go"

	hkafka "page-harvester/internal/kafka"
	"page-harvester/internal/models"
	"page-harvester/mocks"
)

func TestProducerWritePage(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	prod := hkafka.NewProducerWithWriter(writer)

	page := models.ScrapedPage{
		URL:           "https://example.com/blog/post",
		Title:         "A Post",
		Content:       "Post body.",
		ContentLength: 10,
		Status:        models.PageStatusSuccess,
		ScrapedAt:     time.Unix(0, 0).UTC(),
	}

	writer.EXPECT().
		WriteMessages(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs ...kgo.Message) error {
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if string(msgs[0].Key) != "session-123" {
				t.Fatalf("unexpected message key: %s", string(msgs[0].Key))
			}

			var got models.ScrapedPage
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				t.Fatalf("failed to decode message: %v", err)
			}
			if got.URL != page.URL || got.Title != page.Title || got.Status != page.Status {
				t.Fatalf("unexpected page payload: %+v", got)
			}
			return nil
		})

	if err := prod.WritePage(context.Background(), "session-123", page); err != nil {
		t.Fatalf("WritePage returned error: %v", err)
	}
}

func TestProducerWritePageError(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	prod := hkafka.NewProducerWithWriter(writer)

	writer.EXPECT().WriteMessages(gomock.Any(), gomock.Any()).Return(errors.New("write failed"))
	if err := prod.WritePage(context.Background(), "session-err", models.ScrapedPage{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestProducerClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	writer := mocks.NewMockMessageWriter(ctrl)
	prod := hkafka.NewProducerWithWriter(writer)

	writer.EXPECT().Close().Return(nil)
	if err := prod.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
