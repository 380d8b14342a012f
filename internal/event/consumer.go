package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/utafrali/storefront-search/internal/service"
	apperrors "github.com/utafrali/storefront-search/pkg/errors"
	pkgkafka "github.com/utafrali/storefront-search/pkg/kafka"
)

// Kafka topic constants for product domain events consumed by the search service.
var (
	TopicProductCreated = pkgkafka.Topic("product", "created")
	TopicProductUpdated = pkgkafka.Topic("product", "updated")
	TopicProductDeleted = pkgkafka.Topic("product", "deleted")
)

// Topics lists every topic the consumer handles.
func Topics() []string {
	return []string{TopicProductCreated, TopicProductUpdated, TopicProductDeleted}
}

// ProductDeletedData represents the payload from a product.deleted event.
type ProductDeletedData struct {
	ID int64 `json:"id"`
}

// Indexer is the part of the search service that catalog events drive.
type Indexer interface {
	IndexProduct(ctx context.Context, input *service.IndexProductInput) error
	DeleteProduct(ctx context.Context, id int64) error
}

// Consumer handles Kafka events related to product changes for search indexing.
type Consumer struct {
	indexer Indexer
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer for the search service.
func NewConsumer(indexer Indexer, logger *slog.Logger) *Consumer {
	return &Consumer{
		indexer: indexer,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated:
		return c.handleProductUpsert(ctx, event)
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductUpsert indexes a created or updated product. The payload
// carries the full product record.
func (c *Consumer) handleProductUpsert(ctx context.Context, event *pkgkafka.Event) error {
	var input service.IndexProductInput
	if err := event.UnmarshalData(&input); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}

	if err := c.indexer.IndexProduct(ctx, &input); err != nil {
		return fmt.Errorf("index product from %s event: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "indexed product from event",
		slog.Int64("product_id", input.ID),
		slog.String("event_type", event.EventType),
	)

	return nil
}

// handleProductDeleted removes a deleted product from the index. Deleting a
// product the index never saw is not an error.
func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if data.ID == 0 && event.AggregateID != "" {
		id, err := strconv.ParseInt(event.AggregateID, 10, 64)
		if err != nil {
			return fmt.Errorf("product.deleted aggregate id %q: %w", event.AggregateID, err)
		}
		data.ID = id
	}

	err := c.indexer.DeleteProduct(ctx, data.ID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.logger.InfoContext(ctx, "deleted product was not indexed",
			slog.Int64("product_id", data.ID),
		)
		return nil
	case err != nil:
		return fmt.Errorf("delete product from deleted event: %w", err)
	}

	c.logger.InfoContext(ctx, "deleted product from deleted event",
		slog.Int64("product_id", data.ID),
	)

	return nil
}
