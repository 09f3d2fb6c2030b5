package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iyhunko/product-catalog/internal/resource"
	"github.com/iyhunko/product-catalog/internal/sqs"
)

// NotificationService announces product lifecycle messages. When it can
// reach the sku store, a created message is announced only if the sku still
// exists; products rolled back or deleted since publishing are reported as
// stale instead.
type NotificationService struct {
	skus resource.Lookup
}

// NewNotificationService creates a NotificationService. skus may be nil, in
// which case created messages are announced unchecked.
func NewNotificationService(skus resource.Lookup) *NotificationService {
	return &NotificationService{skus: skus}
}

// Register routes the product actions of consumer to ns.
func (ns *NotificationService) Register(consumer *sqs.Consumer) {
	consumer.Handle(sqs.ActionCreated, ns.ProductCreated)
	consumer.Handle(sqs.ActionDeleted, ns.ProductDeleted)
}

// ProductCreated announces a new product. A failed existence check is
// returned so the message is redelivered.
func (ns *NotificationService) ProductCreated(ctx context.Context, msg sqs.ProductMessage) error {
	if ns.skus != nil {
		exists, err := ns.skus.Exists(ctx, msg.SkuID)
		if err != nil {
			return fmt.Errorf("failed to check sku %d: %w", msg.SkuID, err)
		}
		if !exists {
			slog.WarnContext(ctx, "Stale product notification", slog.String("action", msg.Action), slog.Int64("sku_id", msg.SkuID))
			return nil
		}
	}
	slog.InfoContext(ctx, "Product created", slog.Int64("sku_id", msg.SkuID))
	return nil
}

// ProductDeleted announces a removed product.
func (ns *NotificationService) ProductDeleted(ctx context.Context, msg sqs.ProductMessage) error {
	slog.InfoContext(ctx, "Product deleted", slog.Int64("sku_id", msg.SkuID))
	return nil
}
