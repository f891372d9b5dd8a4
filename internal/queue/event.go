// Package queue carries product events over RabbitMQ: a publisher used by
// the product flow and a background consumer that keeps an audit log.
package queue

import (
	"time"

	"github.com/iliyamo/shop-api/internal/model"
)

const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent is published after a product mutation commits.  It holds
// enough of the product for consumers to log or index it without reading
// the primary database.
type ProductEvent struct {
	Type       string `json:"type"`
	ProductID  uint64 `json:"product_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	Price      int64  `json:"price"`
	Stock      int64  `json:"stock"`
	OwnerID    uint64 `json:"owner_id,omitempty"`
	ActorID    uint64 `json:"actor_id"`
	OccurredAt string `json:"occurred_at"`
}

// NewProductEvent snapshots p for an event of the given type.
func NewProductEvent(typ string, p model.Product, actorID uint64, at time.Time) ProductEvent {
	return ProductEvent{
		Type:       typ,
		ProductID:  p.ID,
		Name:       p.Name,
		Category:   p.Category,
		Price:      p.Price,
		Stock:      p.Stock,
		OwnerID:    p.OwnerID,
		ActorID:    actorID,
		OccurredAt: at.UTC().Format(time.RFC3339),
	}
}
