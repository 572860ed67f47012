package lab

import (
	"context"

	"github.com/google/uuid"
)

type ChargeRepository interface {
	Create(ctx context.Context, ch *Charge) error
	GetByID(ctx context.Context, id uuid.UUID) (*Charge, error)
	Update(ctx context.Context, ch *Charge) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Charge, error)
	ListByStatus(ctx context.Context, status ChargeStatus, limit, offset int) ([]*Charge, int, error)
}

type InventoryRepository interface {
	Create(ctx context.Context, item *InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	Update(ctx context.Context, item *InventoryItem) error
	List(ctx context.Context, limit, offset int) ([]*InventoryItem, int, error)
	ListLowStock(ctx context.Context) ([]*InventoryItem, error)
}
