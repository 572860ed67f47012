package casualty

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, rec *TriageRecord) error
	ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*TriageRecord, error)
	List(ctx context.Context, limit, offset int) ([]*TriageRecord, int, error)
}
