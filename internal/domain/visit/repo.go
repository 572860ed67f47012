package visit

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrStaleVisit is returned by Update when the visit row changed since it was
// read. The caller must re-fetch and retry its decision against the fresh
// state.
var ErrStaleVisit = errors.New("stale visit state")

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	// Update writes the visit only if its stored version still equals
	// expectedVersion, bumping the version on success. ErrStaleVisit otherwise.
	Update(ctx context.Context, v *Visit, expectedVersion int) error
	ListQueue(ctx context.Context, role Role, statuses []Status, limit, offset int) ([]*Visit, int, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error)
}
