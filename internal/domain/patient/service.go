package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register looks a patient up by phone before creating one, so a returning
// patient is reused instead of duplicated.
func (s *Service) Register(ctx context.Context, p *Patient) (*Patient, bool, error) {
	phone, err := ValidatePhone(p.Phone)
	if err != nil {
		return nil, false, err
	}
	p.Phone = phone

	existing, err := s.repo.GetByPhone(ctx, phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, err
	}

	if p.FullName == "" {
		return nil, false, fmt.Errorf("full_name is required")
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdatePatient applies a corrective edit from reception.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	phone, err := ValidatePhone(p.Phone)
	if err != nil {
		return err
	}
	p.Phone = phone
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) ListPatients(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, search, limit, offset)
}
