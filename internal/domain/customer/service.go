package customer

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/livesale/livesale-api/internal/pkg/phone"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Register provisions a new customer and wallet. The phone is normalized
// here; everything downstream works with the canonical form.
func (s *Service) Register(ctx context.Context, rawPhone, fullName string) (*Customer, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	c := &Customer{Phone: normalized, FullName: fullName}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	log.Info().Str("phone", normalized).Msg("customer registered, wallet provisioned")
	return s.repo.GetByPhone(ctx, normalized)
}

// GetByPhone looks up a customer by any phone form.
func (s *Service) GetByPhone(ctx context.Context, rawPhone string) (*Customer, error) {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByPhone(ctx, normalized)
}

// List returns customers, newest first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Customer, error) {
	return s.repo.List(ctx, limit, offset)
}

// Freeze blocks all wallet mutations for the customer until Unfreeze.
func (s *Service) Freeze(ctx context.Context, rawPhone string) error {
	return s.setFrozen(ctx, rawPhone, true)
}

// Unfreeze re-enables wallet mutations.
func (s *Service) Unfreeze(ctx context.Context, rawPhone string) error {
	return s.setFrozen(ctx, rawPhone, false)
}

func (s *Service) setFrozen(ctx context.Context, rawPhone string, frozen bool) error {
	normalized, err := phone.Normalize(rawPhone)
	if err != nil {
		return err
	}
	if err := s.repo.SetFrozen(ctx, normalized, frozen); err != nil {
		return err
	}
	log.Info().Str("phone", normalized).Bool("frozen", frozen).Msg("customer freeze state changed")
	return nil
}
