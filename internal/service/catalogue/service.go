package catalogue

import (
	"context"
	"errors"
	"fmt"

	"contractledger/internal/domain"
	"contractledger/internal/logging"
	prestationrepo "contractledger/internal/repository/prestation"
	"go.uber.org/zap"
)

// Service is the read side of the prestation catalogue.
type Service struct {
	repo   prestationrepo.Repository
	logger *zap.Logger
}

func New(repo prestationrepo.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logging.OrNop(logger)}
}

// Lookup resolves a service id. An unknown id is a validation rejection
// with code service_not_found, never an infrastructure error.
func (s *Service) Lookup(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Reject(domain.CodeServiceNotFound, "service %s is not in the catalogue", id)
		}
		return nil, fmt.Errorf("lookup service %s: %w", id, err)
	}
	return p, nil
}

// AllEntries returns the whole catalogue keyed by service id.
func (s *Service) AllEntries(ctx context.Context) (map[domain.ServiceID]domain.Prestation, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalogue: %w", err)
	}
	out := make(map[domain.ServiceID]domain.Prestation, len(items))
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Prestation, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error) {
	return s.repo.GetByID(ctx, id)
}
