package prestation

import (
	"context"

	"contractledger/internal/domain"
)

// Repository reads and upserts catalogue entries.
type Repository interface {
	List(ctx context.Context) ([]domain.Prestation, error)
	GetByID(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error)
	Upsert(ctx context.Context, p domain.Prestation) (*domain.Prestation, error)
}
