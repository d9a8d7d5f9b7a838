package customer

import (
	"context"

	"contractledger/internal/domain"
)

// Repository persists customer documents, contracts included.
type Repository interface {
	GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error)
	// Save replaces the whole customer document, inserting it when absent.
	Save(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	List(ctx context.Context) ([]domain.Customer, error)
	// Search matches name case-insensitively against first or given name; a
	// blank name matches everyone. It returns the page and the total match count.
	Search(ctx context.Context, name string, offset, limit int) ([]domain.Customer, int, error)
}
