package activity

import (
	"context"

	"contractledger/internal/domain"
)

// Repository stores immutable usage events.
type Repository interface {
	Create(ctx context.Context, a domain.Activity) (*domain.Activity, error)
	ListByContract(ctx context.Context, contractID domain.ContractID) ([]domain.Activity, error)
	ListByContractAndService(ctx context.Context, contractID domain.ContractID, serviceID domain.ServiceID) ([]domain.Activity, error)
}
