package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const selectColumns = `id, customer_id, contract_id, sales_system_id, name, done_on, units_consumed::text, created_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Activity) (*domain.Activity, error) {
	q := `
INSERT INTO activities (id, customer_id, contract_id, sales_system_id, name, done_on, units_consumed)
VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
RETURNING ` + selectColumns
	created, err := scanActivity(r.pool.QueryRow(ctx, q,
		string(a.ID),
		string(a.CustomerID),
		string(a.ContractID),
		string(a.ServiceID),
		a.Name,
		a.DoneOn.In(time.UTC),
		a.UnitsConsumed.String(),
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("activity repo: create", zap.String("contract_id", string(a.ContractID)), zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) ListByContract(ctx context.Context, contractID domain.ContractID) ([]domain.Activity, error) {
	q := `SELECT ` + selectColumns + ` FROM activities WHERE contract_id = $1 ORDER BY done_on, created_at`
	rows, err := r.pool.Query(ctx, q, string(contractID))
	if err != nil {
		r.logger.Error("activity repo: list", zap.String("contract_id", string(contractID)), zap.Error(err))
		return nil, err
	}
	return collect(rows)
}

func (r *postgresRepo) ListByContractAndService(ctx context.Context, contractID domain.ContractID, serviceID domain.ServiceID) ([]domain.Activity, error) {
	q := `SELECT ` + selectColumns + ` FROM activities WHERE contract_id = $1 AND sales_system_id = $2 ORDER BY done_on, created_at`
	rows, err := r.pool.Query(ctx, q, string(contractID), string(serviceID))
	if err != nil {
		r.logger.Error("activity repo: list by service",
			zap.String("contract_id", string(contractID)),
			zap.String("sales_system_id", string(serviceID)),
			zap.Error(err))
		return nil, err
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]domain.Activity, error) {
	defer rows.Close()
	var result []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a                                     domain.Activity
		id, customerID, contractID, serviceID string
		doneOn                                time.Time
		units                                 string
	)
	if err := row.Scan(&id, &customerID, &contractID, &serviceID, &a.Name, &doneOn, &units, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	consumed, err := decimal.NewFromString(units)
	if err != nil {
		return nil, fmt.Errorf("decode units_consumed for activity %s: %w", id, err)
	}
	a.ID = domain.ActivityID(id)
	a.CustomerID = domain.CustomerID(customerID)
	a.ContractID = domain.ContractID(contractID)
	a.ServiceID = domain.ServiceID(serviceID)
	a.DoneOn = civil.DateOf(doneOn)
	a.UnitsConsumed = consumed
	return &a, nil
}
