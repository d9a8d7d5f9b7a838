package prestation

import (
	"context"
	"errors"
	"fmt"

	"contractledger/internal/domain"
	"contractledger/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Prestation, error) {
	const q = `
SELECT sales_system_id, name, unit_price::text, updated_at
FROM prestations
ORDER BY sales_system_id
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("prestation repo: list", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Prestation
	for rows.Next() {
		p, err := scanPrestation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("prestation repo: list rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("prestation repo: list", zap.Int("count", len(result)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id domain.ServiceID) (*domain.Prestation, error) {
	const q = `
SELECT sales_system_id, name, unit_price::text, updated_at
FROM prestations
WHERE sales_system_id = $1
`
	p, err := scanPrestation(r.pool.QueryRow(ctx, q, string(id)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Debug("prestation repo: get not found", zap.String("sales_system_id", string(id)))
			return nil, err
		}
		r.logger.Error("prestation repo: get", zap.String("sales_system_id", string(id)), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, p domain.Prestation) (*domain.Prestation, error) {
	const q = `
INSERT INTO prestations (sales_system_id, name, unit_price)
VALUES ($1, $2, $3::numeric)
ON CONFLICT (sales_system_id) DO UPDATE SET
    name = EXCLUDED.name,
    unit_price = EXCLUDED.unit_price,
    updated_at = now()
RETURNING sales_system_id, name, unit_price::text, updated_at
`
	res, err := scanPrestation(r.pool.QueryRow(ctx, q, string(p.ID), p.Name, p.UnitPrice.String()))
	if err != nil {
		r.logger.Error("prestation repo: upsert", zap.String("sales_system_id", string(p.ID)), zap.Error(err))
		return nil, err
	}
	r.logger.Info("prestation repo: upserted", zap.String("sales_system_id", string(res.ID)), zap.String("unit_price", res.UnitPrice.String()))
	return res, nil
}

func scanPrestation(row pgx.Row) (*domain.Prestation, error) {
	var (
		p     domain.Prestation
		id    string
		price string
	)
	if err := row.Scan(&id, &p.Name, &price, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	unitPrice, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("decode unit_price for %s: %w", id, err)
	}
	p.ID = domain.ServiceID(id)
	p.UnitPrice = unitPrice
	return &p, nil
}
