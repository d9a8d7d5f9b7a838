package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"contractledger/internal/domain"
	"contractledger/internal/logging"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const selectColumns = `id, first_name, given_name, date_of_birth, contracts, created_at, updated_at`

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger)}
}

func (r *postgresRepo) GetByID(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	q := `SELECT ` + selectColumns + ` FROM customers WHERE id = $1`
	return r.scanCustomer(r.pool.QueryRow(ctx, q, string(id)))
}

func (r *postgresRepo) Save(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	contracts := c.Contracts
	if contracts == nil {
		contracts = []domain.Contract{}
	}
	contractsJSON, err := json.Marshal(contracts)
	if err != nil {
		return nil, fmt.Errorf("encode contracts: %w", err)
	}

	q := `
INSERT INTO customers (id, first_name, given_name, date_of_birth, contracts)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    first_name = EXCLUDED.first_name,
    given_name = EXCLUDED.given_name,
    date_of_birth = EXCLUDED.date_of_birth,
    contracts = EXCLUDED.contracts,
    updated_at = now()
RETURNING ` + selectColumns
	saved, err := r.scanCustomer(r.pool.QueryRow(ctx, q,
		string(c.ID),
		c.FirstName,
		c.GivenName,
		domain.TimeOrNil(c.DateOfBirth),
		contractsJSON,
	))
	if err != nil {
		r.logger.Error("customer repo: save", zap.String("customer_id", string(c.ID)), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("customer repo: saved", zap.String("customer_id", string(saved.ID)), zap.Int("contracts", len(saved.Contracts)))
	return saved, nil
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Customer, error) {
	q := `SELECT ` + selectColumns + ` FROM customers ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		r.logger.Error("customer repo: list", zap.Error(err))
		return nil, err
	}
	return r.collect(rows)
}

func (r *postgresRepo) Search(ctx context.Context, name string, offset, limit int) ([]domain.Customer, int, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(name))) + "%"
	const where = `WHERE $1 = '%%' OR lower(first_name) LIKE $1 OR lower(given_name) LIKE $1`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM customers `+where, pattern).Scan(&total); err != nil {
		r.logger.Error("customer repo: search count", zap.String("name", name), zap.Error(err))
		return nil, 0, err
	}

	q := `SELECT ` + selectColumns + ` FROM customers ` + where + ` ORDER BY given_name, first_name, id OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, pattern, offset, limit)
	if err != nil {
		r.logger.Error("customer repo: search", zap.String("name", name), zap.Error(err))
		return nil, 0, err
	}
	items, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *postgresRepo) collect(rows pgx.Rows) ([]domain.Customer, error) {
	defer rows.Close()
	var result []domain.Customer
	for rows.Next() {
		c, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("customer repo: rows", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var (
		c             domain.Customer
		id            string
		dob           *time.Time
		contractsJSON []byte
	)
	err := row.Scan(&id, &c.FirstName, &c.GivenName, &dob, &contractsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	c.ID = domain.CustomerID(id)
	c.DateOfBirth = domain.DateOrNil(dob)
	c.Contracts = []domain.Contract{}
	if len(contractsJSON) > 0 {
		if err := json.Unmarshal(contractsJSON, &c.Contracts); err != nil {
			r.logger.Error("customer repo: decode contracts", zap.String("customer_id", id), zap.Error(err))
			return nil, err
		}
	}
	return &c, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
