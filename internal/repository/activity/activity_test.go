package activity

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"contractledger/internal/domain"
	"contractledger/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_CreateAndList(t *testing.T) {
	ctx := context.Background()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	_, err = migrate.Apply(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE activities, prestations, customers RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO customers (id, first_name, given_name) VALUES ('cust-1', 'Ada', 'Lovelace')`)
	require.NoError(t, err)

	repo := NewPostgres(pool, nil)
	base := domain.Activity{
		CustomerID: "cust-1",
		ContractID: "ct-1",
		Name:       "Audit",
		DoneOn:     civil.Date{Year: 2024, Month: time.February, Day: 3},
	}

	first := base
	first.ID = "a1"
	first.ServiceID = "A"
	first.UnitsConsumed = decimal.RequireFromString("40.5")
	created, err := repo.Create(ctx, first)
	require.NoError(t, err)
	assert.True(t, created.UnitsConsumed.Equal(decimal.RequireFromString("40.5")))
	assert.Equal(t, first.DoneOn, created.DoneOn)

	second := base
	second.ID = "a2"
	second.ServiceID = "B"
	second.UnitsConsumed = decimal.NewFromInt(2)
	_, err = repo.Create(ctx, second)
	require.NoError(t, err)

	_, err = repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	all, err := repo.ListByContract(ctx, "ct-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyA, err := repo.ListByContractAndService(ctx, "ct-1", "A")
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, domain.ActivityID("a1"), onlyA[0].ID)

	tiny := base
	tiny.ID = "a3"
	tiny.ServiceID = "C"
	tiny.UnitsConsumed = decimal.RequireFromString("0.00001")
	created, err = repo.Create(ctx, tiny)
	require.NoError(t, err, "sub-4-decimal units are stored, not rounded to zero")
	assert.True(t, created.UnitsConsumed.Equal(decimal.RequireFromString("0.00001")))
}
