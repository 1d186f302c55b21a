package sqlexec

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yekaditya11/Acma-Insights/pkg/postgres"
)

func startPostgres(t *testing.T) postgres.Config {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to cleanup postgres container: %v", err)
		}
	})

	uri, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return postgres.Config{URL: uri, ConnectTimeout: 10}
}

func TestPgExecutor_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	cfg := startPostgres(t)
	ctx := context.Background()

	conn, err := cfg.Connect(ctx)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `CREATE TABLE supplier_kpi_monthly (
		id BIGSERIAL PRIMARY KEY,
		supplier_name TEXT NOT NULL,
		kpi_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		month SMALLINT NOT NULL CHECK (month >= 1 AND month <= 12),
		value NUMERIC,
		unit TEXT,
		generated_on DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `INSERT INTO supplier_kpi_monthly (supplier_name, kpi_name, year, month, value, unit) VALUES
		('Acme', 'On-Time Delivery', 2025, 1, 97.50, '%'),
		('Globex', 'On-Time Delivery', 2025, 1, 91.25, '%')`)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	exec := NewPgExecutor(cfg)

	t.Run("numeric becomes float", func(t *testing.T) {
		res, err := exec.Execute(ctx, `SELECT supplier_name, month, value FROM supplier_kpi_monthly ORDER BY value DESC`)
		require.NoError(t, err)
		assert.Equal(t, []string{"supplier_name", "month", "value"}, res.Columns)
		require.Len(t, res.Rows, 2)
		assert.Equal(t, "Acme", res.Rows[0]["supplier_name"])
		assert.Equal(t, int16(1), res.Rows[0]["month"])
		assert.InDelta(t, 97.5, res.Rows[0]["value"], 1e-9)
	})

	t.Run("invalid sql", func(t *testing.T) {
		_, err := exec.Execute(ctx, `SELECT FROM WHERE`)
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Contains(t, execErr.Message, "syntax error")
	})
}
