package semantics

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yekaditya11/Acma-Insights/pkg/postgres"
)

func TestIntrospector_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
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
	cfg := postgres.Config{URL: uri, ConnectTimeout: 10}

	base, err := Default()
	require.NoError(t, err)

	conn, err := cfg.Connect(ctx)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, base.DDL)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `COMMENT ON COLUMN supplier_kpi_monthly.value IS 'Measured value'`)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `
		INSERT INTO supplier_kpi_monthly (supplier_name, kpi_name, year, month, value, unit) VALUES
		('Acme', 'trips', 2025, 1, 10, 'count'),
		('Acme', 'trips', 2025, 2, 12, 'count'),
		('Globex', 'vehicleTAT', 2025, 1, 3.5, 'hrs')
	`)
	require.NoError(t, err)
	require.NoError(t, conn.Close(ctx))

	in := NewIntrospector(func(ctx context.Context) (*pgx.Conn, error) { return cfg.Connect(ctx) }, "public", "supplier_kpi_monthly", 10)
	snap, err := in.Snapshot(ctx)
	require.NoError(t, err)

	assert.Contains(t, snap.DDL, `CREATE TABLE "public"."supplier_kpi_monthly"`)
	assert.Contains(t, snap.DDL, "CHECK")
	require.Len(t, snap.Semantics.Columns, 9)

	supplier, ok := snap.Semantics.Column("supplier_name")
	require.True(t, ok)
	assert.False(t, supplier.Nullable)
	assert.Equal(t, []any{"Acme", "Globex"}, supplier.SampleValues)

	kpi, _ := snap.Semantics.Column("kpi_name")
	assert.Equal(t, []any{"trips", "vehicleTAT"}, kpi.SampleValues)

	value, _ := snap.Semantics.Column("value")
	assert.Equal(t, "Measured value", value.Description)
	assert.Empty(t, value.SampleValues)

	_, err = NewIntrospector(cfg.Connect, "public", "no_such_table", 10).Snapshot(ctx)
	assert.Error(t, err)
}
