package sqlexec

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
	"github.com/yekaditya11/Acma-Insights/pkg/postgres"
)

// closeTimeout bounds connection teardown after the request context is gone.
const closeTimeout = 5 * time.Second

// PgExecutor opens a fresh Postgres connection for every statement.
type PgExecutor struct {
	connect func(ctx context.Context) (*pgx.Conn, error)
}

var _ Executor = (*PgExecutor)(nil)

func NewPgExecutor(cfg postgres.Config) *PgExecutor {
	return &PgExecutor{connect: cfg.Connect}
}

func (e *PgExecutor) Execute(ctx context.Context, sql string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SQLExecutionsTotal.WithLabelValues(status).Inc()
		logx.Debug().
			Str("executor", "postgres").
			Bool("ok", err == nil).
			Dur("duration", time.Since(start)).
			Msg("SQL executed")
	}()

	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, newExecutionError(ErrEmptyStatement)
	}

	conn, err := e.connect(ctx)
	if err != nil {
		return nil, newExecutionError(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()
		if cerr := conn.Close(closeCtx); cerr != nil {
			logx.Warn().Err(cerr).Msg("Failed to close postgres connection")
		}
	}()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return nil, newExecutionError(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, newExecutionError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(values) {
				row[col] = normalizeValue(values[i])
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newExecutionError(err)
	}

	return &Result{Columns: columns, Rows: out}, nil
}
