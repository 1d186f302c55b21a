package sqlexec

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/yekaditya11/Acma-Insights/internal/metrics"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

// DBExecutor runs statements over a database/sql handle. Each call checks out
// a dedicated connection and returns it to the pool before returning.
type DBExecutor struct {
	db   *sql.DB
	name string
}

var _ Executor = (*DBExecutor)(nil)

// NewDBExecutor wraps db; name labels logs (e.g. "sqlite").
func NewDBExecutor(db *sql.DB, name string) *DBExecutor {
	return &DBExecutor{db: db, name: name}
}

func (e *DBExecutor) Execute(ctx context.Context, query string) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SQLExecutionsTotal.WithLabelValues(status).Inc()
		logx.Debug().
			Str("executor", e.name).
			Bool("ok", err == nil).
			Dur("duration", time.Since(start)).
			Msg("SQL executed")
	}()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, newExecutionError(ErrEmptyStatement)
	}
	if e.db == nil {
		return nil, newExecutionError(sql.ErrConnDone)
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return nil, newExecutionError(err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, newExecutionError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, newExecutionError(err)
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, newExecutionError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newExecutionError(err)
	}

	return &Result{Columns: columns, Rows: out}, nil
}
