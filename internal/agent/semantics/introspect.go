package semantics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	errx "github.com/yekaditya11/Acma-Insights/internal/core/error"
	logx "github.com/yekaditya11/Acma-Insights/pkg/logger"
)

const columnsQuery = `
	SELECT
		a.attname,
		format_type(a.atttypid, a.atttypmod),
		NOT a.attnotnull,
		COALESCE(pg_get_expr(d.adbin, d.adrelid), ''),
		COALESCE(col_description(a.attrelid, a.attnum), '')
	FROM pg_attribute a
	LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
	WHERE a.attrelid = $1::regclass
	  AND a.attnum > 0
	  AND NOT a.attisdropped
	ORDER BY a.attnum
`

const constraintsQuery = `
	SELECT conname, pg_get_constraintdef(oid)
	FROM pg_constraint
	WHERE conrelid = $1::regclass
	ORDER BY contype DESC, conname
`

// sampledTypes are the column types whose distinct values are listed as samples.
var sampledTypes = map[string]bool{
	"text":              true,
	"character varying": true,
	"character":         true,
	"citext":            true,
}

// Connector opens a dedicated connection. pkg/postgres.Config.Connect satisfies it.
type Connector func(ctx context.Context) (*pgx.Conn, error)

// Introspector reads a table's structure and sample values from Postgres.
type Introspector struct {
	connect     Connector
	schema      string
	table       string
	sampleLimit int
	parallelism int
}

func NewIntrospector(connect Connector, schema, table string, sampleLimit int) *Introspector {
	if schema == "" {
		schema = "public"
	}
	if sampleLimit <= 0 {
		sampleLimit = 25
	}
	return &Introspector{
		connect:     connect,
		schema:      schema,
		table:       table,
		sampleLimit: sampleLimit,
		parallelism: 4,
	}
}

func (i *Introspector) qualified() string {
	return pgx.Identifier{i.schema, i.table}.Sanitize()
}

// Snapshot implements Provider.
func (i *Introspector) Snapshot(ctx context.Context) (Snapshot, error) {
	start := time.Now()

	conn, err := i.connect(ctx)
	if err != nil {
		return Snapshot{}, errx.WrapPostgres(fmt.Errorf("connect: %w", err))
	}
	defer conn.Close(context.WithoutCancel(ctx))

	t := Table{Schema: i.schema, Table: i.table}
	if err := conn.QueryRow(ctx, `SELECT COALESCE(obj_description($1::regclass, 'pg_class'), '')`, i.qualified()).
		Scan(&t.TableComment); err != nil {
		return Snapshot{}, errx.WrapPostgres(fmt.Errorf("table %s: %w", i.qualified(), err))
	}

	rows, err := conn.Query(ctx, columnsQuery, i.qualified())
	if err != nil {
		return Snapshot{}, errx.WrapPostgres(fmt.Errorf("columns: %w", err))
	}
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.Type, &c.Nullable, &c.Default, &c.Description); err != nil {
			rows.Close()
			return Snapshot{}, errx.WrapPostgres(fmt.Errorf("scan column: %w", err))
		}
		t.Columns = append(t.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Snapshot{}, errx.WrapPostgres(fmt.Errorf("columns: %w", err))
	}
	if len(t.Columns) == 0 {
		return Snapshot{}, fmt.Errorf("table %s has no columns", i.qualified())
	}

	constraints, err := i.constraints(ctx, conn)
	if err != nil {
		return Snapshot{}, err
	}

	if err := i.sample(ctx, t.Columns); err != nil {
		return Snapshot{}, err
	}

	logx.Debug().
		Str("table", i.qualified()).
		Int("columns", len(t.Columns)).
		Dur("duration", time.Since(start)).
		Msg("Introspected table")

	return Snapshot{DDL: buildDDL(i.qualified(), t.Columns, constraints), Semantics: t}, nil
}

func (i *Introspector) constraints(ctx context.Context, conn *pgx.Conn) ([]string, error) {
	rows, err := conn.Query(ctx, constraintsQuery, i.qualified())
	if err != nil {
		return nil, errx.WrapPostgres(fmt.Errorf("constraints: %w", err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name, def string
		if err := rows.Scan(&name, &def); err != nil {
			return nil, errx.WrapPostgres(fmt.Errorf("scan constraint: %w", err))
		}
		out = append(out, fmt.Sprintf("CONSTRAINT %s %s", pgx.Identifier{name}.Sanitize(), def))
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapPostgres(fmt.Errorf("constraints: %w", err))
	}
	return out, nil
}

// sample fills SampleValues for text columns, one connection per column,
// at most parallelism at a time.
func (i *Introspector) sample(ctx context.Context, cols []Column) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallelism)

	for idx := range cols {
		if !sampledTypes[baseType(cols[idx].Type)] {
			continue
		}
		col := &cols[idx]
		g.Go(func() error {
			conn, err := i.connect(ctx)
			if err != nil {
				return errx.WrapPostgres(fmt.Errorf("connect: %w", err))
			}
			defer conn.Close(context.WithoutCancel(ctx))

			ident := pgx.Identifier{col.Name}.Sanitize()
			query := fmt.Sprintf(
				"SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL ORDER BY 1 LIMIT %d",
				ident, i.qualified(), ident, i.sampleLimit,
			)
			rows, err := conn.Query(ctx, query)
			if err != nil {
				return errx.WrapPostgres(fmt.Errorf("sample %s: %w", col.Name, err))
			}
			defer rows.Close()

			values := []any{}
			for rows.Next() {
				var v string
				if err := rows.Scan(&v); err != nil {
					return errx.WrapPostgres(fmt.Errorf("scan sample %s: %w", col.Name, err))
				}
				values = append(values, v)
			}
			if err := rows.Err(); err != nil {
				return errx.WrapPostgres(fmt.Errorf("sample %s: %w", col.Name, err))
			}
			col.SampleValues = values
			return nil
		})
	}
	return g.Wait()
}

// baseType strips a type modifier, "character varying(64)" becomes "character varying".
func baseType(t string) string {
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(strings.ToLower(t))
}

func buildDDL(qualified string, cols []Column, constraints []string) string {
	lines := make([]string, 0, len(cols)+len(constraints))
	for _, c := range cols {
		line := fmt.Sprintf("    %s %s", pgx.Identifier{c.Name}.Sanitize(), strings.ToUpper(c.Type))
		if c.Default != "" {
			line += " DEFAULT " + c.Default
		}
		if !c.Nullable {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	for _, con := range constraints {
		lines = append(lines, "    "+con)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n%s\n);", qualified, strings.Join(lines, ",\n"))
}
