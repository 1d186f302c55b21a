// Package semantics supplies the table DDL and column metadata that ground
// SQL generation.
package semantics

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Column describes one column of the target table.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Nullable     bool   `json:"nullable"`
	Default      string `json:"default,omitempty"`
	Description  string `json:"description,omitempty"`
	SampleValues []any  `json:"sample_values,omitempty"`
}

// Table is the semantic description of a single table.
type Table struct {
	Schema       string   `json:"schema,omitempty"`
	Table        string   `json:"table"`
	TableComment string   `json:"table_comment,omitempty"`
	Columns      []Column `json:"columns"`
}

// Map converts the table to the generic mapping carried on the conversation state.
func (t Table) Map() (map[string]any, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Column returns the named column, if present.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Snapshot is the DDL and semantics handed to a workflow run.
type Snapshot struct {
	DDL       string `json:"ddl"`
	Semantics Table  `json:"semantics"`
}

// Provider returns the current schema snapshot.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

//go:embed default/supplier_kpi_monthly.sql default/supplier_kpi_monthly.semantics.json
var defaults embed.FS

// Default returns the embedded snapshot for supplier_kpi_monthly.
func Default() (Snapshot, error) {
	ddl, err := defaults.ReadFile("default/supplier_kpi_monthly.sql")
	if err != nil {
		return Snapshot{}, fmt.Errorf("read default ddl: %w", err)
	}
	raw, err := defaults.ReadFile("default/supplier_kpi_monthly.semantics.json")
	if err != nil {
		return Snapshot{}, fmt.Errorf("read default semantics: %w", err)
	}
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return Snapshot{}, fmt.Errorf("decode default semantics: %w", err)
	}
	return Snapshot{DDL: strings.TrimSpace(string(ddl)), Semantics: t}, nil
}

// LoadFile reads a semantics JSON file in the same shape as the embedded default.
func LoadFile(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("read semantics file: %w", err)
	}
	var t Table
	if err := json.Unmarshal(raw, &t); err != nil {
		return Table{}, fmt.Errorf("decode semantics file %s: %w", path, err)
	}
	if t.Table == "" {
		return Table{}, fmt.Errorf("semantics file %s: missing table name", path)
	}
	return t, nil
}

// StaticProvider serves a fixed snapshot.
type StaticProvider struct {
	snap Snapshot
}

// NewStaticProvider serves the embedded default, with semantics replaced by
// the file at path when one is given.
func NewStaticProvider(path string) (*StaticProvider, error) {
	snap, err := Default()
	if err != nil {
		return nil, err
	}
	if path != "" {
		t, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		snap.Semantics = t
	}
	return &StaticProvider{snap: snap}, nil
}

func (p *StaticProvider) Snapshot(context.Context) (Snapshot, error) {
	return p.snap, nil
}

// Merge carries hand-written descriptions and sample values from base into
// introspected where the database has none. Columns only present in base
// are dropped since the database is authoritative for structure.
func Merge(introspected, base Table) Table {
	if introspected.TableComment == "" {
		introspected.TableComment = base.TableComment
	}
	merged := make([]Column, 0, len(introspected.Columns))
	for _, col := range introspected.Columns {
		if prev, ok := base.Column(col.Name); ok {
			if col.Description == "" {
				col.Description = prev.Description
			}
			if len(col.SampleValues) == 0 {
				col.SampleValues = prev.SampleValues
			}
		}
		merged = append(merged, col)
	}
	introspected.Columns = merged
	return introspected
}
