package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"tabclean/adapters/coercer"
	"tabclean/domain/records"
	"tabclean/internal"
	"tabclean/internal/errors"
)

// SourceConfig describes a query whose result set is loaded as records
type SourceConfig struct {
	Name  string
	Query string
	Args  []interface{}
	// Columns declares kinds for named result columns; others follow the database type
	Columns  []records.ColumnSpec
	Coercion coercer.CoercionConfig
}

// Source implements ports.RecordSource over a SQL query
type Source struct {
	db      *sqlx.DB
	config  SourceConfig
	coercer *coercer.TypeCoercer
	logger  *internal.Logger
}

// Open connects to a Postgres database
func Open(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// NewSource creates a query source
func NewSource(db *sqlx.DB, config SourceConfig, logger *internal.Logger) *Source {
	if config.Name == "" {
		config.Name = "query"
	}
	if config.Coercion.IsZero() {
		config.Coercion = coercer.DefaultCoercionConfig()
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Source{db: db, config: config, coercer: coercer.NewTypeCoercer(config.Coercion), logger: logger}
}

// Name identifies the source
func (s *Source) Name() string {
	return s.config.Name
}

// Load runs the query and coerces every row into the resolved schema
func (s *Source) Load(ctx context.Context) (*records.RecordSet, error) {
	rows, err := s.db.QueryxContext(ctx, s.config.Query, s.config.Args...)
	if err != nil {
		return nil, errors.DatabaseError("failed to run source query", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.DatabaseError("failed to read result columns", err)
	}
	names := make([]string, len(types))
	dbTypes := make([]string, len(types))
	for i, ct := range types {
		names[i] = ct.Name()
		dbTypes[i] = ct.DatabaseTypeName()
	}
	schema, err := resolveSchema(names, dbTypes, s.config.Columns)
	if err != nil {
		return nil, err
	}

	b := records.NewBuilder(schema)
	columns := schema.Columns()
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, errors.DatabaseError("failed to scan row", err)
		}
		if err := b.Add(coerceRow(s.coercer, columns, raw)...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("failed to iterate rows", err)
	}
	rs := b.Build()
	s.logger.Info("[Source] %s loaded %d rows, %d columns", s.config.Name, rs.Len(), schema.Len())
	return rs, nil
}

// resolveSchema builds the schema of a result set: declared specs win, other
// columns take the kind their database type maps to
func resolveSchema(names, dbTypes []string, declared []records.ColumnSpec) (*records.Schema, error) {
	byName := make(map[string]records.ColumnSpec, len(declared))
	for _, col := range declared {
		byName[col.Name] = col
	}
	columns := make([]records.ColumnSpec, len(names))
	for i, name := range names {
		if spec, ok := byName[name]; ok {
			columns[i] = spec
			continue
		}
		columns[i] = records.ColumnSpec{Name: name, Kind: KindForDatabaseType(dbTypes[i])}
	}
	schema, err := records.NewSchema(columns...)
	if err != nil {
		return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("query result: %w", err))
	}
	return schema, nil
}

// KindForDatabaseType maps a Postgres type name to a column kind
func KindForDatabaseType(name string) records.ColumnKind {
	switch strings.ToUpper(name) {
	case "INT2", "INT4", "INT8", "FLOAT4", "FLOAT8", "NUMERIC", "DECIMAL", "MONEY", "OID":
		return records.KindNumeric
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return records.KindDatetime
	}
	return records.KindCategorical
}

func coerceRow(c *coercer.TypeCoercer, columns []records.ColumnSpec, raw []interface{}) []records.Value {
	values := make([]records.Value, len(columns))
	for i, col := range columns {
		values[i] = c.CoerceAny(raw[i], col)
	}
	return values
}
