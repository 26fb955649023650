package reference

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultPostgresTable is the table read when none is configured.
const DefaultPostgresTable = "reference_routes"

// Querier is the subset of pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the reference table from a PostgreSQL table with the
// same columns as the CSV format. Column presence is checked by Load.
type PostgresSource struct {
	db    Querier
	table string
}

// NewPostgresSource creates a source reading every row of table.
func NewPostgresSource(db Querier, table string) *PostgresSource {
	if table == "" {
		table = DefaultPostgresTable
	}
	return &PostgresSource{db: db, table: table}
}

// Name returns the source name.
func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// Read selects all rows. Rows are returned in physical order (ctid), which
// matches insertion order for a table that is only ever bulk-loaded.
func (s *PostgresSource) Read(ctx context.Context) (*RawTable, error) {
	query := fmt.Sprintf("SELECT * FROM %s ORDER BY ctid", pgx.Identifier{s.table}.Sanitize())

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.table, err)
	}
	defer rows.Close()

	return collectRawTable(rows)
}

// collectRawTable converts query rows into string cells. NULL becomes "".
func collectRawTable(rows pgx.Rows) (*RawTable, error) {
	fields := rows.FieldDescriptions()
	table := &RawTable{Columns: make([]string, len(fields))}
	for i, f := range fields {
		table.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(table.Rows)+1, err)
		}
		record := make([]string, len(values))
		for i, v := range values {
			record[i] = cellString(v)
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return ""
		}
		return strconv.FormatFloat(f.Float64, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
