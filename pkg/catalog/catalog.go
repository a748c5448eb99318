package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	errs "imgaudit/pkg/errors"
)

// NullRefID stands in for a NULL ref_id so the row is still verified and
// reported.
const NullRefID = "null"

// Row is one image reference. Rows are never modified.
type Row struct {
	ID        int64
	RefID     string
	ImagePath string
}

// Querier runs the two queries the scan needs
type Querier interface {
	// QueryRows returns up to limit rows with id >= startID in ascending id order
	QueryRows(ctx context.Context, startID int64, limit int) ([]Row, error)
	// QueryMaxID returns the largest id, or 0 for an empty table
	QueryMaxID(ctx context.Context) (int64, error)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ValidateTableName rejects names that cannot be safely interpolated into SQL
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return errs.New(errs.ErrorTypeConfig, fmt.Sprintf("invalid table name %q", table), nil)
	}
	return nil
}

// SQLQuerier implements Querier over database/sql
type SQLQuerier struct {
	db       *sql.DB
	rowsSQL  string
	maxIDSQL string
}

// NewSQLQuerier prepares the queries for table. The caller owns db.
func NewSQLQuerier(db *sql.DB, table string) (*SQLQuerier, error) {
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	return &SQLQuerier{
		db:       db,
		rowsSQL:  fmt.Sprintf("SELECT id, ref_id, image_path FROM %s WHERE id >= ? ORDER BY id LIMIT ?", table),
		maxIDSQL: fmt.Sprintf("SELECT MAX(id) FROM %s", table),
	}, nil
}

// QueryRows implements Querier
func (q *SQLQuerier) QueryRows(ctx context.Context, startID int64, limit int) ([]Row, error) {
	rows, err := q.db.QueryContext(ctx, q.rowsSQL, startID, limit)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeDatabase, "batch query failed", err)
	}
	defer rows.Close()

	batch := make([]Row, 0, limit)
	for rows.Next() {
		var (
			row   Row
			refID sql.NullString
			path  sql.NullString
		)
		if err := rows.Scan(&row.ID, &refID, &path); err != nil {
			return nil, errs.New(errs.ErrorTypeDatabase, "failed to scan row", err)
		}
		row.RefID = NullRefID
		if refID.Valid {
			row.RefID = refID.String
		}
		row.ImagePath = path.String
		batch = append(batch, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.New(errs.ErrorTypeDatabase, "batch iteration failed", err)
	}

	return batch, nil
}

// QueryMaxID implements Querier
func (q *SQLQuerier) QueryMaxID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	if err := q.db.QueryRowContext(ctx, q.maxIDSQL).Scan(&maxID); err != nil {
		return 0, errs.New(errs.ErrorTypeDatabase, "max id query failed", err)
	}
	return maxID.Int64, nil
}
