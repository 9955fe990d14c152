package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/db"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/sqlguard"
)

// Execute runs a guarded statement in a read-only transaction with its named parameters.
func (c *Client) Execute(ctx context.Context, q sqlguard.Query) (domain.ResultSet, error) {
	var rs domain.ResultSet
	err := c.readOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, q.SQL, pgx.NamedArgs(q.Params))
		if err != nil {
			return err
		}
		defer rows.Close()

		fields := rows.FieldDescriptions()
		rs.Columns = make([]string, len(fields))
		for i, f := range fields {
			rs.Columns[i] = f.Name
		}

		for rows.Next() {
			values, err := rows.Values()
			if err != nil {
				return fmt.Errorf("read row: %w", err)
			}
			for i, v := range values {
				values[i] = normalize(v)
			}
			rs.Rows = append(rs.Rows, values)
		}
		return rows.Err()
	})
	if err != nil {
		return domain.ResultSet{}, &db.Error{Op: db.OpQuery, Err: err}
	}
	return rs, nil
}

// normalize turns driver values into plain Go values suitable for display.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case [16]byte:
		return fmt.Sprintf("%x-%x-%x-%x-%x", x[0:4], x[4:6], x[6:8], x[8:10], x[10:16])
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	case driver.Valuer:
		if val, err := x.Value(); err == nil {
			return normalize(val)
		}
	}
	return v
}
