package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/db"
)

const columnsQuery = `
SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`

// Columns returns every table of the configured schema with its columns in ordinal order.
func (c *Client) Columns(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	err := c.readOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, columnsQuery, c.cfg.Schema)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var table, column string
			if err := rows.Scan(&table, &column); err != nil {
				return fmt.Errorf("scan column: %w", err)
			}
			out[table] = append(out[table], column)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpIntrospect, Err: err}
	}
	return out, nil
}
