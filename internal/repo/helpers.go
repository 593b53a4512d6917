package repo

import (
	"context"

	"github.com/xxxsen/reframe/internal/pkg/dbutil"
)

// insertReturningID runs a gendry insert and returns the new row id. lib/pq
// has no LastInsertId, so postgres uses RETURNING instead.
func insertReturningID(ctx context.Context, db dbutil.DBTX, driver string, sqlStr string, args []interface{}) (int64, error) {
	if dbutil.BindType(driver) == dbutil.BindType("postgres") {
		sqlStr, args = dbutil.Finalize(driver, sqlStr+" RETURNING id", args)
		var id int64
		if err := db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	sqlStr, args = dbutil.Finalize(driver, sqlStr, args)
	res, err := db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) interface{} {
	if v == nil {
		return nil
	}
	return dbutil.BoolToInt(*v)
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
