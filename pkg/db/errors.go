package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation  = "23505"
	sqliteUniqueFailed = "UNIQUE constraint failed: "
)

// IsUniqueViolation reports whether err is a unique constraint failure. When
// constraintName is set, only violations of that constraint match.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if idx := strings.Index(msg, sqliteUniqueFailed); idx >= 0 {
		if constraintName == "" {
			return true
		}
		// sqlite names the column, not the index: "products.name_key" matches ux_products_name_key.
		for _, ref := range strings.Split(msg[idx+len(sqliteUniqueFailed):], ",") {
			ref = strings.TrimSpace(ref)
			if "ux_"+strings.ReplaceAll(ref, ".", "_") == constraintName {
				return true
			}
		}
		return false
	}
	if !strings.Contains(msg, "duplicate key value") {
		return false
	}
	return constraintName == "" || strings.Contains(msg, constraintName)
}

// IsNotFound reports whether err is gorm's record-not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
