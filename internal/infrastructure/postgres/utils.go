package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Índice único parcial que garantiza una sola recepción no cancelada por orden.
const uqReceiptPerOrder = "uq_receipt_per_order"

// uniqueViolation informa si err es una violación de constraint único
// (SQLSTATE 23505) y, de serlo, el nombre del constraint violado. El caller
// decide qué error de dominio corresponde según el constraint.
func uniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
