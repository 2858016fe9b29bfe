package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemBalance es el saldo global acumulado de un ítem.
type ItemBalance struct {
	ItemID    string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// BranchBalance es el saldo acumulado de un ítem en una sucursal.
// Invariante: las salidas nunca lo llevan por debajo de cero; se garantiza
// leyendo el saldo con bloqueo pesimista dentro de la misma transacción que
// lo decrementa.
type BranchBalance struct {
	BranchID  string
	ItemID    string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}
