package repository

import (
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

// BalanceRepository define el puerto para los saldos del ledger: total global
// por ítem y total por (sucursal, ítem). Son las únicas filas mutadas por más
// de un movimiento a lo largo del tiempo; toda mutación pasa por aquí.
type BalanceRepository interface {
	// GetBranchForUpdate lee el saldo de sucursal con bloqueo de fila
	// (SELECT FOR UPDATE); obligatorio antes de cualquier decremento.
	// Si no existe fila devuelve saldo cero.
	GetBranchForUpdate(branchID, itemID string) (*entity.BranchBalance, error)
	// AddBranch suma delta (negativo para salidas) al saldo de la sucursal de
	// forma atómica (upsert aditivo).
	AddBranch(branchID, itemID string, delta decimal.Decimal) error
	// AddGlobal suma delta al total global del ítem de forma atómica.
	AddGlobal(itemID string, delta decimal.Decimal) error
	GetGlobal(itemID string) (*entity.ItemBalance, error)
	ListByBranch(branchID string) ([]*entity.BranchBalance, error)
}
