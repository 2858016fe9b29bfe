package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

// BalanceRepo implementación de BalanceRepository sobre PostgreSQL (usable con
// pool o tx). Toda mutación del ledger pasa por aquí: es el contrato de acceso
// exclusivo (lock, leer, escribir) sobre las únicas filas compartidas del motor.
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

// GetBranchForUpdate obtiene el saldo de la sucursal y bloquea la fila
// (SELECT FOR UPDATE). Dos salidas concurrentes sobre la misma sucursal+ítem
// se serializan aquí; sin fila existente devuelve saldo cero.
func (r *BalanceRepo) GetBranchForUpdate(branchID, itemID string) (*entity.BranchBalance, error) {
	query := `
		SELECT branch_id, item_id, quantity, updated_at
		FROM branch_balances WHERE branch_id = $1 AND item_id = $2
		FOR UPDATE`
	var b entity.BranchBalance
	err := r.q.QueryRow(context.Background(), query, branchID, itemID).Scan(
		&b.BranchID, &b.ItemID, &b.Quantity, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.BranchBalance{BranchID: branchID, ItemID: itemID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get branch balance for update: %w", err)
	}
	return &b, nil
}

// AddBranch suma delta al saldo de la sucursal (upsert aditivo, atómico).
func (r *BalanceRepo) AddBranch(branchID, itemID string, delta decimal.Decimal) error {
	query := `
		INSERT INTO branch_balances (branch_id, item_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (branch_id, item_id)
		DO UPDATE SET quantity = branch_balances.quantity + EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query, branchID, itemID, delta)
	if err != nil {
		return fmt.Errorf("add branch balance: %w", err)
	}
	return nil
}

// AddGlobal suma delta al total global del ítem (upsert aditivo, atómico).
func (r *BalanceRepo) AddGlobal(itemID string, delta decimal.Decimal) error {
	query := `
		INSERT INTO item_balances (item_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (item_id)
		DO UPDATE SET quantity = item_balances.quantity + EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query, itemID, delta)
	if err != nil {
		return fmt.Errorf("add global balance: %w", err)
	}
	return nil
}

// GetGlobal obtiene el total global de un ítem (saldo cero si no hay fila).
func (r *BalanceRepo) GetGlobal(itemID string) (*entity.ItemBalance, error) {
	query := `SELECT item_id, quantity, updated_at FROM item_balances WHERE item_id = $1`
	var b entity.ItemBalance
	err := r.q.QueryRow(context.Background(), query, itemID).Scan(&b.ItemID, &b.Quantity, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.ItemBalance{ItemID: itemID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get global balance: %w", err)
	}
	return &b, nil
}

// ListByBranch lista los saldos de una sucursal (lectura sin bloqueo).
func (r *BalanceRepo) ListByBranch(branchID string) ([]*entity.BranchBalance, error) {
	query := `
		SELECT branch_id, item_id, quantity, updated_at
		FROM branch_balances WHERE branch_id = $1
		ORDER BY item_id`
	rows, err := r.q.Query(context.Background(), query, branchID)
	if err != nil {
		return nil, fmt.Errorf("list branch balances: %w", err)
	}
	defer rows.Close()
	var list []*entity.BranchBalance
	for rows.Next() {
		var b entity.BranchBalance
		if err := rows.Scan(&b.BranchID, &b.ItemID, &b.Quantity, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch balance: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
