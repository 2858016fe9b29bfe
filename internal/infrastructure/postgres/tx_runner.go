package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/compras-api/internal/application/stock"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

// Ensure TxRunner implements stock.TxRunner.
var _ stock.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace
// Commit o Rollback. No hay camino de commit parcial: cualquier error del
// callback revierte líneas, deltas de ledger y divergencias por igual.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	divRepo repository.DivergenceRepository,
	balRepo repository.BalanceRepository,
	orderRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditLogRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	movRepo := NewMovementRepository(tx)
	divRepo := NewDivergenceRepository(tx)
	balRepo := NewBalanceRepository(tx)
	orderRepo := NewPurchaseOrderRepository(tx)
	auditRepo := NewAuditLogRepository(tx)

	if err := fn(movRepo, divRepo, balRepo, orderRepo, auditRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
