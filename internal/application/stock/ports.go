package stock

import (
	"context"

	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad: o existen todas las
// líneas, deltas de ledger y divergencias de la operación, o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		divRepo repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		orderRepo repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error) error
}

// BalanceCache caché opcional de saldos por sucursal para la consulta de
// stock disponible. Los casos de uso de escritura invalidan la sucursal
// afectada tras cada commit; la implementación puede ser nil-segura vía
// el no-op de infraestructura.
type BalanceCache interface {
	GetBranch(ctx context.Context, branchID string) ([]*entity.BranchBalance, bool)
	SetBranch(ctx context.Context, branchID string, balances []*entity.BranchBalance)
	Invalidate(ctx context.Context, branchID string)
}
