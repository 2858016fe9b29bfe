package stock

import (
	"context"
	"time"

	"github.com/tu-usuario/compras-api/internal/domain"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

// QueryUseCase consultas de solo lectura sobre el motor: stock disponible por
// sucursal, listado y detalle de movimientos, y cola de auditoría pendiente.
// Todas las lecturas son sin bloqueo.
type QueryUseCase struct {
	movRepo    repository.MovementRepository
	divRepo    repository.DivergenceRepository
	balRepo    repository.BalanceRepository
	branchRepo repository.BranchRepository
	cache      BalanceCache
}

// NewQueryUseCase construye el caso de uso con repos atados al pool.
func NewQueryUseCase(
	movRepo repository.MovementRepository,
	divRepo repository.DivergenceRepository,
	balRepo repository.BalanceRepository,
	branchRepo repository.BranchRepository,
	cache BalanceCache,
) *QueryUseCase {
	return &QueryUseCase{
		movRepo:    movRepo,
		divRepo:    divRepo,
		balRepo:    balRepo,
		branchRepo: branchRepo,
		cache:      cache,
	}
}

// GetAvailableStock devuelve los saldos de una sucursal, cache-aside: lee de
// Redis si hay entrada fresca, si no consulta la BD y puebla el caché. Los
// casos de uso de escritura invalidan la sucursal tras cada asiento.
func (uc *QueryUseCase) GetAvailableStock(ctx context.Context, branchID string) ([]*entity.BranchBalance, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	branch, err := uc.branchRepo.GetByID(branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, domain.ErrNotFound
	}
	if uc.cache != nil {
		if balances, ok := uc.cache.GetBranch(ctx, branchID); ok {
			return balances, nil
		}
	}
	balances, err := uc.balRepo.ListByBranch(branchID)
	if err != nil {
		return nil, err
	}
	if uc.cache != nil {
		uc.cache.SetBranch(ctx, branchID, balances)
	}
	return balances, nil
}

// ListMovements lista movimientos de una sucursal en un rango de fechas.
func (uc *QueryUseCase) ListMovements(ctx context.Context, branchID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	if branchID == "" {
		return nil, domain.ErrInvalidInput
	}
	return uc.movRepo.ListByBranch(branchID, from, to, limit, offset)
}

// MovementDetail cabecera con sus líneas y las divergencias de cada una: lo
// que un auditor abre antes de resolver.
type MovementDetail struct {
	Movement    *entity.Movement
	Lines       []*entity.MovementLine
	Divergences map[string][]*entity.DivergenceRecord // por ID de línea
}

// GetMovementDetail devuelve el detalle completo de un movimiento.
func (uc *QueryUseCase) GetMovementDetail(ctx context.Context, movementID string) (*MovementDetail, error) {
	mov, err := uc.movRepo.GetByID(movementID)
	if err != nil {
		return nil, err
	}
	if mov == nil {
		return nil, domain.ErrNotFound
	}
	lines, err := uc.movRepo.ListLines(movementID)
	if err != nil {
		return nil, err
	}
	detail := &MovementDetail{
		Movement:    mov,
		Lines:       lines,
		Divergences: make(map[string][]*entity.DivergenceRecord),
	}
	if mov.Kind != entity.MovementKindReceipt {
		return detail, nil
	}
	for _, line := range lines {
		records, err := uc.divRepo.ListByLine(line.ID)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			detail.Divergences[line.ID] = records
		}
	}
	return detail, nil
}

// ListPendingAudits lista los registros de divergencia aún PENDING: la cola
// de trabajo de los auditores.
func (uc *QueryUseCase) ListPendingAudits(ctx context.Context, limit, offset int) ([]*entity.DivergenceRecord, error) {
	return uc.divRepo.ListPending(limit, offset)
}
