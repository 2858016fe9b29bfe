package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/compras-api/internal/domain"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
	domstock "github.com/tu-usuario/compras-api/internal/domain/stock"
)

// ResolveDivergenceUseCase adjudica una línea divergente: aprobar asienta la
// cantidad en el ledger, rechazar no; ambas concluyen la línea. Toda la
// resolución corre en una transacción con la fila de la línea bloqueada.
type ResolveDivergenceUseCase struct {
	txRunner TxRunner
	cache    BalanceCache
}

// NewResolveDivergenceUseCase construye el caso de uso.
func NewResolveDivergenceUseCase(txRunner TxRunner, cache BalanceCache) *ResolveDivergenceUseCase {
	return &ResolveDivergenceUseCase{txRunner: txRunner, cache: cache}
}

// ResolveInput decisión de un auditor sobre una línea. La justificación es
// obligatoria al rechazar; al aprobar es opcional pero queda registrada.
type ResolveInput struct {
	LineID        string
	UserID        string
	Approve       bool
	Justification string
}

// ResolveResult estados resultantes de la línea y su movimiento.
type ResolveResult struct {
	LineStatus     string
	MovementStatus string
	OrderStatus    *string // solo si la resolución cerró una recepción con orden
}

// Resolve opera sobre exactamente una línea por invocación:
//  1. bloquea la fila de la línea y verifica que siga PENDING_AUDIT
//     (resolver una línea ya concluida falla con AlreadyResolvedError);
//  2. bloquea la fila de la cabecera del movimiento antes de escribir estado
//     alguno: resoluciones de líneas hermanas se serializan en este bloqueo;
//  3. marca todas sus divergencias APPROVED/REJECTED con resolutor,
//     justificación y fecha;
//  4. si aprueba, asienta la cantidad redondeada a la unidad entera del ledger;
//  5. cuenta las hermanas aún pendientes; si no queda ninguna, cierra el
//     movimiento y finaliza la orden de compra.
//
// El bloqueo de la cabecera es lo que hace confiable el conteo del paso 5: el
// bloqueo de la línea sola no alcanza, porque dos auditores sobre las dos
// últimas líneas tomarían filas disjuntas y, bajo READ COMMITTED, cada conteo
// vería la resolución no confirmada del otro todavía como pendiente.
func (uc *ResolveDivergenceUseCase) Resolve(ctx context.Context, input ResolveInput) (*ResolveResult, error) {
	if input.LineID == "" || input.UserID == "" {
		return nil, domain.ErrInvalidInput
	}
	justification := strings.TrimSpace(input.Justification)
	if !input.Approve && justification == "" {
		return nil, domain.ErrJustificationRequired
	}

	now := time.Now()
	result := &ResolveResult{}
	var branchID *string

	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		divRepo repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		orderRepo repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		line, err := movRepo.GetLineForUpdate(input.LineID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.ErrNotFound
		}
		if line.Status != entity.LineStatusPendingAudit {
			return &domain.AlreadyResolvedError{LineID: line.ID}
		}
		mov, err := movRepo.GetForUpdate(line.MovementID)
		if err != nil {
			return err
		}
		if mov == nil {
			return domain.ErrNotFound
		}

		resolution := entity.ResolutionRejected
		if input.Approve {
			resolution = entity.ResolutionApproved
		}
		var justPtr *string
		if justification != "" {
			justPtr = &justification
		}
		if err := divRepo.ResolveByLine(line.ID, resolution, input.UserID, justPtr, now); err != nil {
			return err
		}

		if input.Approve {
			// Redondeo a unidad entera al aprobar: el ledger no rastrea
			// fracciones aguas abajo.
			qty := line.Quantity.Round(0)
			if err := balRepo.AddGlobal(line.ItemID, qty); err != nil {
				return err
			}
			if mov.BranchID != nil && *mov.BranchID != "" {
				if err := balRepo.AddBranch(*mov.BranchID, line.ItemID, qty); err != nil {
					return err
				}
			}
		}

		// La línea rechazada también queda "resuelta": excluida del stock,
		// no abierta.
		if err := movRepo.UpdateLineStatus(line.ID, entity.LineStatusConcluded); err != nil {
			return err
		}

		movementStatus := mov.Status
		pending, err := movRepo.CountPendingLines(mov.ID)
		if err != nil {
			return err
		}
		if pending == 0 {
			movementStatus = entity.MovementStatusConcluded
			if err := movRepo.UpdateStatus(mov.ID, movementStatus); err != nil {
				return err
			}
			if mov.PurchaseOrderID != nil {
				finalized := domstock.OrderStatusForMovement(movementStatus)
				if err := orderRepo.UpdateStatus(*mov.PurchaseOrderID, finalized); err != nil {
					return err
				}
				result.OrderStatus = &finalized
			}
		}

		if err := auditRepo.Append(&entity.AuditEntry{
			ID:        uuid.New().String(),
			Action:    entity.AuditActionLineResolved,
			UserID:    input.UserID,
			RefID:     line.ID,
			Detail:    fmt.Sprintf("línea %s del movimiento %s: %s (cantidad %s)", line.ID, mov.ID, resolution, line.Quantity),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		branchID = mov.BranchID
		result.LineStatus = entity.LineStatusConcluded
		result.MovementStatus = movementStatus
		return nil
	})
	if err != nil {
		return nil, err
	}
	if input.Approve {
		uc.invalidate(ctx, branchID)
	}
	return result, nil
}

func (uc *ResolveDivergenceUseCase) invalidate(ctx context.Context, branchID *string) {
	if uc.cache == nil || branchID == nil || *branchID == "" {
		return
	}
	uc.cache.Invalidate(ctx, *branchID)
}
