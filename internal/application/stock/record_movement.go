package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/compras-api/internal/domain"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
	domstock "github.com/tu-usuario/compras-api/internal/domain/stock"
)

// RecordMovementUseCase registra movimientos de stock de forma transaccional
// (RECEIPT, MANUAL_IN, MANUAL_OUT, TRANSFER) con bloqueo de fila
// (SELECT FOR UPDATE) en los saldos que se decrementan y Commit/Rollback.
type RecordMovementUseCase struct {
	txRunner   TxRunner
	orderRepo  repository.PurchaseOrderRepository
	branchRepo repository.BranchRepository
	itemRepo   repository.ItemRepository
	cache      BalanceCache
}

// NewRecordMovementUseCase construye el caso de uso. Los repos de orden,
// sucursal e ítem se usan solo para validaciones de lectura fuera de la tx.
func NewRecordMovementUseCase(
	txRunner TxRunner,
	orderRepo repository.PurchaseOrderRepository,
	branchRepo repository.BranchRepository,
	itemRepo repository.ItemRepository,
	cache BalanceCache,
) *RecordMovementUseCase {
	return &RecordMovementUseCase{
		txRunner:   txRunner,
		orderRepo:  orderRepo,
		branchRepo: branchRepo,
		itemRepo:   itemRepo,
		cache:      cache,
	}
}

// ReceiptLineInput una línea recibida contra la orden: cantidad y precio
// unitario efectivos en la entrega.
type ReceiptLineInput struct {
	ItemID    string
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

// ReceiptInput entrada para registrar la recepción de una orden de compra.
type ReceiptInput struct {
	PurchaseOrderID string
	BranchID        *string
	UserID          string
	Note            string
	InvoiceNumber   *string
	InvoiceKey      *string
	InvoiceIssuedAt *time.Time
	Lines           []ReceiptLineInput
}

// ReceiptResult identificador del movimiento y si quedó alguna línea en auditoría.
type ReceiptResult struct {
	MovementID    string
	HasDivergence bool
}

// ManualLineInput una línea de movimiento manual o traslado (cantidad positiva).
type ManualLineInput struct {
	ItemID    string
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

// ManualInput entrada para entradas/salidas manuales sobre una sucursal.
type ManualInput struct {
	BranchID string
	UserID   string
	Note     string
	Lines    []ManualLineInput
}

// TransferInput entrada para traslados entre sucursales.
type TransferInput struct {
	FromBranchID string
	ToBranchID   string
	UserID       string
	Note         string
	Lines        []ManualLineInput
}

// MovementResult identificador del movimiento registrado.
type MovementResult struct {
	MovementID string
}

// RecordReceipt registra la recepción de una orden de compra en una sola
// transacción: guard de recepción duplicada, cabecera, una línea por ítem con
// detección de divergencias, asiento inmediato de las líneas limpias y
// recomputo del estado final antes del commit. Las líneas divergentes quedan
// PENDING_AUDIT y no tocan el ledger: el ledger nunca refleja cantidades en
// disputa.
func (uc *RecordMovementUseCase) RecordReceipt(ctx context.Context, input ReceiptInput) (*ReceiptResult, error) {
	if input.PurchaseOrderID == "" || input.UserID == "" || len(input.Lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	seen := make(map[string]bool, len(input.Lines))
	for _, ln := range input.Lines {
		if ln.ItemID == "" || !ln.Quantity.GreaterThan(decimal.Zero) || ln.UnitPrice.LessThan(decimal.Zero) || seen[ln.ItemID] {
			return nil, domain.ErrInvalidInput
		}
		seen[ln.ItemID] = true
	}

	order, err := uc.orderRepo.GetByID(input.PurchaseOrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if order.Status == entity.OrderStatusCancelled {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.checkBranch(input.BranchID); err != nil {
		return nil, err
	}
	if err := uc.checkItems(receiptItemIDs(input.Lines)); err != nil {
		return nil, err
	}

	now := time.Now()
	result := &ReceiptResult{}

	err = uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		divRepo repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		orderRepo repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		// Idempotencia de recepción: una orden se recibe exactamente una vez
		// (excluyendo intentos cancelados). El índice único parcial en la tabla
		// cubre la carrera entre dos primeras recepciones concurrentes.
		exists, err := movRepo.ExistsActiveReceipt(input.PurchaseOrderID)
		if err != nil {
			return err
		}
		if exists {
			return &domain.DuplicateReceiptError{PurchaseOrderID: input.PurchaseOrderID}
		}

		orderLines, err := orderRepo.ListLines(input.PurchaseOrderID)
		if err != nil {
			return err
		}
		ordered := make(map[string]*entity.PurchaseOrderLine, len(orderLines))
		for _, ol := range orderLines {
			ordered[ol.ItemID] = ol
		}

		mov := &entity.Movement{
			ID:              uuid.New().String(),
			Kind:            entity.MovementKindReceipt,
			PurchaseOrderID: &input.PurchaseOrderID,
			BranchID:        input.BranchID,
			UserID:          input.UserID,
			Note:            input.Note,
			InvoiceNumber:   input.InvoiceNumber,
			InvoiceKey:      input.InvoiceKey,
			InvoiceIssuedAt: input.InvoiceIssuedAt,
			Status:          entity.MovementStatusConcluded, // optimista; se corrige abajo
			CreatedAt:       now,
		}
		if err := movRepo.Create(mov); err != nil {
			return err
		}

		pending := 0
		for _, ln := range input.Lines {
			ol, ok := ordered[ln.ItemID]
			if !ok {
				return fmt.Errorf("ítem %s no pertenece a la orden %s: %w", ln.ItemID, input.PurchaseOrderID, domain.ErrInvalidInput)
			}
			tags := domstock.Detect(domstock.Comparison{
				OrderedQty:    ol.Quantity,
				ReceivedQty:   ln.Quantity,
				OrderedPrice:  ol.UnitPrice,
				ReceivedPrice: ln.UnitPrice,
			})

			price := ln.UnitPrice
			line := &entity.MovementLine{
				ID:         uuid.New().String(),
				MovementID: mov.ID,
				ItemID:     ln.ItemID,
				Quantity:   ln.Quantity,
				UnitPrice:  &price,
				Status:     entity.LineStatusConcluded,
				CreatedAt:  now,
			}
			if len(tags) > 0 {
				line.Status = entity.LineStatusPendingAudit
				pending++
			}
			if err := movRepo.CreateLine(line); err != nil {
				return err
			}

			if len(tags) == 0 {
				// Línea limpia: se asienta de inmediato.
				if err := uc.postInbound(balRepo, input.BranchID, ln.ItemID, ln.Quantity); err != nil {
					return err
				}
				continue
			}
			for _, tag := range tags {
				rec := &entity.DivergenceRecord{
					ID:        uuid.New().String(),
					LineID:    line.ID,
					Kind:      tag.Kind,
					Expected:  tag.Expected,
					Received:  tag.Received,
					Status:    entity.ResolutionPending,
					CreatedAt: now,
				}
				if err := divRepo.Create(rec); err != nil {
					return err
				}
			}
		}

		status := domstock.MovementStatusFromCounts(len(input.Lines), pending)
		if status != mov.Status {
			if err := movRepo.UpdateStatus(mov.ID, status); err != nil {
				return err
			}
		}
		if err := orderRepo.UpdateStatus(input.PurchaseOrderID, domstock.OrderStatusForMovement(status)); err != nil {
			return err
		}
		if err := auditRepo.Append(&entity.AuditEntry{
			ID:        uuid.New().String(),
			Action:    entity.AuditActionMovementCreated,
			UserID:    input.UserID,
			RefID:     mov.ID,
			Detail:    fmt.Sprintf("recepción de orden %s: %d líneas, %d en auditoría", input.PurchaseOrderID, len(input.Lines), pending),
			CreatedAt: now,
		}); err != nil {
			return err
		}

		result.MovementID = mov.ID
		result.HasDivergence = pending > 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, input.BranchID)
	return result, nil
}

// RecordManualIn registra una entrada manual: líneas siempre CONCLUDED (nunca
// elegibles para divergencia) y asiento inmediato en global y sucursal.
func (uc *RecordMovementUseCase) RecordManualIn(ctx context.Context, input ManualInput) (*MovementResult, error) {
	if err := uc.validateManual(input); err != nil {
		return nil, err
	}
	now := time.Now()
	result := &MovementResult{}

	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		_ repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		_ repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		mov, err := uc.createHeader(movRepo, entity.MovementKindManualIn, input.BranchID, "", input.UserID, input.Note, now)
		if err != nil {
			return err
		}
		for _, ln := range input.Lines {
			line := &entity.MovementLine{
				ID:         uuid.New().String(),
				MovementID: mov.ID,
				ItemID:     ln.ItemID,
				Quantity:   ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				Status:     entity.LineStatusConcluded,
				CreatedAt:  now,
			}
			if err := movRepo.CreateLine(line); err != nil {
				return err
			}
			if err := uc.postInbound(balRepo, &input.BranchID, ln.ItemID, ln.Quantity); err != nil {
				return err
			}
		}
		if err := uc.appendMovementAudit(auditRepo, mov, input.UserID, len(input.Lines), now); err != nil {
			return err
		}
		result.MovementID = mov.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, &input.BranchID)
	return result, nil
}

// RecordManualOut registra una salida manual. Cada línea lee el saldo de la
// sucursal bajo bloqueo de fila; si la cantidad solicitada excede el saldo la
// transacción completa aborta con InsufficientStockError: no hay asiento
// parcial en salidas.
func (uc *RecordMovementUseCase) RecordManualOut(ctx context.Context, input ManualInput) (*MovementResult, error) {
	if err := uc.validateManual(input); err != nil {
		return nil, err
	}
	lines := sortedLines(input.Lines)
	now := time.Now()
	result := &MovementResult{}

	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		_ repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		_ repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		mov, err := uc.createHeader(movRepo, entity.MovementKindManualOut, input.BranchID, "", input.UserID, input.Note, now)
		if err != nil {
			return err
		}
		for _, ln := range lines {
			if err := uc.postOutbound(balRepo, input.BranchID, ln.ItemID, ln.Quantity); err != nil {
				return err
			}
			line := &entity.MovementLine{
				ID:         uuid.New().String(),
				MovementID: mov.ID,
				ItemID:     ln.ItemID,
				Quantity:   ln.Quantity.Neg(), // convención: salidas con signo negativo
				UnitPrice:  ln.UnitPrice,
				Status:     entity.LineStatusConcluded,
				CreatedAt:  now,
			}
			if err := movRepo.CreateLine(line); err != nil {
				return err
			}
		}
		if err := uc.appendMovementAudit(auditRepo, mov, input.UserID, len(lines), now); err != nil {
			return err
		}
		result.MovementID = mov.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, &input.BranchID)
	return result, nil
}

// RecordTransfer registra un traslado: resta en la sucursal origen (bajo
// bloqueo y con guard de saldo) y suma en destino, en la misma transacción.
// El total global no cambia: el traslado es neutro a nivel empresa.
func (uc *RecordMovementUseCase) RecordTransfer(ctx context.Context, input TransferInput) (*MovementResult, error) {
	if input.FromBranchID == "" || input.ToBranchID == "" || input.FromBranchID == input.ToBranchID {
		return nil, domain.ErrInvalidInput
	}
	if err := uc.validateManual(ManualInput{BranchID: input.FromBranchID, UserID: input.UserID, Lines: input.Lines}); err != nil {
		return nil, err
	}
	if err := uc.checkBranch(&input.ToBranchID); err != nil {
		return nil, err
	}
	lines := sortedLines(input.Lines)
	now := time.Now()
	result := &MovementResult{}

	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		_ repository.DivergenceRepository,
		balRepo repository.BalanceRepository,
		_ repository.PurchaseOrderRepository,
		auditRepo repository.AuditLogRepository,
	) error {
		mov, err := uc.createHeader(movRepo, entity.MovementKindTransfer, input.FromBranchID, input.ToBranchID, input.UserID, input.Note, now)
		if err != nil {
			return err
		}
		for _, ln := range lines {
			bal, err := balRepo.GetBranchForUpdate(input.FromBranchID, ln.ItemID)
			if err != nil {
				return err
			}
			if bal.Quantity.LessThan(ln.Quantity) {
				return &domain.InsufficientStockError{
					ItemID:    ln.ItemID,
					BranchID:  input.FromBranchID,
					Requested: ln.Quantity,
					Available: bal.Quantity,
				}
			}
			if err := balRepo.AddBranch(input.FromBranchID, ln.ItemID, ln.Quantity.Neg()); err != nil {
				return err
			}
			if err := balRepo.AddBranch(input.ToBranchID, ln.ItemID, ln.Quantity); err != nil {
				return err
			}
			line := &entity.MovementLine{
				ID:         uuid.New().String(),
				MovementID: mov.ID,
				ItemID:     ln.ItemID,
				Quantity:   ln.Quantity,
				UnitPrice:  ln.UnitPrice,
				Status:     entity.LineStatusConcluded,
				CreatedAt:  now,
			}
			if err := movRepo.CreateLine(line); err != nil {
				return err
			}
		}
		if err := uc.appendMovementAudit(auditRepo, mov, input.UserID, len(lines), now); err != nil {
			return err
		}
		result.MovementID = mov.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.invalidate(ctx, &input.FromBranchID)
	uc.invalidate(ctx, &input.ToBranchID)
	return result, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (uc *RecordMovementUseCase) validateManual(input ManualInput) error {
	if input.BranchID == "" || input.UserID == "" || len(input.Lines) == 0 {
		return domain.ErrInvalidInput
	}
	seen := make(map[string]bool, len(input.Lines))
	for _, ln := range input.Lines {
		if ln.ItemID == "" || !ln.Quantity.GreaterThan(decimal.Zero) || seen[ln.ItemID] {
			return domain.ErrInvalidInput
		}
		seen[ln.ItemID] = true
	}
	if err := uc.checkBranch(&input.BranchID); err != nil {
		return err
	}
	return uc.checkItems(manualItemIDs(input.Lines))
}

func (uc *RecordMovementUseCase) checkBranch(branchID *string) error {
	if branchID == nil || *branchID == "" {
		return nil
	}
	branch, err := uc.branchRepo.GetByID(*branchID)
	if err != nil {
		return err
	}
	if branch == nil {
		return domain.ErrNotFound
	}
	return nil
}

func (uc *RecordMovementUseCase) checkItems(itemIDs []string) error {
	for _, id := range itemIDs {
		item, err := uc.itemRepo.GetByID(id)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrNotFound
		}
	}
	return nil
}

func (uc *RecordMovementUseCase) createHeader(
	movRepo repository.MovementRepository,
	kind, branchID, destBranchID, userID, note string,
	now time.Time,
) (*entity.Movement, error) {
	mov := &entity.Movement{
		ID:        uuid.New().String(),
		Kind:      kind,
		BranchID:  &branchID,
		UserID:    userID,
		Note:      note,
		Status:    entity.MovementStatusConcluded,
		CreatedAt: now,
	}
	if destBranchID != "" {
		mov.DestBranchID = &destBranchID
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// postInbound asienta una entrada: total global siempre; saldo de sucursal
// solo cuando hay ruteo. Incremento atómico, no requiere bloqueo previo.
func (uc *RecordMovementUseCase) postInbound(balRepo repository.BalanceRepository, branchID *string, itemID string, qty decimal.Decimal) error {
	if err := balRepo.AddGlobal(itemID, qty); err != nil {
		return err
	}
	if branchID != nil && *branchID != "" {
		return balRepo.AddBranch(*branchID, itemID, qty)
	}
	return nil
}

// postOutbound asienta una salida: lee el saldo bajo bloqueo, verifica
// no-negatividad y decrementa sucursal y global.
func (uc *RecordMovementUseCase) postOutbound(balRepo repository.BalanceRepository, branchID, itemID string, qty decimal.Decimal) error {
	bal, err := balRepo.GetBranchForUpdate(branchID, itemID)
	if err != nil {
		return err
	}
	if bal.Quantity.LessThan(qty) {
		return &domain.InsufficientStockError{
			ItemID:    itemID,
			BranchID:  branchID,
			Requested: qty,
			Available: bal.Quantity,
		}
	}
	if err := balRepo.AddBranch(branchID, itemID, qty.Neg()); err != nil {
		return err
	}
	return balRepo.AddGlobal(itemID, qty.Neg())
}

func (uc *RecordMovementUseCase) appendMovementAudit(auditRepo repository.AuditLogRepository, mov *entity.Movement, userID string, lineCount int, now time.Time) error {
	return auditRepo.Append(&entity.AuditEntry{
		ID:        uuid.New().String(),
		Action:    entity.AuditActionMovementCreated,
		UserID:    userID,
		RefID:     mov.ID,
		Detail:    fmt.Sprintf("%s: %d líneas", mov.Kind, lineCount),
		CreatedAt: now,
	})
}

func (uc *RecordMovementUseCase) invalidate(ctx context.Context, branchID *string) {
	if uc.cache == nil || branchID == nil || *branchID == "" {
		return
	}
	uc.cache.Invalidate(ctx, *branchID)
}

// sortedLines devuelve las líneas en orden estable por ítem: los bloqueos de
// fila se toman siempre en el mismo orden para que dos salidas concurrentes
// sobre los mismos ítems no se bloqueen mutuamente.
func sortedLines(lines []ManualLineInput) []ManualLineInput {
	out := make([]ManualLineInput, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func receiptItemIDs(lines []ReceiptLineInput) []string {
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ItemID)
	}
	return ids
}

func manualItemIDs(lines []ManualLineInput) []string {
	ids := make([]string, 0, len(lines))
	for _, ln := range lines {
		ids = append(ids, ln.ItemID)
	}
	return ids
}
