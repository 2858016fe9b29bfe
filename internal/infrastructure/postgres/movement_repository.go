package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/compras-api/internal/domain"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación de MovementRepository sobre PostgreSQL
// (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `id, kind, purchase_order_id, branch_id, dest_branch_id, user_id, note,
	invoice_number, invoice_key, invoice_issued_at, status, created_at`

// Create persiste la cabecera del movimiento. El índice único parcial
// uq_receipt_per_order (una recepción no cancelada por orden) se traduce a
// DuplicateReceiptError: dos primeras recepciones concurrentes no pueden
// hacer commit ambas.
func (r *MovementRepo) Create(movement *entity.Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		movement.ID, movement.Kind, movement.PurchaseOrderID, movement.BranchID,
		movement.DestBranchID, movement.UserID, movement.Note,
		movement.InvoiceNumber, movement.InvoiceKey, movement.InvoiceIssuedAt,
		movement.Status, movement.CreatedAt,
	)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == uqReceiptPerOrder && movement.PurchaseOrderID != nil {
			return &domain.DuplicateReceiptError{PurchaseOrderID: *movement.PurchaseOrderID}
		}
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// CreateLine persiste una línea del movimiento.
func (r *MovementRepo) CreateLine(line *entity.MovementLine) error {
	if line.ID == "" {
		line.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movement_lines (id, movement_id, item_id, quantity, unit_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		line.ID, line.MovementID, line.ItemID, line.Quantity, line.UnitPrice, line.Status, line.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement line: %w", err)
	}
	return nil
}

// GetByID obtiene una cabecera por ID.
func (r *MovementRepo) GetByID(id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	return r.scanMovement(r.q.QueryRow(context.Background(), query, id))
}

// GetForUpdate obtiene la cabecera y bloquea su fila (SELECT FOR UPDATE).
// La resolución la toma antes de escribir estados: dos auditores cerrando las
// dos últimas líneas de un movimiento se serializan aquí y el segundo cuenta
// pendientes viendo ya la resolución confirmada del primero.
func (r *MovementRepo) GetForUpdate(id string) (*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1 FOR UPDATE`
	return r.scanMovement(r.q.QueryRow(context.Background(), query, id))
}

// GetLineByID obtiene una línea por ID.
func (r *MovementRepo) GetLineByID(id string) (*entity.MovementLine, error) {
	query := `
		SELECT id, movement_id, item_id, quantity, unit_price, status, created_at
		FROM stock_movement_lines WHERE id = $1`
	return r.scanLine(r.q.QueryRow(context.Background(), query, id))
}

// GetLineForUpdate obtiene la línea y bloquea su fila (SELECT FOR UPDATE):
// dos resoluciones sobre la misma línea se serializan aquí.
func (r *MovementRepo) GetLineForUpdate(id string) (*entity.MovementLine, error) {
	query := `
		SELECT id, movement_id, item_id, quantity, unit_price, status, created_at
		FROM stock_movement_lines WHERE id = $1
		FOR UPDATE`
	return r.scanLine(r.q.QueryRow(context.Background(), query, id))
}

// ListLines lista las líneas de un movimiento en orden de inserción.
func (r *MovementRepo) ListLines(movementID string) ([]*entity.MovementLine, error) {
	query := `
		SELECT id, movement_id, item_id, quantity, unit_price, status, created_at
		FROM stock_movement_lines WHERE movement_id = $1
		ORDER BY created_at, id`
	rows, err := r.q.Query(context.Background(), query, movementID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	defer rows.Close()
	var list []*entity.MovementLine
	for rows.Next() {
		var l entity.MovementLine
		if err := rows.Scan(&l.ID, &l.MovementID, &l.ItemID, &l.Quantity, &l.UnitPrice, &l.Status, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}

// CountPendingLines cuenta las líneas hermanas aún PENDING_AUDIT. Debe correr
// en la misma transacción que la resolución que dispara el cierre.
func (r *MovementRepo) CountPendingLines(movementID string) (int, error) {
	query := `
		SELECT count(*) FROM stock_movement_lines
		WHERE movement_id = $1 AND status = $2`
	var n int
	err := r.q.QueryRow(context.Background(), query, movementID, entity.LineStatusPendingAudit).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending lines: %w", err)
	}
	return n, nil
}

// UpdateStatus actualiza el estado de la cabecera.
func (r *MovementRepo) UpdateStatus(id, status string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE stock_movements SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update movement status: %w", err)
	}
	return nil
}

// UpdateLineStatus actualiza el estado de una línea.
func (r *MovementRepo) UpdateLineStatus(id, status string) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE stock_movement_lines SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update line status: %w", err)
	}
	return nil
}

// ExistsActiveReceipt indica si la orden ya tiene una recepción no cancelada.
func (r *MovementRepo) ExistsActiveReceipt(purchaseOrderID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stock_movements
			WHERE kind = $1 AND purchase_order_id = $2 AND status <> $3
		)`
	var exists bool
	err := r.q.QueryRow(context.Background(), query,
		entity.MovementKindReceipt, purchaseOrderID, entity.MovementStatusCancelled).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists active receipt: %w", err)
	}
	return exists, nil
}

// ListByBranch lista movimientos de una sucursal en un rango de fechas.
func (r *MovementRepo) ListByBranch(branchID string, from, to *time.Time, limit, offset int) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE (branch_id = $1 OR dest_branch_id = $1)`
	args := []any{branchID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		// cota superior exclusiva: el handler pasa la medianoche del día siguiente
		query += fmt.Sprintf(" AND created_at < $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by branch: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		var m entity.Movement
		if err := rows.Scan(&m.ID, &m.Kind, &m.PurchaseOrderID, &m.BranchID, &m.DestBranchID,
			&m.UserID, &m.Note, &m.InvoiceNumber, &m.InvoiceKey, &m.InvoiceIssuedAt,
			&m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (r *MovementRepo) scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	err := row.Scan(&m.ID, &m.Kind, &m.PurchaseOrderID, &m.BranchID, &m.DestBranchID,
		&m.UserID, &m.Note, &m.InvoiceNumber, &m.InvoiceKey, &m.InvoiceIssuedAt,
		&m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return &m, nil
}

func (r *MovementRepo) scanLine(row pgx.Row) (*entity.MovementLine, error) {
	var l entity.MovementLine
	err := row.Scan(&l.ID, &l.MovementID, &l.ItemID, &l.Quantity, &l.UnitPrice, &l.Status, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get line: %w", err)
	}
	return &l, nil
}
