package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
	"github.com/tu-usuario/compras-api/internal/domain/repository"
)

var _ repository.DivergenceRepository = (*DivergenceRepo)(nil)

// DivergenceRepo implementación de DivergenceRepository sobre PostgreSQL
// (usable con pool o tx).
type DivergenceRepo struct {
	q Querier
}

// NewDivergenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDivergenceRepository(q Querier) *DivergenceRepo {
	return &DivergenceRepo{q: q}
}

const divergenceColumns = `id, line_id, kind, expected, received, status,
	resolved_by, justification, resolved_at, created_at`

// Create persiste un registro de divergencia junto con su línea.
func (r *DivergenceRepo) Create(record *entity.DivergenceRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	query := `
		INSERT INTO divergence_records (` + divergenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(context.Background(), query,
		record.ID, record.LineID, record.Kind, record.Expected, record.Received,
		record.Status, record.ResolvedBy, record.Justification, record.ResolvedAt, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create divergence: %w", err)
	}
	return nil
}

// ListByLine lista las divergencias de una línea (cero, una o dos).
func (r *DivergenceRepo) ListByLine(lineID string) ([]*entity.DivergenceRecord, error) {
	query := `SELECT ` + divergenceColumns + ` FROM divergence_records WHERE line_id = $1 ORDER BY kind`
	rows, err := r.q.Query(context.Background(), query, lineID)
	if err != nil {
		return nil, fmt.Errorf("list divergences: %w", err)
	}
	defer rows.Close()
	var list []*entity.DivergenceRecord
	for rows.Next() {
		var d entity.DivergenceRecord
		if err := rows.Scan(&d.ID, &d.LineID, &d.Kind, &d.Expected, &d.Received, &d.Status,
			&d.ResolvedBy, &d.Justification, &d.ResolvedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan divergence: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}

// ResolveByLine escribe la resolución sobre todos los registros de la línea.
// Los campos se escriben exactamente una vez: el guard de estado vive en la
// línea, cuya fila el caso de uso mantiene bloqueada.
func (r *DivergenceRepo) ResolveByLine(lineID, status, userID string, justification *string, resolvedAt time.Time) error {
	query := `
		UPDATE divergence_records
		SET status = $2, resolved_by = $3, justification = $4, resolved_at = $5
		WHERE line_id = $1 AND status = $6`
	_, err := r.q.Exec(context.Background(), query,
		lineID, status, userID, justification, resolvedAt, entity.ResolutionPending)
	if err != nil {
		return fmt.Errorf("resolve divergences: %w", err)
	}
	return nil
}

// ListPending lista registros aún PENDING, los más antiguos primero (cola de
// trabajo de auditoría).
func (r *DivergenceRepo) ListPending(limit, offset int) ([]*entity.DivergenceRecord, error) {
	query := `SELECT ` + divergenceColumns + ` FROM divergence_records
		WHERE status = $1 ORDER BY created_at LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(context.Background(), query, entity.ResolutionPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending divergences: %w", err)
	}
	defer rows.Close()
	var list []*entity.DivergenceRecord
	for rows.Next() {
		var d entity.DivergenceRecord
		if err := rows.Scan(&d.ID, &d.LineID, &d.Kind, &d.Expected, &d.Received, &d.Status,
			&d.ResolvedBy, &d.Justification, &d.ResolvedAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan divergence: %w", err)
		}
		list = append(list, &d)
	}
	return list, rows.Err()
}
