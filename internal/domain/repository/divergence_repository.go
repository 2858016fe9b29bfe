package repository

import (
	"time"

	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

// DivergenceRepository define el puerto de persistencia para los registros de
// divergencia; pertenecen a su línea y se crean junto con ella.
type DivergenceRepository interface {
	Create(record *entity.DivergenceRecord) error
	ListByLine(lineID string) ([]*entity.DivergenceRecord, error)
	// ResolveByLine escribe status, resolutor, justificación y fecha sobre
	// todos los registros de la línea, exactamente una vez.
	ResolveByLine(lineID, status, userID string, justification *string, resolvedAt time.Time) error
	ListPending(limit, offset int) ([]*entity.DivergenceRecord, error)
}
