package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dimensiones de divergencia entre lo ordenado y lo recibido.
const (
	DivergenceKindQuantity = "QUANTITY"
	DivergenceKindPrice    = "PRICE"
)

// Estados de resolución de una divergencia.
const (
	ResolutionPending  = "PENDING"
	ResolutionApproved = "APPROVED"
	ResolutionRejected = "REJECTED"
)

// DivergenceRecord registra un desajuste detectado en una línea de recepción.
// Una línea puede tener cero, una o dos (cantidad y/o precio), exactamente una
// por dimensión. Inmutable tras la resolución salvo los campos de resolución,
// que se escriben exactamente una vez.
type DivergenceRecord struct {
	ID            string
	LineID        string
	Kind          string
	Expected      decimal.Decimal
	Received      decimal.Decimal
	Status        string
	ResolvedBy    *string
	Justification *string
	ResolvedAt    *time.Time
	CreatedAt     time.Time
}
