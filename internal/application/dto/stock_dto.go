package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Recepciones ───────────────────────────────────────────────────────────────

// ReceiptLineRequest línea recibida contra una orden de compra.
type ReceiptLineRequest struct {
	ItemID    string          `json:"item_id" validate:"required,uuid4"`
	Quantity  decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
}

// RecordReceiptRequest body para POST /api/stock/receipts.
// branch_id opcional: si va vacío la recepción solo asienta el saldo global.
type RecordReceiptRequest struct {
	PurchaseOrderID string               `json:"purchase_order_id" validate:"required,uuid4"`
	BranchID        *string              `json:"branch_id,omitempty" validate:"omitempty,uuid4"`
	Note            string               `json:"note,omitempty" validate:"max=500"`
	InvoiceNumber   *string              `json:"invoice_number,omitempty" validate:"omitempty,max=50"`
	InvoiceKey      *string              `json:"invoice_key,omitempty" validate:"omitempty,max=100"`
	InvoiceIssuedAt *time.Time           `json:"invoice_issued_at,omitempty"`
	Lines           []ReceiptLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// RecordReceiptResponse respuesta de POST /api/stock/receipts.
type RecordReceiptResponse struct {
	MovementID    string `json:"movement_id"`
	HasDivergence bool   `json:"has_divergence"`
}

// ── Movimientos manuales y traslados ──────────────────────────────────────────

// ManualLineRequest línea de movimiento manual o traslado (cantidad positiva).
type ManualLineRequest struct {
	ItemID    string           `json:"item_id" validate:"required,uuid4"`
	Quantity  decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// ManualMovementRequest body para POST /api/stock/manual-in y /manual-out.
type ManualMovementRequest struct {
	BranchID string              `json:"branch_id" validate:"required,uuid4"`
	Note     string              `json:"note,omitempty" validate:"max=500"`
	Lines    []ManualLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// TransferRequest body para POST /api/stock/transfers.
type TransferRequest struct {
	FromBranchID string              `json:"from_branch_id" validate:"required,uuid4"`
	ToBranchID   string              `json:"to_branch_id" validate:"required,uuid4"`
	Note         string              `json:"note,omitempty" validate:"max=500"`
	Lines        []ManualLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// MovementCreatedResponse respuesta de los registros de movimiento.
type MovementCreatedResponse struct {
	MovementID string `json:"movement_id"`
}

// ── Auditoría ─────────────────────────────────────────────────────────────────

// ResolveDivergenceRequest body para POST /api/audit/lines/:id/resolve.
// justification obligatoria cuando decision = REJECT.
type ResolveDivergenceRequest struct {
	Decision      string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Justification string `json:"justification,omitempty" validate:"max=1000"`
}

// ResolveDivergenceResponse estados resultantes tras resolver una línea.
type ResolveDivergenceResponse struct {
	LineStatus     string  `json:"line_status"`
	MovementStatus string  `json:"movement_status"`
	OrderStatus    *string `json:"order_status,omitempty"`
}

// DivergenceResponse registro de divergencia en respuestas.
type DivergenceResponse struct {
	ID            string          `json:"id"`
	LineID        string          `json:"line_id"`
	Kind          string          `json:"kind"`
	Expected      decimal.Decimal `json:"expected"`
	Received      decimal.Decimal `json:"received"`
	Status        string          `json:"status"`
	ResolvedBy    *string         `json:"resolved_by,omitempty"`
	Justification *string         `json:"justification,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ── Consultas ─────────────────────────────────────────────────────────────────

// ListMovementsRequest query params para GET /api/stock/movements.
type ListMovementsRequest struct {
	PageRequest
	BranchID string `query:"branch_id" validate:"required,uuid4"`
	From     string `query:"from"` // YYYY-MM-DD
	To       string `query:"to"`   // YYYY-MM-DD
}

// BranchStockResponse saldo disponible de un ítem en una sucursal.
type BranchStockResponse struct {
	ItemID    string          `json:"item_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// MovementResponse cabecera de movimiento en listados.
type MovementResponse struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	Status          string     `json:"status"`
	PurchaseOrderID *string    `json:"purchase_order_id,omitempty"`
	BranchID        *string    `json:"branch_id,omitempty"`
	DestBranchID    *string    `json:"dest_branch_id,omitempty"`
	UserID          string     `json:"user_id"`
	Note            string     `json:"note,omitempty"`
	InvoiceNumber   *string    `json:"invoice_number,omitempty"`
	InvoiceKey      *string    `json:"invoice_key,omitempty"`
	InvoiceIssuedAt *time.Time `json:"invoice_issued_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MovementLineResponse línea de movimiento con sus divergencias (si las hay).
type MovementLineResponse struct {
	ID          string               `json:"id"`
	ItemID      string               `json:"item_id"`
	Quantity    decimal.Decimal      `json:"quantity"`
	UnitPrice   *decimal.Decimal     `json:"unit_price,omitempty"`
	Status      string               `json:"status"`
	Divergences []DivergenceResponse `json:"divergences,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// MovementDetailResponse respuesta de GET /api/stock/movements/:id.
type MovementDetailResponse struct {
	Movement MovementResponse       `json:"movement"`
	Lines    []MovementLineResponse `json:"lines"`
}
