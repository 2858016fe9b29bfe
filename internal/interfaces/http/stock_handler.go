package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/compras-api/internal/application/dto"
	"github.com/tu-usuario/compras-api/internal/application/stock"
	"github.com/tu-usuario/compras-api/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP de recepciones, movimientos y saldos (protegido).
type StockHandler struct {
	recorder *stock.RecordMovementUseCase
	query    *stock.QueryUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(recorder *stock.RecordMovementUseCase, query *stock.QueryUseCase) *StockHandler {
	return &StockHandler{recorder: recorder, query: query}
}

// RecordReceipt godoc
// @Summary      Registrar recepción de orden de compra
// @Description  Compara lo recibido contra la orden línea por línea; las líneas
//
//	limpias asientan stock de inmediato y las divergentes quedan en auditoría.
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RecordReceiptRequest  true  "purchase_order_id, branch_id (opcional), lines"
// @Success      201   {object}  dto.RecordReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/receipts [post]
func (h *StockHandler) RecordReceipt(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordReceiptRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	lines := make([]stock.ReceiptLineInput, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, stock.ReceiptLineInput{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	result, err := h.recorder.RecordReceipt(c.Context(), stock.ReceiptInput{
		PurchaseOrderID: in.PurchaseOrderID,
		BranchID:        in.BranchID,
		UserID:          userID,
		Note:            in.Note,
		InvoiceNumber:   in.InvoiceNumber,
		InvoiceKey:      in.InvoiceKey,
		InvoiceIssuedAt: in.InvoiceIssuedAt,
		Lines:           lines,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.RecordReceiptResponse{
		MovementID:    result.MovementID,
		HasDivergence: result.HasDivergence,
	})
}

// RecordManualIn godoc
// @Summary      Registrar entrada manual de stock
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ManualMovementRequest  true  "branch_id, lines"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stock/manual-in [post]
func (h *StockHandler) RecordManualIn(c *fiber.Ctx) error {
	return h.recordManual(c, h.recorder.RecordManualIn)
}

// RecordManualOut godoc
// @Summary      Registrar salida manual de stock
// @Description  Falla con 409 si la sucursal no tiene saldo suficiente para alguna línea.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ManualMovementRequest  true  "branch_id, lines"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/manual-out [post]
func (h *StockHandler) RecordManualOut(c *fiber.Ctx) error {
	return h.recordManual(c, h.recorder.RecordManualOut)
}

func (h *StockHandler) recordManual(c *fiber.Ctx, record func(ctx context.Context, input stock.ManualInput) (*stock.MovementResult, error)) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ManualMovementRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	result, err := record(c.Context(), stock.ManualInput{
		BranchID: in.BranchID,
		UserID:   userID,
		Note:     in.Note,
		Lines:    manualLines(in.Lines),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: result.MovementID})
}

// RecordTransfer godoc
// @Summary      Registrar traslado entre sucursales
// @Description  Descuenta en origen y acredita en destino sin alterar el saldo global.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransferRequest  true  "from_branch_id, to_branch_id, lines"
// @Success      201   {object}  dto.MovementCreatedResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock/transfers [post]
func (h *StockHandler) RecordTransfer(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.TransferRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	result, err := h.recorder.RecordTransfer(c.Context(), stock.TransferInput{
		FromBranchID: in.FromBranchID,
		ToBranchID:   in.ToBranchID,
		UserID:       userID,
		Note:         in.Note,
		Lines:        manualLines(in.Lines),
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementCreatedResponse{MovementID: result.MovementID})
}

// GetAvailableStock godoc
// @Summary      Saldo disponible por sucursal
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la sucursal"
// @Success      200  {array}   dto.BranchStockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/branches/{id} [get]
func (h *StockHandler) GetAvailableStock(c *fiber.Ctx) error {
	branchID := c.Params("id")
	balances, err := h.query.GetAvailableStock(c.Context(), branchID)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.BranchStockResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, dto.BranchStockResponse{ItemID: b.ItemID, Quantity: b.Quantity, UpdatedAt: b.UpdatedAt})
	}
	return c.JSON(fiber.Map{"branch_id": branchID, "items": out})
}

// ListMovements godoc
// @Summary      Listar movimientos de una sucursal
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  true   "ID de la sucursal"
// @Param        from       query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to         query  string  false  "Hasta inclusive (YYYY-MM-DD)"
// @Param        limit      query  int     false  "Máximo de filas (default 20)"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.MovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	var in dto.ListMovementsRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	in.DefaultPage()
	if err := validate.Struct(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	from, to, err := parseDateRange(in.From, in.To)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "fechas con formato YYYY-MM-DD"})
	}
	movements, err := h.query.ListMovements(c.Context(), in.BranchID, from, to, in.Limit, in.Offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	return c.JSON(fiber.Map{"total": len(out), "movements": out})
}

// GetMovementDetail godoc
// @Summary      Detalle de un movimiento con líneas y divergencias
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/{id} [get]
func (h *StockHandler) GetMovementDetail(c *fiber.Ctx) error {
	detail, err := h.query.GetMovementDetail(c.Context(), c.Params("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	resp := dto.MovementDetailResponse{
		Movement: toMovementResponse(detail.Movement),
		Lines:    make([]dto.MovementLineResponse, 0, len(detail.Lines)),
	}
	for _, l := range detail.Lines {
		line := dto.MovementLineResponse{
			ID:        l.ID,
			ItemID:    l.ItemID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Status:    l.Status,
			CreatedAt: l.CreatedAt,
		}
		for _, d := range detail.Divergences[l.ID] {
			line.Divergences = append(line.Divergences, toDivergenceResponse(d))
		}
		resp.Lines = append(resp.Lines, line)
	}
	return c.JSON(resp)
}

func manualLines(in []dto.ManualLineRequest) []stock.ManualLineInput {
	out := make([]stock.ManualLineInput, 0, len(in))
	for _, l := range in {
		out = append(out, stock.ManualLineInput{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	return out
}

// parseDateRange convierte from/to (YYYY-MM-DD) a límites de consulta.
// El límite superior pasa a la medianoche siguiente y el repositorio lo trata
// como cota exclusiva: cubre el día completo de to sin colarse en el
// siguiente.
func parseDateRange(fromStr, toStr string) (from, to *time.Time, err error) {
	if fromStr != "" {
		f, perr := time.Parse("2006-01-02", fromStr)
		if perr != nil {
			return nil, nil, perr
		}
		from = &f
	}
	if toStr != "" {
		t, perr := time.Parse("2006-01-02", toStr)
		if perr != nil {
			return nil, nil, perr
		}
		t = t.Add(24 * time.Hour)
		to = &t
	}
	return from, to, nil
}

func toMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:              m.ID,
		Kind:            m.Kind,
		Status:          m.Status,
		PurchaseOrderID: m.PurchaseOrderID,
		BranchID:        m.BranchID,
		DestBranchID:    m.DestBranchID,
		UserID:          m.UserID,
		Note:            m.Note,
		InvoiceNumber:   m.InvoiceNumber,
		InvoiceKey:      m.InvoiceKey,
		InvoiceIssuedAt: m.InvoiceIssuedAt,
		CreatedAt:       m.CreatedAt,
	}
}

func toDivergenceResponse(d *entity.DivergenceRecord) dto.DivergenceResponse {
	return dto.DivergenceResponse{
		ID:            d.ID,
		LineID:        d.LineID,
		Kind:          d.Kind,
		Expected:      d.Expected,
		Received:      d.Received,
		Status:        d.Status,
		ResolvedBy:    d.ResolvedBy,
		Justification: d.Justification,
		ResolvedAt:    d.ResolvedAt,
		CreatedAt:     d.CreatedAt,
	}
}
