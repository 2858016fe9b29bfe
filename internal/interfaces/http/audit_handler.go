package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/compras-api/internal/application/dto"
	"github.com/tu-usuario/compras-api/internal/application/stock"
)

// AuditHandler maneja la resolución de divergencias y la cola de auditoría (protegido, rol auditor).
type AuditHandler struct {
	resolver *stock.ResolveDivergenceUseCase
	query    *stock.QueryUseCase
}

// NewAuditHandler construye el handler.
func NewAuditHandler(resolver *stock.ResolveDivergenceUseCase, query *stock.QueryUseCase) *AuditHandler {
	return &AuditHandler{resolver: resolver, query: query}
}

// ResolveLine godoc
// @Summary      Resolver una línea en auditoría
// @Description  APPROVE asienta la cantidad recibida (redondeada a unidad entera) y
//
//	REJECT descarta la línea; el rechazo exige justificación. Si era la
//	última línea pendiente, cierra el movimiento y finaliza la orden.
//
// @Tags         audit
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID de la línea"
// @Param        body  body  dto.ResolveDivergenceRequest  true  "decision (APPROVE|REJECT), justification"
// @Success      200   {object}  dto.ResolveDivergenceResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/audit/lines/{id}/resolve [post]
func (h *AuditHandler) ResolveLine(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ResolveDivergenceRequest
	if !parseAndValidate(c, &in) {
		return nil
	}
	result, err := h.resolver.Resolve(c.Context(), stock.ResolveInput{
		LineID:        c.Params("id"),
		UserID:        userID,
		Approve:       in.Decision == "APPROVE",
		Justification: in.Justification,
	})
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(dto.ResolveDivergenceResponse{
		LineStatus:     result.LineStatus,
		MovementStatus: result.MovementStatus,
		OrderStatus:    result.OrderStatus,
	})
}

// ListPending godoc
// @Summary      Cola de divergencias pendientes de resolución
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Máximo de filas (default 20)"
// @Param        offset  query  int  false  "Desplazamiento"
// @Success      200  {array}   dto.DivergenceResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/audit/pending [get]
func (h *AuditHandler) ListPending(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	page.DefaultPage()
	pending, err := h.query.ListPendingAudits(c.Context(), page.Limit, page.Offset)
	if err != nil {
		return writeDomainError(c, err)
	}
	out := make([]dto.DivergenceResponse, 0, len(pending))
	for _, d := range pending {
		out = append(out, toDivergenceResponse(d))
	}
	return c.JSON(fiber.Map{"total": len(out), "pending": out})
}
