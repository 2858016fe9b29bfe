package http

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/tu-usuario/compras-api/internal/application/dto"
	"github.com/tu-usuario/compras-api/internal/domain"
)

var validate = validator.New()

// parseAndValidate parsea el body JSON y corre las reglas `validate` del DTO.
// Devuelve false si ya escribió la respuesta de error.
func parseAndValidate(c *fiber.Ctx, out interface{}) bool {
	if err := c.BodyParser(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		return false
	}
	if err := validate.Struct(out); err != nil {
		_ = c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
		return false
	}
	return true
}

// validationMessage resume el primer campo inválido para el cliente.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("campo %s no cumple la regla %s", fe.Field(), fe.Tag())
	}
	return "datos inválidos"
}

// writeDomainError traduce los errores de dominio a respuestas HTTP.
func writeDomainError(c *fiber.Ctx, err error) error {
	var dup *domain.DuplicateReceiptError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE_RECEIPT", Message: dup.Error()})
	}
	var insuf *domain.InsufficientStockError
	if errors.As(err, &insuf) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "INSUFFICIENT_STOCK", Message: insuf.Error()})
	}
	var resolved *domain.AlreadyResolvedError
	if errors.As(err, &resolved) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALREADY_RESOLVED", Message: resolved.Error()})
	}
	if errors.Is(err, domain.ErrJustificationRequired) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "JUSTIFICATION_REQUIRED", Message: "el rechazo requiere justificación"})
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
