package saga

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/reservation/domain"
)

// ValidateHandler 校验必填项、受理方式与类别规则，任何失败都发生在持久化与发布之前。
type ValidateHandler struct {
	NextHandler
}

func (h *ValidateHandler) Handle(c *IntakeContext) error {
	_, span := c.Tracer.Start(c.Ctx, "saga.Validate")
	defer span.End()

	errs := domain.ValidateRequired(c.ItemID, c.Fields)

	switch {
	case c.Item.Means == domain.MeansExternal:
		errs = append(errs, apperr.FieldError{Field: "itemId", Message: "item is handled by an external system"})
	case c.Item.Means != c.Route:
		errs = append(errs, apperr.FieldError{
			Field:   "itemId",
			Message: fmt.Sprintf("item must be requested through the %s route", strings.ToLower(string(c.Item.Means))),
		})
	}

	categoryErrs := domain.ValidatorFor(c.Item.Kind).Validate(c.Fields)
	errs = append(errs, categoryErrs...)
	if c.Item.InventoryManaged && c.Fields.Quantity <= 0 && len(categoryErrs) == 0 {
		errs = append(errs, apperr.FieldError{Field: "quantity", Message: "must be positive"})
	}

	if len(errs) > 0 {
		span.SetStatus(codes.Error, "validation failed")
		return apperr.Validation(errs...)
	}
	return h.executeNext(c)
}
