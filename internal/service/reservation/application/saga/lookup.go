package saga

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)

// LookupHandler 并发查询物品目录与申请人资料。
type LookupHandler struct {
	NextHandler
}

func (h *LookupHandler) Handle(c *IntakeContext) error {
	ctx, span := c.Tracer.Start(c.Ctx, "saga.Lookup")
	defer span.End()

	// 没有物品 ID 时不查询目录，直接报告全部必填项
	if c.ItemID == "" {
		return apperr.Validation(domain.ValidateRequired(c.ItemID, c.Fields)...)
	}
	span.SetAttributes(attribute.String("item.id", c.ItemID), attribute.String("user.id", c.Actor.UserID))

	var (
		item    *port.Item
		profile *port.Profile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		item, err = c.Catalog.GetItem(gctx, c.ItemID)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = c.Users.GetProfile(gctx, c.Actor.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return err
	}
	c.Item, c.Profile = item, profile

	// 申请人未填写联系方式时使用资料中的
	if c.Fields.Phone == "" {
		c.Fields.Phone = profile.Phone
	}
	if c.Fields.Email == "" {
		c.Fields.Email = profile.Email
	}
	return h.executeNext(c)
}
