package saga

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/logger"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)

// 受理路径，同时作为 metrics 的 path 标签
const (
	PathEvent     = "event"
	PathDirect    = "direct"
	PathEvaluate  = "evaluate"
	PathImmediate = "immediate"
)

// IntakeContext 在受理责任链中传递输入、中间结果与出站端口。
type IntakeContext struct {
	Ctx    context.Context
	Tracer trace.Tracer
	Now    time.Time

	// 输入
	ItemID string
	Fields domain.Fields
	Route  domain.Means
	Actor  domain.Actor

	// 链上各步骤的产出
	Item        *port.Item
	Profile     *port.Profile
	Reservation *domain.Reservation
	Path        string
	Committed   *bool
	Reason      string

	Repo      domain.Repository
	Catalog   port.CatalogService
	Users     port.UserDirectory
	Inventory port.InventoryService
	Publisher port.RequestPublisher
	Notifier  port.OutcomeNotifier
	Scheduler port.DelayScheduler
	Dispatch  port.DispatchPolicy
	Timeout   time.Duration

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 补偿按注册的逆序执行
func (c *IntakeContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

func (c *IntakeContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().Int("count", len(c.compensations)).Str("itemId", c.ItemID).Msg("Executing intake compensations")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(c *IntakeContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(c *IntakeContext) error {
	if h.next != nil {
		return h.next.Handle(c)
	}
	return nil
}

// BuildIntakeChain lookup → validate → persist → dispatch
func BuildIntakeChain() Handler {
	chain := new(LookupHandler)
	chain.SetNext(new(ValidateHandler)).
		SetNext(new(PersistHandler)).
		SetNext(new(DispatchHandler))
	return chain
}
