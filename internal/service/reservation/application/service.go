// internal/service/reservation/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
	"govportal/internal/service/reservation/application/saga"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)


// Settings 是编排器的可调参数
type Settings struct {
	// Timeout 是 REQUESTED 状态等待结果的上限，超过后重投事件
	Timeout     time.Duration
	MaxRedrives int
}

// ReservationApplicationService 是 Saga 编排器：受理、结果回写与管理操作。
type ReservationApplicationService struct {
	repo      domain.Repository
	tracer    trace.Tracer
	settings  Settings
	catalog   port.CatalogService
	users     port.UserDirectory
	inventory port.InventoryService
	publisher port.RequestPublisher
	notifier  port.OutcomeNotifier
	scheduler port.DelayScheduler
	dispatch  port.DispatchPolicy
	chain     saga.Handler
	now       func() time.Time
}

func NewReservationApplicationService(repo domain.Repository, tracer trace.Tracer, settings Settings, catalog port.CatalogService, users port.UserDirectory, inventory port.InventoryService, publisher port.RequestPublisher, notifier port.OutcomeNotifier, scheduler port.DelayScheduler, dispatch port.DispatchPolicy) *ReservationApplicationService {
	return &ReservationApplicationService{
		repo: repo, tracer: tracer, settings: settings,
		catalog: catalog, users: users, inventory: inventory,
		publisher: publisher, notifier: notifier, scheduler: scheduler,
		dispatch: dispatch, chain: saga.BuildIntakeChain(),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create 受理一次预约。route 是请求进入的路由：REALTIME 对应 POST /requests，EVALUATE 对应 POST /requests/evaluates。
func (s *ReservationApplicationService) Create(ctx context.Context, req *CreateRequest, route domain.Means, actor domain.Actor) (*ReservationView, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateReservation")
	defer span.End()

	if actor.UserID == "" {
		return nil, apperr.Forbidden("caller identity is missing")
	}

	intake := &saga.IntakeContext{
		Ctx:       ctx,
		Tracer:    s.tracer,
		Now:       s.now(),
		ItemID:    req.ItemID,
		Fields:    req.fields(),
		Route:     route,
		Actor:     actor,
		Repo:      s.repo,
		Catalog:   s.catalog,
		Users:     s.users,
		Inventory: s.inventory,
		Publisher: s.publisher,
		Notifier:  s.notifier,
		Scheduler: s.scheduler,
		Dispatch:  s.dispatch,
		Timeout:   s.settings.Timeout,
	}

	if err := s.chain.Handle(intake); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "intake failed")
		if !apperr.Is(err, apperr.KindValidation) {
			logger.Ctx(ctx).Error().Err(err).Str("itemId", req.ItemID).Msg("Reservation intake failed, compensating")
		}
		intake.TriggerCompensation(context.WithoutCancel(ctx))
		return nil, err
	}

	r := intake.Reservation
	metrics.ReservationsCreated.WithLabelValues(intake.Path).Inc()
	span.SetAttributes(attribute.String("reservation.id", r.ID), attribute.String("dispatch.path", intake.Path))
	logger.Ctx(ctx).Info().
		Str("requestId", r.ID).
		Str("itemId", r.ItemID).
		Str("path", intake.Path).
		Str("status", string(r.Status)).
		Msg("Reservation accepted")

	view := NewReservationView(r)
	if intake.Committed != nil {
		view.withCommitted(*intake.Committed, intake.Reason)
	}
	return view, nil
}

// OnOutcome 应用库存协调者的结果。未知或已终结的预约不报错。
func (s *ReservationApplicationService) OnOutcome(ctx context.Context, ev *events.ReservationOutcome) error {
	ctx, span := s.tracer.Start(ctx, "app.OnOutcome", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", ev.RequestID), attribute.Bool("outcome.committed", ev.Committed))

	log := logger.Ctx(ctx).With().Str("requestId", ev.RequestID).Bool("committed", ev.Committed).Logger()

	r, err := s.repo.FindByID(ctx, ev.RequestID)
	if apperr.IsNotFound(err) {
		log.Info().Msg("Outcome for unknown reservation dropped")
		metrics.OutcomesApplied.WithLabelValues("unknown").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	result := "duplicate"
	if ev.Committed {
		ok, err := s.repo.TransitionStatus(ctx, r.ID, domain.StatusRequested, domain.StatusApproved)
		if err != nil {
			return err
		}
		if ok {
			result = "approved"
			log.Info().Msg("Reservation approved")
		} else {
			// 结果到达前状态已经变化，重新读取后判断是否需要归还库存
			if r, err = s.repo.FindByID(ctx, ev.RequestID); err != nil && !apperr.IsNotFound(err) {
				return err
			}
			if r != nil && r.Status == domain.StatusCancelled && r.InventoryManaged {
				if err := s.release(ctx, r); err != nil {
					return apperr.Transient(err, "failed to release inventory of cancelled reservation %s", ev.RequestID)
				}
				result = "released"
				log.Info().Msg("Reservation was cancelled before its outcome, inventory released")
			}
		}
	} else {
		ok, err := s.repo.DeleteIfStatus(ctx, r.ID, domain.StatusRequested)
		if err != nil {
			return err
		}
		if ok {
			result = "rejected"
			log.Warn().Str("reason", ev.Reason).Str("itemId", r.ItemID).Msg("Reservation rejected and removed")
		}
	}
	metrics.OutcomesApplied.WithLabelValues(result).Inc()

	if err := s.notifier.NotifyOutcome(ctx, ev); err != nil {
		log.Warn().Err(err).Msg("Failed to publish outcome to the result exchange")
	}
	return nil
}

// Get 供轮询与结果代理的订阅后查询使用。不带身份的调用来自内部服务。
func (s *ReservationApplicationService) Get(ctx context.Context, id string, actor domain.Actor) (*ReservationView, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID == "" {
		return nil, apperr.Forbidden("caller identity is required to read reservation %s", id)
	}
	if !actor.CanAccess(r) {
		return nil, apperr.Forbidden("reservation %s belongs to another user", id)
	}
	return NewReservationView(r), nil
}

// Lookup 供集群内部服务（推送网关的状态核对）使用，不做归属校验，
// 只挂在 /internal 路由上，不经过对外网关。
func (s *ReservationApplicationService) Lookup(ctx context.Context, id string) (*ReservationView, error) {
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewReservationView(r), nil
}

func (s *ReservationApplicationService) Update(ctx context.Context, id string, req *UpdateRequest, actor domain.Actor) (*ReservationView, error) {
	ctx, span := s.tracer.Start(ctx, "app.UpdateReservation")
	defer span.End()

	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(r) {
		return nil, apperr.Forbidden("reservation %s belongs to another user", id)
	}
	if err := r.Apply(req.fields(), s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return NewReservationView(r), nil
}

// Approve 管理员审批。库存受控的物品同步扣减，容量不足时保持 REQUESTED 并返回 committed=false。
func (s *ReservationApplicationService) Approve(ctx context.Context, id string, actor domain.Actor) (*ReservationView, error) {
	ctx, span := s.tracer.Start(ctx, "app.ApproveReservation")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("approve requires %s", domain.RoleAdmin)
	}
	r, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch r.Status {
	case domain.StatusApproved:
		return NewReservationView(r).withCommitted(true, ""), nil
	case domain.StatusRequested:
	default:
		return nil, apperr.Conflict(apperr.CodeInvalidState, "reservation %s is %s", id, r.Status)
	}

	if r.InventoryManaged {
		committed, err := s.inventory.Adjust(ctx, r.ID, r.ItemID, r.Quantity)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !committed {
			logger.Ctx(ctx).Info().Str("requestId", id).Msg("Approval declined, capacity exhausted")
			return NewReservationView(r).withCommitted(false, events.ReasonCapacityExhausted), nil
		}
	}

	ok, err := s.repo.TransitionStatus(ctx, r.ID, domain.StatusRequested, domain.StatusApproved)
	if err != nil {
		return nil, err
	}
	if !ok {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.StatusApproved {
			return NewReservationView(current).withCommitted(true, ""), nil
		}
		if r.InventoryManaged {
			if err := s.release(ctx, r); err != nil {
				logger.Ctx(ctx).Error().Err(err).Str("requestId", id).Msg("CRITICAL: failed to release inventory after a lost approval")
			}
		}
		return nil, apperr.Conflict(apperr.CodeInvalidState, "reservation %s is %s", id, current.Status)
	}
	r.Status = domain.StatusApproved
	r.UpdatedAt = s.now()

	outcome := &events.ReservationOutcome{RequestID: r.ID, ItemID: r.ItemID, Committed: true, DecidedAt: r.UpdatedAt}
	if err := s.notifier.NotifyOutcome(ctx, outcome); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("requestId", id).Msg("Failed to publish approval to the result exchange")
	}
	logger.Ctx(ctx).Info().Str("requestId", id).Str("admin", actor.UserID).Msg("Reservation approved by administrator")
	return NewReservationView(r).withCommitted(true, ""), nil
}

// Cancel 管理员或本人取消。已占用库存的预约先归还库存再改状态，失败时保持原状态以便重试。
func (s *ReservationApplicationService) Cancel(ctx context.Context, id, reason string, actor domain.Actor) (*ReservationView, error) {
	ctx, span := s.tracer.Start(ctx, "app.CancelReservation")
	defer span.End()

	for attempt := 0; attempt < 3; attempt++ {
		r, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !actor.CanAccess(r) {
			return nil, apperr.Forbidden("reservation %s belongs to another user", id)
		}
		if r.Status == domain.StatusCancelled {
			return NewReservationView(r), nil
		}
		from := r.Status
		if r.HoldsInventory() {
			if err := s.release(ctx, r); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		if err := r.Cancel(reason, s.now()); err != nil {
			return nil, err
		}
		ok, err := s.repo.CancelIfStatus(ctx, id, from, reason)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		logger.Ctx(ctx).Info().Str("requestId", id).Str("previous", string(from)).Msg("Reservation cancelled")
		return NewReservationView(r), nil
	}
	return nil, apperr.Conflict(apperr.CodeInvalidState, "reservation %s changed concurrently", id)
}

// ProcessTimeoutCheck 处理到期的超时检查：仍为 REQUESTED 时重投事件，达到上限后记为孤儿。
func (s *ReservationApplicationService) ProcessTimeoutCheck(ctx context.Context, ev *domain.TimeoutCheckEvent) error {
	ctx, span := s.tracer.Start(ctx, "app.ProcessTimeoutCheck", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", ev.RequestID), attribute.Int("attempt", ev.Attempt))

	r, err := s.repo.FindByID(ctx, ev.RequestID)
	if apperr.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if r.Status != domain.StatusRequested || r.Means != domain.MeansRealtime {
		return nil
	}

	if ev.Attempt >= s.settings.MaxRedrives {
		metrics.ReservationsOrphaned.Inc()
		logger.Ctx(ctx).Error().
			Str("requestId", r.ID).
			Int("attempts", ev.Attempt).
			Time("createdAt", r.CreatedAt).
			Msg("Reservation orphaned, no outcome after all re-drives")
		return nil
	}

	attempt := ev.Attempt + 1
	logger.Ctx(ctx).Warn().Str("requestId", r.ID).Int("attempt", attempt).Msg("No outcome within the timeout, re-driving reservation request")
	requested := &events.ReservationRequested{
		EventID:     r.ID,
		TraceID:     span.SpanContext().TraceID().String(),
		RequestID:   r.ID,
		ItemID:      r.ItemID,
		Quantity:    r.Quantity,
		Attempt:     attempt,
		RequestedAt: s.now(),
	}
	if err := s.publisher.PublishRequested(ctx, requested); err != nil {
		return apperr.Transient(err, "failed to re-drive reservation %s", r.ID)
	}
	next := &domain.TimeoutCheckEvent{RequestID: r.ID, Attempt: attempt}
	if err := s.scheduler.ScheduleTimeoutCheck(ctx, next, s.settings.Timeout); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("requestId", r.ID).Msg("Failed to schedule the next timeout check")
	}
	return nil
}

func (s *ReservationApplicationService) release(ctx context.Context, r *domain.Reservation) error {
	_, err := s.inventory.Adjust(ctx, domain.ReleaseKey(r.ID), r.ItemID, -r.Quantity)
	return err
}
