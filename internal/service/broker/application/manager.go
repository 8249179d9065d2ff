package application

import (
	"context"
	"sync"
	"time"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/pkg/logger"
	"govportal/internal/pkg/metrics"
	"govportal/internal/service/broker/domain"
)

const statusApproved = "APPROVED"

// ChannelManager 管理本节点上所有打开的结果流。不同请求 ID 可以并发打开，同一请求 ID 只允许一个。
type ChannelManager struct {
	provisioner domain.Provisioner
	ownership   domain.Ownership
	status      domain.StatusLookup
	keepAlive   time.Duration

	mu      sync.Mutex
	streams map[string]*Stream
	now     func() time.Time
}

func NewChannelManager(provisioner domain.Provisioner, ownership domain.Ownership, status domain.StatusLookup, keepAlive time.Duration) *ChannelManager {
	if keepAlive <= 0 {
		keepAlive = 5 * time.Second
	}
	return &ChannelManager{
		provisioner: provisioner,
		ownership:   ownership,
		status:      status,
		keepAlive:   keepAlive,
		streams:     make(map[string]*Stream),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Open 创建并订阅通道。调用方必须在结束时调用 Stream.Close。
func (m *ChannelManager) Open(ctx context.Context, requestID string) (*Stream, error) {
	if requestID == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "requestId", Message: "is required"})
	}

	m.mu.Lock()
	if _, busy := m.streams[requestID]; busy {
		m.mu.Unlock()
		return nil, apperr.Conflict(apperr.CodeChannelBusy, "a result stream is already open for %s", requestID)
	}
	s := &Stream{manager: m, requestID: requestID}
	m.streams[requestID] = s
	m.mu.Unlock()

	claimed, err := m.ownership.Claim(ctx, requestID)
	if err != nil || !claimed {
		m.forget(s)
		if err != nil {
			return nil, apperr.Transient(err, "failed to claim result channel %s", requestID)
		}
		return nil, apperr.Conflict(apperr.CodeChannelBusy, "a result stream is already open for %s on another node", requestID)
	}

	ch, err := m.provisioner.Provision(ctx, requestID)
	if err != nil {
		if relErr := m.ownership.Release(context.WithoutCancel(ctx), requestID); relErr != nil {
			logger.Ctx(ctx).Warn().Err(relErr).Str("requestId", requestID).Msg("Failed to release channel ownership")
		}
		m.forget(s)
		return nil, apperr.Transient(err, "failed to provision result channel %s", requestID)
	}
	s.channel = ch

	metrics.OpenResultStreams.Inc()
	logger.Ctx(ctx).Info().Str("requestId", requestID).Msg("Result stream opened")
	return s, nil
}

// Active 返回本节点当前打开的结果流数量
func (m *ChannelManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.streams)
}

func (m *ChannelManager) forget(s *Stream) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streams[s.requestID] == s {
		delete(m.streams, s.requestID)
	}
}

// Stream 把通道上的第一条结果与周期性的 keep-alive 合并成一个推送流。
type Stream struct {
	manager   *ChannelManager
	requestID string
	channel   domain.Channel

	disposeOnce sync.Once
	closeOnce   sync.Once
}

func (s *Stream) RequestID() string { return s.requestID }

// Run 持续推送直到 ctx 取消 (调用方断开) 或 emit 失败。结果送达后通道即被删除，keep-alive 继续。
func (s *Stream) Run(ctx context.Context, emit func(domain.Frame) error) error {
	m := s.manager
	log := logger.Ctx(ctx).With().Str("requestId", s.requestID).Logger()

	deliveries := s.channel.Deliveries()

	// 订阅完成后再查一次权威状态，弥补订阅前已经发出的结果
	if status, found, err := m.status.Lookup(ctx, s.requestID); err != nil {
		log.Warn().Err(err).Msg("Status lookup after subscribe failed")
	} else if found && status == statusApproved {
		if err := emit(domain.OutcomeFrame(events.ReservationOutcome{RequestID: s.requestID, Committed: true})); err != nil {
			return err
		}
		s.dispose(ctx)
		deliveries = nil
	}

	ticker := time.NewTicker(m.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := emit(domain.KeepAliveFrame(s.requestID, m.now())); err != nil {
				return err
			}
			if err := m.ownership.Refresh(ctx, s.requestID); err != nil {
				log.Warn().Err(err).Msg("Failed to refresh channel ownership")
			}
		case outcome, ok := <-deliveries:
			if !ok {
				deliveries = nil
				continue
			}
			if err := emit(domain.OutcomeFrame(outcome)); err != nil {
				return err
			}
			log.Info().Bool("committed", outcome.Committed).Msg("Outcome delivered to result stream")
			s.dispose(ctx)
			deliveries = nil
		}
	}
}

func (s *Stream) dispose(ctx context.Context) {
	s.disposeOnce.Do(func() {
		if err := s.channel.Dispose(context.WithoutCancel(ctx)); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("requestId", s.requestID).Msg("Failed to delete result channel")
		}
	})
}

// Close 删除通道、释放所有权并从管理器移除，可重复调用。
func (s *Stream) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		ctx = context.WithoutCancel(ctx)
		s.dispose(ctx)
		if err := s.manager.ownership.Release(ctx, s.requestID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("requestId", s.requestID).Msg("Failed to release channel ownership")
		}
		s.manager.forget(s)
		metrics.OpenResultStreams.Dec()
		logger.Ctx(ctx).Info().Str("requestId", s.requestID).Msg("Result stream closed")
	})
}
