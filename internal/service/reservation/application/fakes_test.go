package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"govportal/internal/pkg/apperr"
	"govportal/internal/pkg/events"
	"govportal/internal/service/reservation/domain"
	"govportal/internal/service/reservation/domain/port"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[string]domain.Reservation
	// beforeSave 在 Save 取锁前执行，用于在读与写之间插入并发操作
	beforeSave func()
}

func newMemRepo() *memRepo { return &memRepo{rows: map[string]domain.Reservation{}} }

func (m *memRepo) Create(_ context.Context, r *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[r.ID] = *r
	return nil
}

func (m *memRepo) FindByID(_ context.Context, id string) (*domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, apperr.NotFound(apperr.CodeReservationAbsent, "reservation %s not found", id)
	}
	return &r, nil
}

func (m *memRepo) Save(_ context.Context, r *domain.Reservation) error {
	if m.beforeSave != nil {
		m.beforeSave()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[r.ID]
	if !ok {
		return apperr.NotFound(apperr.CodeReservationAbsent, "reservation %s not found", r.ID)
	}
	if cur.Status != r.Status {
		return apperr.Conflict(apperr.CodeInvalidState, "reservation %s changed to %s concurrently", r.ID, cur.Status)
	}
	next := *r
	next.Status = cur.Status
	next.CancelReason = cur.CancelReason
	m.rows[r.ID] = next
	return nil
}

func (m *memRepo) CancelIfStatus(_ context.Context, id string, from domain.Status, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = domain.StatusCancelled
	r.CancelReason = reason
	m.rows[id] = r
	return true, nil
}

func (m *memRepo) TransitionStatus(_ context.Context, id string, from, to domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	m.rows[id] = r
	return true, nil
}

func (m *memRepo) DeleteIfStatus(_ context.Context, id string, status domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Status != status {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeCatalog struct{ items map[string]*port.Item }

func (f *fakeCatalog) GetItem(_ context.Context, id string) (*port.Item, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, apperr.NotFound(apperr.CodeItemAbsent, "item %s not found", id)
}

type fakeUsers struct{}

func (fakeUsers) GetProfile(_ context.Context, id string) (*port.Profile, error) {
	return &port.Profile{UserID: id, DisplayName: "Kim " + id, Email: id + "@example.org"}, nil
}

type adjustCall struct {
	Key    string
	ItemID string
	Delta  int
}

// fakeInventory 模拟库存服务同步接口的幂等台账：成功的调整按 key 去重，被拒绝的不记录
type fakeInventory struct {
	mu        sync.Mutex
	remaining int
	seen      map[string]bool
	calls     []adjustCall
	err       error
	// lostReplies 大于 0 时，调整照常生效但调用方收到 transient 错误
	lostReplies int
}

func newFakeInventory(remaining int) *fakeInventory {
	return &fakeInventory{remaining: remaining, seen: map[string]bool{}}
}

func (f *fakeInventory) Adjust(_ context.Context, key, itemID string, delta int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, adjustCall{key, itemID, delta})
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return true, nil
	}
	committed := f.remaining-delta >= 0
	if committed {
		f.remaining -= delta
		f.seen[key] = true
	}
	if f.lostReplies > 0 {
		f.lostReplies--
		return false, apperr.Transient(errors.New("context deadline exceeded"), "inventory-service request failed")
	}
	return committed, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []*events.ReservationRequested
	err  error
}

func (f *fakePublisher) PublishRequested(_ context.Context, ev *events.ReservationRequested) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, ev)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*events.ReservationOutcome
}

func (f *fakeNotifier) NotifyOutcome(_ context.Context, ev *events.ReservationOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, ev)
	return nil
}

type fakeScheduler struct {
	checks []*domain.TimeoutCheckEvent
	delays []time.Duration
}

func (f *fakeScheduler) ScheduleTimeoutCheck(_ context.Context, ev *domain.TimeoutCheckEvent, delay time.Duration) error {
	f.checks = append(f.checks, ev)
	f.delays = append(f.delays, delay)
	return nil
}

type adminDirect struct{}

func (adminDirect) UseDirectPath(_ context.Context, in port.DispatchInput) (bool, error) {
	return in.Role == domain.RoleAdmin, nil
}

var errBrokerDown = errors.New("broker down")
