package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"govportal/internal/pkg/apperr"
	"govportal/internal/service/reservation/domain"
)

func newTestRepo(t *testing.T) *GormReservationRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewGormReservationRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func sample(id string) *domain.Reservation {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	return &domain.Reservation{
		ID: id, ItemID: "projector-1", Kind: domain.KindScheduled, Means: domain.MeansRealtime,
		InventoryManaged: true, Quantity: 1, RequesterID: "u-1", RequesterName: "Kim",
		Email: "kim@example.com", Purpose: "briefing", StartDate: &start, EndDate: &end,
		Status: domain.StatusRequested, CreatedAt: start, UpdatedAt: start,
	}
}

func TestRepository_Lifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, sample("r-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.FindByID(ctx, "r-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != domain.StatusRequested || got.Kind != domain.KindScheduled || got.StartDate == nil {
		t.Errorf("unexpected round trip %+v", got)
	}

	ok, err := repo.TransitionStatus(ctx, "r-1", domain.StatusRequested, domain.StatusApproved)
	if err != nil || !ok {
		t.Fatalf("transition: ok=%v err=%v", ok, err)
	}
	ok, err = repo.TransitionStatus(ctx, "r-1", domain.StatusRequested, domain.StatusApproved)
	if err != nil || ok {
		t.Fatalf("second transition must not apply: ok=%v err=%v", ok, err)
	}

	ok, err = repo.DeleteIfStatus(ctx, "r-1", domain.StatusRequested)
	if err != nil || ok {
		t.Fatalf("approved reservation must not be deleted as requested: ok=%v err=%v", ok, err)
	}
}

func TestRepository_RejectedReservationDisappears(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	if err := repo.Create(ctx, sample("r-2")); err != nil {
		t.Fatal(err)
	}

	ok, err := repo.DeleteIfStatus(ctx, "r-2", domain.StatusRequested)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := repo.FindByID(ctx, "r-2"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}

func TestRepository_SaveUpdatesMutableFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	r := sample("r-3")
	if err := repo.Create(ctx, r); err != nil {
		t.Fatal(err)
	}

	r.Purpose = "workshop"
	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := repo.FindByID(ctx, "r-3")
	if got.Purpose != "workshop" || got.Status != domain.StatusRequested {
		t.Errorf("save did not persist: %+v", got)
	}

	if err := repo.Save(ctx, sample("ghost")); !apperr.IsNotFound(err) {
		t.Errorf("saving an unknown reservation must be not found, got %v", err)
	}
}

func TestRepository_StaleSaveKeepsNewerStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	r := sample("r-4")
	r.Status = domain.StatusApproved
	if err := repo.Create(ctx, r); err != nil {
		t.Fatal(err)
	}

	stale, _ := repo.FindByID(ctx, "r-4")
	ok, err := repo.CancelIfStatus(ctx, "r-4", domain.StatusApproved, "room closed")
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}

	stale.Purpose = "late edit"
	if err := repo.Save(ctx, stale); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("stale save must conflict, got %v", err)
	}
	got, _ := repo.FindByID(ctx, "r-4")
	if got.Status != domain.StatusCancelled || got.CancelReason != "room closed" || got.Purpose != "briefing" {
		t.Errorf("stale save must not touch the cancelled row: %+v", got)
	}

	ok, err = repo.CancelIfStatus(ctx, "r-4", domain.StatusApproved, "again")
	if err != nil || ok {
		t.Errorf("second cancel must not apply: ok=%v err=%v", ok, err)
	}
}
