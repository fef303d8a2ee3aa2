package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

func seedGroup(t *testing.T, repo *ArisanRepository) arisan.Group {
	t.Helper()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	group := arisan.Group{ID: "g1", Name: "Kantor", CreatorUserID: "u1", ContributionAmount: 50000, PeriodDurationWeeks: 4, CurrentCycle: 1, CreatedAt: now}
	err := repo.WithinTx(t.Context(), func(ctx context.Context, tx arisan.Tx) error {
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		return tx.AddMember(ctx, arisan.Member{GroupID: "g1", UserID: "u1", JoinedAt: now})
	})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return group
}

func TestArisanRepository_RollsBackOnError(t *testing.T) {
	repo := NewArisanRepository()
	seedGroup(t, repo)

	errBoom := errors.New("boom")
	err := repo.WithinTx(t.Context(), func(ctx context.Context, tx arisan.Tx) error {
		if err := tx.CreatePeriod(ctx, arisan.Period{ID: "p1", GroupID: "g1", Number: 1, Status: arisan.PeriodStatusActive}); err != nil {
			return err
		}
		if err := tx.SetCurrentCycle(ctx, "g1", 2, time.Now()); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, ok, _ := repo.GetActivePeriod(t.Context(), "g1"); ok {
		t.Fatalf("expected period insert to be rolled back")
	}
	g, _, _ := repo.GetGroup(t.Context(), "g1")
	if g.CurrentCycle != 1 {
		t.Fatalf("expected cycle to be rolled back, got %d", g.CurrentCycle)
	}
}

func TestArisanRepository_EnforcesUniqueness(t *testing.T) {
	repo := NewArisanRepository()
	seedGroup(t, repo)
	ctx := t.Context()

	run := func(fn func(ctx context.Context, tx arisan.Tx) error) error {
		return repo.WithinTx(ctx, fn)
	}

	if err := run(func(ctx context.Context, tx arisan.Tx) error {
		return tx.AddMember(ctx, arisan.Member{GroupID: "g1", UserID: "u1"})
	}); !errors.Is(err, arisan.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	if err := run(func(ctx context.Context, tx arisan.Tx) error {
		return tx.CreatePeriod(ctx, arisan.Period{ID: "p1", GroupID: "g1", Number: 1, Status: arisan.PeriodStatusActive})
	}); err != nil {
		t.Fatalf("create period: %v", err)
	}
	if err := run(func(ctx context.Context, tx arisan.Tx) error {
		return tx.CreatePeriod(ctx, arisan.Period{ID: "p2", GroupID: "g1", Number: 2, Status: arisan.PeriodStatusActive})
	}); !errors.Is(err, arisan.ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	pay := arisan.Payment{ID: "pay1", GroupID: "g1", PeriodID: "p1", UserID: "u1", Status: arisan.PaymentStatusPending}
	if err := run(func(ctx context.Context, tx arisan.Tx) error { return tx.CreatePayment(ctx, pay) }); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	pay.ID = "pay2"
	if err := run(func(ctx context.Context, tx arisan.Tx) error { return tx.CreatePayment(ctx, pay) }); !errors.Is(err, arisan.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	draw := arisan.Draw{ID: "d1", GroupID: "g1", PeriodID: "p1", WinnerUserID: "u1", CycleNumber: 1}
	if err := run(func(ctx context.Context, tx arisan.Tx) error { return tx.CreateDraw(ctx, draw) }); err != nil {
		t.Fatalf("create draw: %v", err)
	}
	draw.ID = "d2"
	if err := run(func(ctx context.Context, tx arisan.Tx) error { return tx.CreateDraw(ctx, draw) }); !errors.Is(err, arisan.ErrAlreadyDrawn) {
		t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
	}
}

func TestArisanRepository_ConditionalUpdates(t *testing.T) {
	repo := NewArisanRepository()
	seedGroup(t, repo)
	ctx := t.Context()

	err := repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		if err := tx.CreatePeriod(ctx, arisan.Period{ID: "p1", GroupID: "g1", Number: 1, Status: arisan.PeriodStatusActive}); err != nil {
			return err
		}
		return tx.CreatePayment(ctx, arisan.Payment{ID: "pay1", GroupID: "g1", PeriodID: "p1", UserID: "u1", Status: arisan.PaymentStatusPending})
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	approve := func() error {
		return repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
			return tx.UpdatePaymentStatus(ctx, arisan.Payment{ID: "pay1", Status: arisan.PaymentStatusApproved})
		})
	}
	if err := approve(); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	if err := approve(); !errors.Is(err, arisan.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second approve, got %v", err)
	}

	complete := func() error {
		return repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
			return tx.CompletePeriod(ctx, "p1", time.Now())
		})
	}
	if err := complete(); err != nil {
		t.Fatalf("complete period: %v", err)
	}
	if err := complete(); !errors.Is(err, arisan.ErrNoActivePeriod) {
		t.Fatalf("expected ErrNoActivePeriod, got %v", err)
	}
}

func TestArisanRepository_DeleteGroupCascades(t *testing.T) {
	repo := NewArisanRepository()
	seedGroup(t, repo)
	ctx := t.Context()

	err := repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		if err := tx.CreatePeriod(ctx, arisan.Period{ID: "p1", GroupID: "g1", Number: 1, Status: arisan.PeriodStatusCompleted}); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, arisan.Payment{ID: "pay1", GroupID: "g1", PeriodID: "p1", UserID: "u1"}); err != nil {
			return err
		}
		if err := tx.CreateDraw(ctx, arisan.Draw{ID: "d1", GroupID: "g1", PeriodID: "p1", WinnerUserID: "u1", CycleNumber: 1}); err != nil {
			return err
		}
		return tx.DeleteGroup(ctx, "g1")
	})
	if err != nil {
		t.Fatalf("delete group: %v", err)
	}

	if _, ok, _ := repo.GetGroup(ctx, "g1"); ok {
		t.Fatalf("expected group to be gone")
	}
	if items, _ := repo.ListPaymentsByGroup(ctx, "g1"); len(items) != 0 {
		t.Fatalf("expected payments to be deleted, got %d", len(items))
	}
	if items, _ := repo.ListDrawsByGroup(ctx, "g1"); len(items) != 0 {
		t.Fatalf("expected draws to be deleted, got %d", len(items))
	}
	if items, _ := repo.ListGroupsByUser(ctx, "u1"); len(items) != 0 {
		t.Fatalf("expected membership to be deleted, got %d", len(items))
	}
}
