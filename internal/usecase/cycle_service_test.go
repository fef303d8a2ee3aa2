package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/platform/random"
)

func TestCycleService_Progress(t *testing.T) {
	h := newHarness(t, random.First)
	group := h.newGroup(t, 3)
	ctx := t.Context()

	progress, err := h.cycles.Progress(ctx, "u2", group.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Cycle != 1 || progress.EligibleCount != 3 || progress.TotalMembers != 3 || progress.Complete {
		t.Fatalf("unexpected initial progress: %+v", progress)
	}
	if progress.ActivePeriodID != "" {
		t.Fatalf("expected no active period, got %q", progress.ActivePeriodID)
	}

	period := h.startPeriod(t, group.ID)
	progress, err = h.cycles.Progress(ctx, "u2", group.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.ActivePeriodID != period.ID {
		t.Fatalf("expected active period %q, got %q", period.ID, progress.ActivePeriodID)
	}

	h.payAll(t, group.ID, "u1", "u2", "u3")
	result, err := h.draws.PerformDraw(ctx, PerformDrawInput{UserID: "u1", GroupID: group.ID})
	if err != nil {
		t.Fatalf("draw: %v", err)
	}

	progress, err = h.cycles.Progress(ctx, "u3", group.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.EligibleCount != 2 || len(progress.Winners) != 1 || progress.Winners[0] != result.Draw.WinnerUserID {
		t.Fatalf("unexpected progress after draw: %+v", progress)
	}

	if _, err := h.cycles.Progress(ctx, "u9", group.ID); !errors.Is(err, arisan.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestCycleService_AdvanceCycleKeepsHistory(t *testing.T) {
	h := newHarness(t, random.First)
	group := h.newGroup(t, 2)
	ctx := t.Context()

	for i := 0; i < 2; i++ {
		h.startPeriod(t, group.ID)
		h.payAll(t, group.ID, "u1", "u2")
		if _, err := h.draws.PerformDraw(ctx, PerformDrawInput{UserID: "u1", GroupID: group.ID}); err != nil {
			t.Fatalf("draw %d: %v", i+1, err)
		}
	}

	current := h.group(t, group.ID)
	complete, err := h.cycles.IsCycleComplete(ctx, h.repo, current)
	if err != nil || !complete {
		t.Fatalf("expected complete cycle: complete=%v err=%v", complete, err)
	}

	var advanced arisan.Group
	err = h.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		var err error
		advanced, err = h.cycles.AdvanceCycle(ctx, tx, current)
		return err
	})
	if err != nil {
		t.Fatalf("advance cycle: %v", err)
	}
	if advanced.CurrentCycle != 2 || h.group(t, group.ID).CurrentCycle != 2 {
		t.Fatalf("expected cycle 2, got %d", advanced.CurrentCycle)
	}

	winners, err := h.cycles.WinnersInCurrentCycle(ctx, h.repo, advanced)
	if err != nil || len(winners) != 0 {
		t.Fatalf("expected no winners in new cycle: %v err=%v", winners, err)
	}
	if all, _ := h.repo.ListDrawsByGroup(ctx, group.ID); len(all) != 2 {
		t.Fatalf("expected draw history to be kept, got %d", len(all))
	}
}
