package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

type StartPeriodInput struct {
	UserID  string
	GroupID string
}

// PeriodService owns the single active period per group.
type PeriodService struct {
	repo   arisan.Repository
	ledger *PaymentService
	cycles *CycleService
	idGen  idgen.Generator
	logger *logging.Logger
	events EventRecorder
	now    func() time.Time
}

func NewPeriodService(
	repo arisan.Repository,
	ledger *PaymentService,
	cycles *CycleService,
	idGen idgen.Generator,
	logger *logging.Logger,
	events EventRecorder,
) *PeriodService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PeriodService{
		repo:   repo,
		ledger: ledger,
		cycles: cycles,
		idGen:  idGen,
		logger: logger,
		events: recorderOrNop(events),
		now:    time.Now,
	}
}

func (s *PeriodService) ActivePeriod(ctx context.Context, r arisan.Reader, groupID string) (arisan.Period, bool, error) {
	period, exists, err := r.GetActivePeriod(ctx, groupID)
	if err != nil {
		return arisan.Period{}, false, fmt.Errorf("get active period: %w", err)
	}
	return period, exists, nil
}

func (s *PeriodService) IsFullyPaid(ctx context.Context, r arisan.Reader, period arisan.Period) (bool, error) {
	return s.ledger.IsFullyPaid(ctx, r, period)
}

// StartPeriod opens the next period. When every member has already won in
// the current cycle, the cycle is advanced first in the same transaction.
func (s *PeriodService) StartPeriod(ctx context.Context, input StartPeriodInput) (arisan.Period, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PeriodService.StartPeriod")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.Period{}, err
	}

	periodID, err := s.idGen.NewID()
	if err != nil {
		return arisan.Period{}, fmt.Errorf("generate period id: %w", err)
	}

	var (
		period   arisan.Period
		advanced bool
		cycle    int
	)
	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}

		if _, active, err := s.ActivePeriod(ctx, tx, group.ID); err != nil {
			return err
		} else if active {
			return arisan.ErrAlreadyActive
		}

		members, err := tx.ListMembers(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		if len(members) < arisan.MinMembersToStart {
			return fmt.Errorf("%w: group has %d", arisan.ErrInsufficientMembers, len(members))
		}

		complete, err := s.cycles.IsCycleComplete(ctx, tx, group)
		if err != nil {
			return err
		}
		if complete {
			if group, err = s.cycles.AdvanceCycle(ctx, tx, group); err != nil {
				return err
			}
			advanced = true
		}
		cycle = group.CurrentCycle

		maxNumber, err := tx.MaxPeriodNumber(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("get max period number: %w", err)
		}

		period = arisan.NewActivePeriod(periodID, group, arisan.NextPeriodNumber(maxNumber), s.now().UTC())
		if err := tx.CreatePeriod(ctx, period); err != nil {
			return fmt.Errorf("create period: %w", err)
		}
		return nil
	})
	if err != nil {
		return arisan.Period{}, err
	}

	if advanced {
		s.events.CycleAdvanced(period.GroupID, cycle)
	}
	s.events.PeriodStarted(period.GroupID, period.Number)
	s.logger.InfoContext(ctx, "arisan period started",
		"group_id", period.GroupID,
		"period_id", period.ID,
		"period_number", period.Number,
		"cycle", cycle,
	)
	return period, nil
}

// ClosePeriod completes an active period. It runs inside the draw transaction.
func (s *PeriodService) ClosePeriod(ctx context.Context, tx arisan.Tx, period arisan.Period) (arisan.Period, error) {
	now := s.now().UTC()
	if err := tx.CompletePeriod(ctx, period.ID, now); err != nil {
		return arisan.Period{}, fmt.Errorf("complete period: %w", err)
	}
	period.Status = arisan.PeriodStatusCompleted
	period.UpdatedAt = now
	return period, nil
}

func (s *PeriodService) ListPeriods(ctx context.Context, userID, groupID string) ([]arisan.Period, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PeriodService.ListPeriods")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return nil, err
	}
	if _, err := memberGroup(ctx, s.repo, groupID, userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListPeriods(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return items, nil
}
