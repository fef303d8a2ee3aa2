package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/random"
)

type PerformDrawInput struct {
	UserID  string
	GroupID string
	// PeriodID pins the draw to the period the caller saw as active. A second
	// draw for it then fails with ErrAlreadyDrawn instead of ErrNoActivePeriod.
	PeriodID string
}

// DrawService picks a period winner among members who have not won in the
// current cycle, records the draw and closes the period in one transaction.
type DrawService struct {
	repo    arisan.Repository
	periods *PeriodService
	ledger  *PaymentService
	cycles  *CycleService
	picker  random.Picker
	idGen   idgen.Generator
	logger  *logging.Logger
	events  EventRecorder
	now     func() time.Time
}

func NewDrawService(
	repo arisan.Repository,
	periods *PeriodService,
	ledger *PaymentService,
	cycles *CycleService,
	picker random.Picker,
	idGen idgen.Generator,
	logger *logging.Logger,
	events EventRecorder,
) *DrawService {
	if logger == nil {
		logger = logging.Default()
	}
	if picker == nil {
		picker = random.NewCryptoPicker()
	}
	return &DrawService{
		repo:    repo,
		periods: periods,
		ledger:  ledger,
		cycles:  cycles,
		picker:  picker,
		idGen:   idGen,
		logger:  logger,
		events:  recorderOrNop(events),
		now:     time.Now,
	}
}

func (s *DrawService) PerformDraw(ctx context.Context, input PerformDrawInput) (arisan.DrawResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DrawService.PerformDraw")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID, &input.PeriodID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.DrawResult{}, err
	}

	drawID, err := s.idGen.NewID()
	if err != nil {
		return arisan.DrawResult{}, fmt.Errorf("generate draw id: %w", err)
	}

	var result arisan.DrawResult
	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}

		period, err := s.drawablePeriod(ctx, tx, group.ID, input.PeriodID)
		if err != nil {
			return err
		}

		members, err := tx.ListMembers(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		fullyPaid, err := s.periods.IsFullyPaid(ctx, tx, period)
		if err != nil {
			return err
		}
		if !fullyPaid {
			unpaid, err := s.ledger.UnpaidMembers(ctx, tx, period)
			if err != nil {
				return err
			}
			return &arisan.PaymentsIncompleteError{Unpaid: unpaid}
		}

		eligible, err := s.cycles.EligibleMembers(ctx, tx, group)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			return arisan.ErrCycleAlreadyComplete
		}

		idx, err := s.picker.Pick(len(eligible))
		if err != nil {
			return fmt.Errorf("pick winner: %w", err)
		}
		if idx < 0 || idx >= len(eligible) {
			return fmt.Errorf("pick winner: index %d out of range %d", idx, len(eligible))
		}

		draw := arisan.Draw{
			ID:             drawID,
			GroupID:        group.ID,
			PeriodID:       period.ID,
			WinnerUserID:   eligible[idx].UserID,
			DrawnAt:        s.now().UTC(),
			TotalPotAmount: arisan.TotalPot(group.ContributionAmount, len(members)),
			CycleNumber:    group.CurrentCycle,
		}
		if err := tx.CreateDraw(ctx, draw); err != nil {
			return fmt.Errorf("create draw: %w", err)
		}

		closed, err := s.periods.ClosePeriod(ctx, tx, period)
		if err != nil {
			return err
		}

		complete, err := s.cycles.IsCycleComplete(ctx, tx, group)
		if err != nil {
			return err
		}

		result = arisan.DrawResult{Draw: draw, Period: closed, CycleComplete: complete}
		return nil
	})
	if err != nil {
		if isDrawRefusal(err) {
			s.events.DrawRefused(input.GroupID, err)
		}
		return arisan.DrawResult{}, err
	}

	s.events.DrawPerformed(result.Draw.GroupID, result.Draw.TotalPotAmount, result.CycleComplete)
	s.logger.InfoContext(ctx, "arisan draw performed",
		"group_id", result.Draw.GroupID,
		"period_id", result.Draw.PeriodID,
		"winner_user_id", result.Draw.WinnerUserID,
		"total_pot_amount", result.Draw.TotalPotAmount,
		"cycle", result.Draw.CycleNumber,
		"cycle_complete", result.CycleComplete,
	)
	return result, nil
}

// drawablePeriod returns the active period after re-checking it has no draw.
// A pinned period must belong to the group.
func (s *DrawService) drawablePeriod(ctx context.Context, tx arisan.Tx, groupID, requestedID string) (arisan.Period, error) {
	period, active, err := s.periods.ActivePeriod(ctx, tx, groupID)
	if err != nil {
		return arisan.Period{}, err
	}

	if requestedID != "" && (!active || period.ID != requestedID) {
		if _, owned, err := tx.GetPeriod(ctx, groupID, requestedID); err != nil {
			return arisan.Period{}, fmt.Errorf("get period: %w", err)
		} else if !owned {
			return arisan.Period{}, fmt.Errorf("%w: period=%s", ErrNotFound, requestedID)
		}
		if _, drawn, err := tx.GetDrawByPeriod(ctx, requestedID); err != nil {
			return arisan.Period{}, fmt.Errorf("get draw by period: %w", err)
		} else if drawn {
			return arisan.Period{}, arisan.ErrAlreadyDrawn
		}
		return arisan.Period{}, arisan.ErrNoActivePeriod
	}
	if !active {
		return arisan.Period{}, arisan.ErrNoActivePeriod
	}

	if _, drawn, err := tx.GetDrawByPeriod(ctx, period.ID); err != nil {
		return arisan.Period{}, fmt.Errorf("get draw by period: %w", err)
	} else if drawn {
		return arisan.Period{}, arisan.ErrAlreadyDrawn
	}
	return period, nil
}

// History lists every draw of the group across cycles, newest first.
func (s *DrawService) History(ctx context.Context, userID, groupID string) ([]arisan.Draw, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DrawService.History")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return nil, err
	}
	if _, err := memberGroup(ctx, s.repo, groupID, userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListDrawsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list draws: %w", err)
	}
	return items, nil
}

func isDrawRefusal(err error) bool {
	return errors.Is(err, arisan.ErrNoActivePeriod) ||
		errors.Is(err, arisan.ErrPaymentsIncomplete) ||
		errors.Is(err, arisan.ErrCycleAlreadyComplete) ||
		errors.Is(err, arisan.ErrAlreadyDrawn)
}
