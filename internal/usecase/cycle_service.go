package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

// CycleService tracks who has won in the group's current cycle. The tracker
// methods take an arisan.Reader so they run the same inside and outside a
// transaction.
type CycleService struct {
	repo   arisan.Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewCycleService(repo arisan.Repository, logger *logging.Logger) *CycleService {
	if logger == nil {
		logger = logging.Default()
	}
	return &CycleService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *CycleService) WinnersInCurrentCycle(ctx context.Context, r arisan.Reader, group arisan.Group) ([]string, error) {
	draws, err := r.ListDrawsByCycle(ctx, group.ID, group.CurrentCycle)
	if err != nil {
		return nil, fmt.Errorf("list draws for cycle %d: %w", group.CurrentCycle, err)
	}
	return arisan.WinnersInCycle(draws, group.CurrentCycle), nil
}

func (s *CycleService) IsCycleComplete(ctx context.Context, r arisan.Reader, group arisan.Group) (bool, error) {
	members, draws, err := s.cycleState(ctx, r, group)
	if err != nil {
		return false, err
	}
	return arisan.IsCycleComplete(members, draws, group.CurrentCycle), nil
}

func (s *CycleService) EligibleMembers(ctx context.Context, r arisan.Reader, group arisan.Group) ([]arisan.Member, error) {
	members, draws, err := s.cycleState(ctx, r, group)
	if err != nil {
		return nil, err
	}
	return arisan.EligibleMembers(members, draws, group.CurrentCycle), nil
}

// AdvanceCycle starts the next cycle. Draw history is kept; eligibility is
// scoped by the cycle number stored on each draw.
func (s *CycleService) AdvanceCycle(ctx context.Context, tx arisan.Tx, group arisan.Group) (arisan.Group, error) {
	now := s.now().UTC()
	next := group.CurrentCycle + 1
	if err := tx.SetCurrentCycle(ctx, group.ID, next, now); err != nil {
		return arisan.Group{}, fmt.Errorf("advance cycle: %w", err)
	}

	group.CurrentCycle = next
	group.UpdatedAt = now
	s.logger.InfoContext(ctx, "arisan cycle advanced", "group_id", group.ID, "cycle", next)
	return group, nil
}

// Progress reports the current cycle for a member of the group.
func (s *CycleService) Progress(ctx context.Context, userID, groupID string) (arisan.CycleProgress, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CycleService.Progress")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return arisan.CycleProgress{}, err
	}

	group, err := memberGroup(ctx, s.repo, groupID, userID)
	if err != nil {
		return arisan.CycleProgress{}, err
	}
	members, draws, err := s.cycleState(ctx, s.repo, group)
	if err != nil {
		return arisan.CycleProgress{}, err
	}
	active, hasActive, err := s.repo.GetActivePeriod(ctx, group.ID)
	if err != nil {
		return arisan.CycleProgress{}, fmt.Errorf("get active period: %w", err)
	}

	var activePtr *arisan.Period
	if hasActive {
		activePtr = &active
	}
	return arisan.BuildCycleProgress(group, members, draws, activePtr), nil
}

func (s *CycleService) cycleState(ctx context.Context, r arisan.Reader, group arisan.Group) ([]arisan.Member, []arisan.Draw, error) {
	members, err := r.ListMembers(ctx, group.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list members: %w", err)
	}
	draws, err := r.ListDrawsByCycle(ctx, group.ID, group.CurrentCycle)
	if err != nil {
		return nil, nil, fmt.Errorf("list draws for cycle %d: %w", group.CurrentCycle, err)
	}
	return members, draws, nil
}
