package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/domain/proof"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

type CreateGroupInput struct {
	UserID              string
	Name                string
	Description         string
	TransferAccount     string
	ContributionAmount  int64
	PeriodDurationWeeks int
	MemberUserIDs       []string
}

// UpdateGroupInput applies only the non-nil fields.
type UpdateGroupInput struct {
	UserID              string
	GroupID             string
	Name                *string
	Description         *string
	TransferAccount     *string
	ContributionAmount  *int64
	PeriodDurationWeeks *int
}

type MemberInput struct {
	UserID       string
	GroupID      string
	TargetUserID string
}

type GroupDetail struct {
	Group        arisan.Group
	Members      []arisan.Member
	Periods      []arisan.Period
	Draws        []arisan.Draw
	ActivePeriod *arisan.Period
	Progress     arisan.CycleProgress
	IsCreator    bool
}

type GroupService struct {
	repo   arisan.Repository
	proofs proof.Store
	idGen  idgen.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewGroupService(repo arisan.Repository, proofs proof.Store, idGen idgen.Generator, logger *logging.Logger) *GroupService {
	if logger == nil {
		logger = logging.Default()
	}
	return &GroupService{
		repo:   repo,
		proofs: proofs,
		idGen:  idGen,
		logger: logger,
		now:    time.Now,
	}
}

// Create makes the caller the creator and first member. Listed users join in
// the same transaction.
func (s *GroupService) Create(ctx context.Context, input CreateGroupInput) (arisan.Group, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Create")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	if input.UserID == "" {
		return arisan.Group{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	groupID, err := s.idGen.NewID()
	if err != nil {
		return arisan.Group{}, fmt.Errorf("generate group id: %w", err)
	}

	now := s.now().UTC()
	group := arisan.Group{
		ID:                  groupID,
		Name:                strings.TrimSpace(input.Name),
		Description:         strings.TrimSpace(input.Description),
		TransferAccount:     strings.TrimSpace(input.TransferAccount),
		CreatorUserID:       input.UserID,
		ContributionAmount:  input.ContributionAmount,
		PeriodDurationWeeks: input.PeriodDurationWeeks,
		CurrentCycle:        1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := arisan.ValidateGroup(group); err != nil {
		return arisan.Group{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	memberIDs := uniqueMemberIDs(input.UserID, input.MemberUserIDs)
	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		if err := tx.CreateGroup(ctx, group); err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		for _, userID := range memberIDs {
			if err := tx.AddMember(ctx, arisan.Member{GroupID: group.ID, UserID: userID, JoinedAt: now}); err != nil {
				return fmt.Errorf("add member %s: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return arisan.Group{}, err
	}

	s.logger.InfoContext(ctx, "arisan group created", "group_id", group.ID, "creator_user_id", group.CreatorUserID, "members", len(memberIDs))
	return group, nil
}

// Get loads the group with its members, periods and draws.
func (s *GroupService) Get(ctx context.Context, userID, groupID string) (GroupDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Get")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return GroupDetail{}, err
	}

	group, err := memberGroup(ctx, s.repo, groupID, userID)
	if err != nil {
		return GroupDetail{}, err
	}

	detail := GroupDetail{Group: group, IsCreator: group.IsCreator(userID)}
	var (
		cycleDraws []arisan.Draw
		active     arisan.Period
		hasActive  bool
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		items, err := s.repo.ListMembers(ctx, groupID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		detail.Members = items
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := s.repo.ListPeriods(ctx, groupID)
		if err != nil {
			return fmt.Errorf("list periods: %w", err)
		}
		detail.Periods = items
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := s.repo.ListDrawsByGroup(ctx, groupID)
		if err != nil {
			return fmt.Errorf("list draws: %w", err)
		}
		detail.Draws = items
		return nil
	})
	p.Go(func(ctx context.Context) error {
		items, err := s.repo.ListDrawsByCycle(ctx, groupID, group.CurrentCycle)
		if err != nil {
			return fmt.Errorf("list cycle draws: %w", err)
		}
		cycleDraws = items
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		active, hasActive, err = s.repo.GetActivePeriod(ctx, groupID)
		if err != nil {
			return fmt.Errorf("get active period: %w", err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return GroupDetail{}, err
	}

	if hasActive {
		detail.ActivePeriod = &active
	}
	detail.Progress = arisan.BuildCycleProgress(group, detail.Members, cycleDraws, detail.ActivePeriod)
	return detail, nil
}

func (s *GroupService) ListMine(ctx context.Context, userID string) ([]arisan.Group, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.ListMine")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}

	items, err := s.repo.ListGroupsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups by user: %w", err)
	}
	return items, nil
}

// Update edits group settings. Contribution and duration are frozen while a
// period is active.
func (s *GroupService) Update(ctx context.Context, input UpdateGroupInput) (arisan.Group, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Update")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.Group{}, err
	}

	var updated arisan.Group
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}

		if input.ContributionAmount != nil || input.PeriodDurationWeeks != nil {
			if _, active, err := tx.GetActivePeriod(ctx, group.ID); err != nil {
				return fmt.Errorf("get active period: %w", err)
			} else if active {
				return arisan.ErrAlreadyActive
			}
		}

		if input.Name != nil {
			group.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			group.Description = strings.TrimSpace(*input.Description)
		}
		if input.TransferAccount != nil {
			group.TransferAccount = strings.TrimSpace(*input.TransferAccount)
		}
		if input.ContributionAmount != nil {
			group.ContributionAmount = *input.ContributionAmount
		}
		if input.PeriodDurationWeeks != nil {
			group.PeriodDurationWeeks = *input.PeriodDurationWeeks
		}
		if err := arisan.ValidateGroup(group); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		group.UpdatedAt = s.now().UTC()
		if err := tx.UpdateGroup(ctx, group); err != nil {
			return fmt.Errorf("update group: %w", err)
		}
		updated = group
		return nil
	})
	if err != nil {
		return arisan.Group{}, err
	}
	return updated, nil
}

// Delete removes the group and everything it owns. Refused while a cycle has
// draws but is not complete.
func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Delete")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return err
	}

	var refs []string
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}

		members, err := tx.ListMembers(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		draws, err := tx.ListDrawsByCycle(ctx, group.ID, group.CurrentCycle)
		if err != nil {
			return fmt.Errorf("list cycle draws: %w", err)
		}
		if len(draws) > 0 && !arisan.IsCycleComplete(members, draws, group.CurrentCycle) {
			return arisan.ErrCycleInProgress
		}

		payments, err := tx.ListPaymentsByGroup(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		for _, p := range payments {
			if p.ProofRef != "" && p.Status != arisan.PaymentStatusRejected {
				refs = append(refs, p.ProofRef)
			}
		}

		if err := tx.DeleteGroup(ctx, group.ID); err != nil {
			return fmt.Errorf("delete group: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.releaseProofs(ctx, refs)
	s.logger.InfoContext(ctx, "arisan group deleted", "group_id", groupID, "released_proofs", len(refs))
	return nil
}

// InviteMember adds a user. Membership is frozen while a period is active
// and while the current cycle is partially drawn.
func (s *GroupService) InviteMember(ctx context.Context, input MemberInput) (arisan.Member, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.InviteMember")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID, &input.TargetUserID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.Member{}, err
	}
	if input.TargetUserID == "" {
		return arisan.Member{}, fmt.Errorf("%w: target user id is required", ErrInvalidInput)
	}

	var member arisan.Member
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}
		if _, exists, err := tx.GetMember(ctx, group.ID, input.TargetUserID); err != nil {
			return fmt.Errorf("get membership: %w", err)
		} else if exists {
			return arisan.ErrAlreadyMember
		}
		if err := membershipLocked(ctx, tx, group); err != nil {
			return err
		}

		member = arisan.Member{GroupID: group.ID, UserID: input.TargetUserID, JoinedAt: s.now().UTC()}
		if err := tx.AddMember(ctx, member); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
		return nil
	})
	if err != nil {
		return arisan.Member{}, err
	}

	s.logger.InfoContext(ctx, "arisan member invited", "group_id", member.GroupID, "user_id", member.UserID)
	return member, nil
}

// RemoveMember is refused for the creator and while a period is active.
func (s *GroupService) RemoveMember(ctx context.Context, input MemberInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.RemoveMember")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID, &input.TargetUserID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return err
	}
	if input.TargetUserID == "" {
		return fmt.Errorf("%w: target user id is required", ErrInvalidInput)
	}

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}
		return s.removeMember(ctx, tx, group, input.TargetUserID)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "arisan member removed", "group_id", input.GroupID, "user_id", input.TargetUserID)
	return nil
}

// Leave removes the caller from the group under the same rules as RemoveMember.
func (s *GroupService) Leave(ctx context.Context, userID, groupID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.GroupService.Leave")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return err
	}

	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockMemberGroup(ctx, tx, groupID, userID)
		if err != nil {
			return err
		}
		return s.removeMember(ctx, tx, group, userID)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "arisan member left", "group_id", groupID, "user_id", userID)
	return nil
}

func (s *GroupService) removeMember(ctx context.Context, tx arisan.Tx, group arisan.Group, targetUserID string) error {
	if group.IsCreator(targetUserID) {
		return arisan.ErrCreatorImmutable
	}
	if _, exists, err := tx.GetMember(ctx, group.ID, targetUserID); err != nil {
		return fmt.Errorf("get membership: %w", err)
	} else if !exists {
		return arisan.ErrNotMember
	}
	if _, active, err := tx.GetActivePeriod(ctx, group.ID); err != nil {
		return fmt.Errorf("get active period: %w", err)
	} else if active {
		return arisan.ErrAlreadyActive
	}

	if err := tx.RemoveMember(ctx, group.ID, targetUserID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *GroupService) releaseProofs(ctx context.Context, refs []string) {
	if len(refs) == 0 {
		return
	}

	var err error
	if bulk, ok := s.proofs.(proof.BulkDeleter); ok {
		err = bulk.DeleteMany(ctx, refs)
	} else {
		for _, ref := range refs {
			if delErr := s.proofs.Delete(ctx, ref); delErr != nil && !errors.Is(delErr, proof.ErrNotFound) {
				err = errors.Join(err, delErr)
			}
		}
	}
	if err != nil {
		s.logger.WarnContext(ctx, "release group proofs failed", "count", len(refs), "error", err)
	}
}

func membershipLocked(ctx context.Context, tx arisan.Tx, group arisan.Group) error {
	_, active, err := tx.GetActivePeriod(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("get active period: %w", err)
	}
	members, err := tx.ListMembers(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	draws, err := tx.ListDrawsByCycle(ctx, group.ID, group.CurrentCycle)
	if err != nil {
		return fmt.Errorf("list cycle draws: %w", err)
	}
	return arisan.MembershipLocked(members, draws, group.CurrentCycle, active)
}

func uniqueMemberIDs(creatorID string, others []string) []string {
	seen := map[string]struct{}{creatorID: {}}
	out := []string{creatorID}
	for _, id := range others {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
