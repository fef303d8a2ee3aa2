package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

func normalizeIDs(ids ...*string) {
	for _, id := range ids {
		*id = strings.TrimSpace(*id)
	}
}

func requireIDs(userID, groupID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if groupID == "" {
		return fmt.Errorf("%w: group id is required", ErrInvalidInput)
	}
	return nil
}

// memberGroup loads the group for a caller who must belong to it.
func memberGroup(ctx context.Context, r arisan.Reader, groupID, userID string) (arisan.Group, error) {
	group, exists, err := r.GetGroup(ctx, groupID)
	if err != nil {
		return arisan.Group{}, fmt.Errorf("get group: %w", err)
	}
	if !exists {
		return arisan.Group{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	if _, ok, err := r.GetMember(ctx, groupID, userID); err != nil {
		return arisan.Group{}, fmt.Errorf("get membership: %w", err)
	} else if !ok {
		return arisan.Group{}, arisan.ErrNotMember
	}
	return group, nil
}

// lockCreatorGroup locks the group row for the rest of tx and checks the
// caller is its creator before any state is inspected.
func lockCreatorGroup(ctx context.Context, tx arisan.Tx, groupID, userID string) (arisan.Group, error) {
	group, exists, err := tx.LockGroup(ctx, groupID)
	if err != nil {
		return arisan.Group{}, fmt.Errorf("lock group: %w", err)
	}
	if !exists {
		return arisan.Group{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	if !group.IsCreator(userID) {
		return arisan.Group{}, arisan.ErrNotCreator
	}
	return group, nil
}

func lockMemberGroup(ctx context.Context, tx arisan.Tx, groupID, userID string) (arisan.Group, error) {
	group, exists, err := tx.LockGroup(ctx, groupID)
	if err != nil {
		return arisan.Group{}, fmt.Errorf("lock group: %w", err)
	}
	if !exists {
		return arisan.Group{}, fmt.Errorf("%w: group=%s", ErrNotFound, groupID)
	}
	if _, ok, err := tx.GetMember(ctx, groupID, userID); err != nil {
		return arisan.Group{}, fmt.Errorf("get membership: %w", err)
	} else if !ok {
		return arisan.Group{}, arisan.ErrNotMember
	}
	return group, nil
}
