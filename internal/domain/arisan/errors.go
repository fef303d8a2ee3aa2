package arisan

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAlreadyActive        = errors.New("an active period already exists")
	ErrInsufficientMembers  = errors.New("at least two members are required")
	ErrNoActivePeriod       = errors.New("no active period")
	ErrConflict             = errors.New("payment already submitted for this period")
	ErrInvalidTransition    = errors.New("payment is not pending")
	ErrPaymentsIncomplete   = errors.New("not all members have an approved payment")
	ErrCycleAlreadyComplete = errors.New("every member has already won in this cycle")
	ErrAlreadyDrawn         = errors.New("period already has a draw")
	ErrNotMember            = errors.New("user is not a member of the group")
	ErrNotCreator           = errors.New("only the group creator can do this")
	ErrAlreadyMember        = errors.New("user is already a member of the group")
	ErrCreatorImmutable     = errors.New("the group creator cannot be removed")
	ErrCycleInProgress      = errors.New("the current cycle is in progress")
)

// PaymentsIncompleteError lists members without an approved payment.
type PaymentsIncompleteError struct {
	Unpaid []Member
}

func (e *PaymentsIncompleteError) Error() string {
	ids := make([]string, 0, len(e.Unpaid))
	for _, m := range e.Unpaid {
		ids = append(ids, m.UserID)
	}
	return fmt.Sprintf("%s: %s", ErrPaymentsIncomplete.Error(), strings.Join(ids, ", "))
}

func (e *PaymentsIncompleteError) Is(target error) bool {
	return target == ErrPaymentsIncomplete
}

// UnpaidMembersOf extracts the unpaid list from err, if it carries one.
func UnpaidMembersOf(err error) ([]Member, bool) {
	var incomplete *PaymentsIncompleteError
	if errors.As(err, &incomplete) {
		return incomplete.Unpaid, true
	}
	return nil, false
}
