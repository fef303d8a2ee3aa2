package arisan

import (
	"context"
	"time"
)

// Reader exposes the queries shared by the repository and open transactions.
type Reader interface {
	GetGroup(ctx context.Context, groupID string) (Group, bool, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]Group, error)
	ListMembers(ctx context.Context, groupID string) ([]Member, error)
	GetMember(ctx context.Context, groupID, userID string) (Member, bool, error)
	GetActivePeriod(ctx context.Context, groupID string) (Period, bool, error)
	GetPeriod(ctx context.Context, groupID, periodID string) (Period, bool, error)
	ListPeriods(ctx context.Context, groupID string) ([]Period, error)
	MaxPeriodNumber(ctx context.Context, groupID string) (int, error)
	GetPayment(ctx context.Context, groupID, paymentID string) (Payment, bool, error)
	GetPaymentByMember(ctx context.Context, periodID, userID string) (Payment, bool, error)
	ListPaymentsByPeriod(ctx context.Context, periodID string) ([]Payment, error)
	ListPaymentsByGroup(ctx context.Context, groupID string) ([]Payment, error)
	ListDrawsByGroup(ctx context.Context, groupID string) ([]Draw, error)
	ListDrawsByCycle(ctx context.Context, groupID string, cycle int) ([]Draw, error)
	GetDrawByPeriod(ctx context.Context, periodID string) (Draw, bool, error)
}

// Writer mutations are only reachable inside a transaction.
type Writer interface {
	// LockGroup loads the group and holds it against concurrent writers
	// until the transaction ends.
	LockGroup(ctx context.Context, groupID string) (Group, bool, error)
	CreateGroup(ctx context.Context, group Group) error
	UpdateGroup(ctx context.Context, group Group) error
	// DeleteGroup removes the group with its members, periods, payments and draws.
	DeleteGroup(ctx context.Context, groupID string) error
	AddMember(ctx context.Context, member Member) error
	RemoveMember(ctx context.Context, groupID, userID string) error
	SetCurrentCycle(ctx context.Context, groupID string, cycle int, at time.Time) error
	CreatePeriod(ctx context.Context, period Period) error
	// CompletePeriod moves an active period to completed and fails with
	// ErrNoActivePeriod when the period is not active.
	CompletePeriod(ctx context.Context, periodID string, at time.Time) error
	CreatePayment(ctx context.Context, payment Payment) error
	DeletePayment(ctx context.Context, paymentID string) error
	// UpdatePaymentStatus applies a reviewed payment only when the stored row is
	// still pending, otherwise ErrInvalidTransition.
	UpdatePaymentStatus(ctx context.Context, payment Payment) error
	CreateDraw(ctx context.Context, draw Draw) error
}

type Tx interface {
	Reader
	Writer
}

// Repository runs fn in one transaction. Any error returned by fn rolls back
// every write made through tx.
type Repository interface {
	Reader
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
