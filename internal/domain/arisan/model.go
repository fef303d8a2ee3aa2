package arisan

import "time"

type PeriodStatus string

const (
	PeriodStatusPending   PeriodStatus = "pending"
	PeriodStatusActive    PeriodStatus = "active"
	PeriodStatusCompleted PeriodStatus = "completed"
)

func (s PeriodStatus) Valid() bool {
	switch s {
	case PeriodStatusPending, PeriodStatusActive, PeriodStatusCompleted:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusApproved PaymentStatus = "approved"
	PaymentStatusRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusApproved, PaymentStatusRejected:
		return true
	}
	return false
}

// MemberPaymentState is a member's standing for one period. It extends
// PaymentStatus with NotPaid for members without a payment row.
type MemberPaymentState string

const (
	MemberPaymentNotPaid  MemberPaymentState = "not_paid"
	MemberPaymentPending  MemberPaymentState = "pending"
	MemberPaymentApproved MemberPaymentState = "approved"
	MemberPaymentRejected MemberPaymentState = "rejected"
)

func StateFromPayment(s PaymentStatus) MemberPaymentState {
	switch s {
	case PaymentStatusPending:
		return MemberPaymentPending
	case PaymentStatusApproved:
		return MemberPaymentApproved
	case PaymentStatusRejected:
		return MemberPaymentRejected
	}
	return MemberPaymentNotPaid
}

const (
	MinContributionAmount  int64 = 1000
	MinPeriodDurationWeeks       = 1
	MinMembersToStart            = 2
)

type Group struct {
	ID                  string
	Name                string
	Description         string
	TransferAccount     string
	CreatorUserID       string
	ContributionAmount  int64
	PeriodDurationWeeks int
	CurrentCycle        int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (g Group) IsCreator(userID string) bool {
	return userID != "" && g.CreatorUserID == userID
}

type Member struct {
	GroupID  string
	UserID   string
	JoinedAt time.Time
}

type Period struct {
	ID        string
	GroupID   string
	Number    int
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Payment struct {
	ID         string
	GroupID    string
	UserID     string
	PeriodID   string
	AmountPaid int64
	PaidAt     time.Time
	Status     PaymentStatus
	ProofRef   string
	Notes      string
	ReviewedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Draw struct {
	ID             string
	GroupID        string
	PeriodID       string
	WinnerUserID   string
	DrawnAt        time.Time
	TotalPotAmount int64
	CycleNumber    int
}

// DrawResult is what a successful draw reports back. CycleComplete is
// recomputed after the draw is recorded.
type DrawResult struct {
	Draw          Draw
	Period        Period
	CycleComplete bool
}

type MemberPaymentStatus struct {
	UserID  string
	State   MemberPaymentState
	Payment *Payment
}

type PaymentSummary struct {
	TotalMembers int
	PaidCount    int
	UnpaidCount  int
	TotalPot     int64
	Collected    int64
}

// PeriodPaymentStatus is the per-member view of a period. Period is nil when
// the group has no active period.
type PeriodPaymentStatus struct {
	Period  *Period
	Members []MemberPaymentStatus
	Summary PaymentSummary
}

// CycleProgress summarizes how far the current cycle has gone.
type CycleProgress struct {
	Cycle          int
	Winners        []string
	EligibleCount  int
	TotalMembers   int
	Complete       bool
	ActivePeriodID string
}
