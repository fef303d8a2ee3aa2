package arisan

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

func ValidateGroup(g Group) error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("group name is required")
	}
	if g.ContributionAmount < MinContributionAmount {
		return fmt.Errorf("contribution amount must be at least %d", MinContributionAmount)
	}
	if g.PeriodDurationWeeks < MinPeriodDurationWeeks {
		return fmt.Errorf("period duration must be at least %d week", MinPeriodDurationWeeks)
	}
	if g.CreatorUserID == "" {
		return fmt.Errorf("creator is required")
	}
	if g.CurrentCycle < 1 {
		return fmt.Errorf("current cycle must be >= 1")
	}
	return nil
}

// NextPeriodNumber continues the group's sequence; numbers are never reused.
func NextPeriodNumber(maxExisting int) int {
	if maxExisting < 0 {
		return 1
	}
	return maxExisting + 1
}

func PeriodEndDate(start time.Time, weeks int) time.Time {
	return start.AddDate(0, 0, 7*weeks)
}

func NewActivePeriod(id string, group Group, number int, now time.Time) Period {
	return Period{
		ID:        id,
		GroupID:   group.ID,
		Number:    number,
		StartDate: now,
		EndDate:   PeriodEndDate(now, group.PeriodDurationWeeks),
		Status:    PeriodStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func approvedUsers(payments []Payment) map[string]struct{} {
	out := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		if p.Status == PaymentStatusApproved {
			out[p.UserID] = struct{}{}
		}
	}
	return out
}

// IsFullyPaid reports whether every current member has an approved payment.
// Membership is evaluated at call time.
func IsFullyPaid(members []Member, payments []Payment) bool {
	if len(members) == 0 {
		return false
	}
	approved := approvedUsers(payments)
	for _, m := range members {
		if _, ok := approved[m.UserID]; !ok {
			return false
		}
	}
	return true
}

func UnpaidMembers(members []Member, payments []Payment) []Member {
	approved := approvedUsers(payments)
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if _, ok := approved[m.UserID]; !ok {
			out = append(out, m)
		}
	}
	return out
}

// WinnersInCycle returns winner user IDs of draws recorded in cycle, in draw order.
func WinnersInCycle(draws []Draw, cycle int) []string {
	out := make([]string, 0, len(draws))
	for _, d := range draws {
		if d.CycleNumber == cycle {
			out = append(out, d.WinnerUserID)
		}
	}
	return out
}

// IsCycleComplete is recomputed from current membership, so members joining
// after some wins make a previously complete cycle incomplete again.
func IsCycleComplete(members []Member, draws []Draw, cycle int) bool {
	if len(members) == 0 {
		return false
	}
	return len(members) == len(WinnersInCycle(draws, cycle))
}

// EligibleMembers are members who have not won in cycle, ordered by user ID
// so the random pick is the only source of variation.
func EligibleMembers(members []Member, draws []Draw, cycle int) []Member {
	won := make(map[string]struct{})
	for _, id := range WinnersInCycle(draws, cycle) {
		won[id] = struct{}{}
	}

	out := make([]Member, 0, len(members))
	for _, m := range members {
		if _, ok := won[m.UserID]; !ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func TotalPot(contribution int64, memberCount int) int64 {
	return contribution * int64(memberCount)
}

// CanTransition allows only pending -> approved and pending -> rejected.
func CanTransition(from, to PaymentStatus) bool {
	if from != PaymentStatusPending {
		return false
	}
	return to == PaymentStatusApproved || to == PaymentStatusRejected
}

func TransitionPayment(p Payment, to PaymentStatus, at time.Time) (Payment, error) {
	if !CanTransition(p.Status, to) {
		return Payment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	p.ReviewedAt = &at
	p.UpdatedAt = at
	return p, nil
}

// BuildPeriodPaymentStatus lists every member's state for period. With a nil
// period the member list is empty and every member counts as unpaid.
func BuildPeriodPaymentStatus(group Group, period *Period, members []Member, payments []Payment) PeriodPaymentStatus {
	summary := PaymentSummary{
		TotalMembers: len(members),
		TotalPot:     TotalPot(group.ContributionAmount, len(members)),
	}
	if period == nil {
		summary.UnpaidCount = len(members)
		return PeriodPaymentStatus{Members: []MemberPaymentStatus{}, Summary: summary}
	}

	byUser := make(map[string]Payment, len(payments))
	for _, p := range payments {
		byUser[p.UserID] = p
	}

	sorted := append([]Member(nil), members...)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].JoinedAt.Equal(sorted[j].JoinedAt) {
			return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	rows := make([]MemberPaymentStatus, 0, len(sorted))
	for _, m := range sorted {
		row := MemberPaymentStatus{UserID: m.UserID, State: MemberPaymentNotPaid}
		if p, ok := byUser[m.UserID]; ok {
			row.State = StateFromPayment(p.Status)
			row.Payment = &p
			if p.Status == PaymentStatusApproved {
				summary.PaidCount++
				summary.Collected += p.AmountPaid
			}
		}
		rows = append(rows, row)
	}
	summary.UnpaidCount = summary.TotalMembers - summary.PaidCount

	p := *period
	return PeriodPaymentStatus{Period: &p, Members: rows, Summary: summary}
}

func BuildCycleProgress(group Group, members []Member, draws []Draw, active *Period) CycleProgress {
	progress := CycleProgress{
		Cycle:         group.CurrentCycle,
		Winners:       WinnersInCycle(draws, group.CurrentCycle),
		EligibleCount: len(EligibleMembers(members, draws, group.CurrentCycle)),
		TotalMembers:  len(members),
		Complete:      IsCycleComplete(members, draws, group.CurrentCycle),
	}
	if active != nil {
		progress.ActivePeriodID = active.ID
	}
	return progress
}

// MembershipLocked reports whether membership is frozen: a period is running,
// or the cycle has draws but is not yet complete.
func MembershipLocked(members []Member, draws []Draw, cycle int, hasActivePeriod bool) error {
	if hasActivePeriod {
		return ErrAlreadyActive
	}
	if len(WinnersInCycle(draws, cycle)) > 0 && !IsCycleComplete(members, draws, cycle) {
		return ErrCycleInProgress
	}
	return nil
}
