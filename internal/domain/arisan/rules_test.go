package arisan

import (
	"errors"
	"testing"
	"time"
)

func members(ids ...string) []Member {
	out := make([]Member, 0, len(ids))
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	for i, id := range ids {
		out = append(out, Member{GroupID: "g1", UserID: id, JoinedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	return out
}

func payment(userID string, status PaymentStatus) Payment {
	return Payment{ID: "pay-" + userID, GroupID: "g1", PeriodID: "p1", UserID: userID, AmountPaid: 50000, Status: status}
}

func TestNextPeriodNumber(t *testing.T) {
	if got := NextPeriodNumber(0); got != 1 {
		t.Fatalf("expected first period number 1, got %d", got)
	}
	if got := NextPeriodNumber(4); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestNewActivePeriod_EndDateFromDuration(t *testing.T) {
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	p := NewActivePeriod("p1", Group{ID: "g1", PeriodDurationWeeks: 4}, 1, now)

	if p.Status != PeriodStatusActive {
		t.Fatalf("expected active period, got %s", p.Status)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !p.EndDate.Equal(want) {
		t.Fatalf("unexpected end date: want %s got %s", want, p.EndDate)
	}
}

func TestIsFullyPaid(t *testing.T) {
	ms := members("a", "b", "c")

	tests := []struct {
		name     string
		members  []Member
		payments []Payment
		want     bool
	}{
		{name: "no members", members: nil, payments: nil, want: false},
		{name: "all approved", members: ms, payments: []Payment{payment("a", PaymentStatusApproved), payment("b", PaymentStatusApproved), payment("c", PaymentStatusApproved)}, want: true},
		{name: "one pending", members: ms, payments: []Payment{payment("a", PaymentStatusApproved), payment("b", PaymentStatusPending), payment("c", PaymentStatusApproved)}, want: false},
		{name: "removed member approval ignored", members: ms[:2], payments: []Payment{payment("a", PaymentStatusApproved), payment("b", PaymentStatusApproved), payment("c", PaymentStatusApproved)}, want: true},
		{name: "late joiner counts", members: append(ms, members("d")...), payments: []Payment{payment("a", PaymentStatusApproved), payment("b", PaymentStatusApproved), payment("c", PaymentStatusApproved)}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsFullyPaid(tc.members, tc.payments); got != tc.want {
				t.Fatalf("IsFullyPaid=%v want %v", got, tc.want)
			}
		})
	}
}

func TestUnpaidMembers(t *testing.T) {
	unpaid := UnpaidMembers(members("a", "b", "c"), []Payment{
		payment("a", PaymentStatusApproved),
		payment("b", PaymentStatusRejected),
	})
	if len(unpaid) != 2 || unpaid[0].UserID != "b" || unpaid[1].UserID != "c" {
		t.Fatalf("unexpected unpaid members: %+v", unpaid)
	}
}

func TestCycleRules_ScopedByCycleNumber(t *testing.T) {
	ms := members("a", "b", "c")
	draws := []Draw{
		{PeriodID: "p1", WinnerUserID: "a", CycleNumber: 1},
		{PeriodID: "p2", WinnerUserID: "b", CycleNumber: 1},
		{PeriodID: "p3", WinnerUserID: "c", CycleNumber: 1},
		{PeriodID: "p4", WinnerUserID: "b", CycleNumber: 2},
	}

	if !IsCycleComplete(ms, draws, 1) {
		t.Fatalf("expected cycle 1 to be complete")
	}
	if IsCycleComplete(ms, draws, 2) {
		t.Fatalf("expected cycle 2 to be incomplete")
	}
	if got := EligibleMembers(ms, draws, 1); len(got) != 0 {
		t.Fatalf("expected no eligible members in cycle 1, got %+v", got)
	}

	eligible := EligibleMembers(ms, draws, 2)
	if len(eligible) != 2 || eligible[0].UserID != "a" || eligible[1].UserID != "c" {
		t.Fatalf("unexpected eligible members in cycle 2: %+v", eligible)
	}
}

func TestIsCycleComplete_RecomputedFromCurrentMembership(t *testing.T) {
	draws := []Draw{
		{WinnerUserID: "a", CycleNumber: 1},
		{WinnerUserID: "b", CycleNumber: 1},
	}
	if !IsCycleComplete(members("a", "b"), draws, 1) {
		t.Fatalf("expected complete with two members")
	}
	if IsCycleComplete(members("a", "b", "c"), draws, 1) {
		t.Fatalf("expected incomplete after a third member joined")
	}
	if IsCycleComplete(nil, nil, 1) {
		t.Fatalf("empty group is never complete")
	}
}

func TestTransitionPayment(t *testing.T) {
	at := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

	approved, err := TransitionPayment(payment("a", PaymentStatusPending), PaymentStatusApproved, at)
	if err != nil {
		t.Fatalf("approve pending payment: %v", err)
	}
	if approved.Status != PaymentStatusApproved || approved.ReviewedAt == nil || !approved.ReviewedAt.Equal(at) {
		t.Fatalf("unexpected approved payment: %+v", approved)
	}

	for _, from := range []PaymentStatus{PaymentStatusApproved, PaymentStatusRejected} {
		for _, to := range []PaymentStatus{PaymentStatusApproved, PaymentStatusRejected} {
			if _, err := TransitionPayment(payment("a", from), to, at); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", from, to, err)
			}
		}
	}
	if _, err := TransitionPayment(payment("a", PaymentStatusPending), PaymentStatusPending, at); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> pending should be invalid, got %v", err)
	}
}

func TestBuildPeriodPaymentStatus(t *testing.T) {
	group := Group{ID: "g1", ContributionAmount: 50000}
	period := &Period{ID: "p1", GroupID: "g1", Number: 1, Status: PeriodStatusActive}
	ms := members("a", "b", "c")
	payments := []Payment{payment("a", PaymentStatusApproved), payment("b", PaymentStatusPending)}

	first := BuildPeriodPaymentStatus(group, period, ms, payments)
	if first.Summary != (PaymentSummary{TotalMembers: 3, PaidCount: 1, UnpaidCount: 2, TotalPot: 150000, Collected: 50000}) {
		t.Fatalf("unexpected summary: %+v", first.Summary)
	}
	wantStates := []MemberPaymentState{MemberPaymentApproved, MemberPaymentPending, MemberPaymentNotPaid}
	for i, row := range first.Members {
		if row.State != wantStates[i] {
			t.Fatalf("member %s: want %s got %s", row.UserID, wantStates[i], row.State)
		}
	}
	if first.Members[2].Payment != nil {
		t.Fatalf("expected no payment for unpaid member")
	}

	idle := BuildPeriodPaymentStatus(group, nil, ms, nil)
	if idle.Period != nil || len(idle.Members) != 0 || idle.Summary.UnpaidCount != 3 {
		t.Fatalf("unexpected status without active period: %+v", idle)
	}
}

func TestMembershipLocked(t *testing.T) {
	ms := members("a", "b")
	if err := MembershipLocked(ms, nil, 1, true); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	partial := []Draw{{WinnerUserID: "a", CycleNumber: 1}}
	if err := MembershipLocked(ms, partial, 1, false); !errors.Is(err, ErrCycleInProgress) {
		t.Fatalf("expected ErrCycleInProgress, got %v", err)
	}
	full := append(partial, Draw{WinnerUserID: "b", CycleNumber: 1})
	if err := MembershipLocked(ms, full, 1, false); err != nil {
		t.Fatalf("expected unlocked after full cycle, got %v", err)
	}
}

func TestPaymentsIncompleteError(t *testing.T) {
	err := error(&PaymentsIncompleteError{Unpaid: members("b", "c")})
	if !errors.Is(err, ErrPaymentsIncomplete) {
		t.Fatalf("expected errors.Is to match ErrPaymentsIncomplete")
	}
	unpaid, ok := UnpaidMembersOf(err)
	if !ok || len(unpaid) != 2 {
		t.Fatalf("expected unpaid list, got %+v %v", unpaid, ok)
	}
}
