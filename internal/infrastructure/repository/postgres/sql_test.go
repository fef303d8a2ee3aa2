package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "draw per period", err: &pq.Error{Code: "23505", Constraint: "arisan_draws_period_key"}, want: arisan.ErrAlreadyDrawn},
		{name: "single active period", err: &pq.Error{Code: "23505", Constraint: "arisan_periods_one_active_idx"}, want: arisan.ErrAlreadyActive},
		{name: "payment slot", err: fmt.Errorf("create payment: %w", &pq.Error{Code: "23505", Constraint: "arisan_payments_member_period_key"}), want: arisan.ErrConflict},
		{name: "membership", err: &pq.Error{Code: "23505", Constraint: "arisan_group_members_pkey"}, want: arisan.ErrAlreadyMember},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := translateError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestTranslateError_LeavesOtherErrors(t *testing.T) {
	fk := &pq.Error{Code: "23503", Constraint: "arisan_payments_period_id_fkey"}
	if got := translateError(fk); got != error(fk) {
		t.Fatalf("expected foreign key error untouched, got %v", got)
	}

	unknown := &pq.Error{Code: "23505", Constraint: "some_other_key"}
	if got := translateError(unknown); got != error(unknown) {
		t.Fatalf("expected unknown constraint untouched, got %v", got)
	}

	if translateError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get group: %w", sql.ErrNoRows)) {
		t.Fatalf("expected wrapped ErrNoRows to be not found")
	}
	if isNotFound(errors.New("connection reset")) {
		t.Fatalf("expected unrelated error to be found")
	}
}
