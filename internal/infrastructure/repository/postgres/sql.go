package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
)

const pqUniqueViolation = "23505"

// Unique constraints declared in db/migrations, keyed to the domain error
// a violation means.
var constraintErrors = map[string]error{
	"arisan_group_members_pkey":         arisan.ErrAlreadyMember,
	"arisan_periods_one_active_idx":     arisan.ErrAlreadyActive,
	"arisan_periods_group_number_key":   arisan.ErrAlreadyActive,
	"arisan_payments_member_period_key": arisan.ErrConflict,
	"arisan_draws_period_key":           arisan.ErrAlreadyDrawn,
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// translateError maps unique violations on known constraints to domain
// errors and leaves everything else untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return err
	}
	if domainErr, ok := constraintErrors[pqErr.Constraint]; ok {
		return fmt.Errorf("%w: %s", domainErr, pqErr.Constraint)
	}
	return err
}
