package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	qb "github.com/riskibarqy/arisan/internal/platform/querybuilder"
)

// ArisanRepository stores groups, periods, payments and draws in Postgres.
type ArisanRepository struct {
	db *sqlx.DB
	store
}

func NewArisanRepository(db *sqlx.DB) *ArisanRepository {
	return &ArisanRepository{db: db, store: store{ext: db}}
}

// WithinTx runs fn at read committed. Writers serialize on the group row via
// LockGroup; unique constraints back up the same rules.
func (r *ArisanRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx arisan.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, &txStore{store: store{ext: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// store implements the read side over either the pool or an open tx.
type store struct {
	ext sqlx.ExtContext
}

func (s store) get(ctx context.Context, dest any, b *qb.SelectBuilder, what string) (bool, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return false, fmt.Errorf("build %s query: %w", what, err)
	}
	if err := sqlx.GetContext(ctx, s.ext, dest, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", what, err)
	}
	return true, nil
}

func (s store) list(ctx context.Context, dest any, b *qb.SelectBuilder, what string) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	if err := sqlx.SelectContext(ctx, s.ext, dest, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}

func (s store) GetGroup(ctx context.Context, groupID string) (arisan.Group, bool, error) {
	var row groupTableModel
	ok, err := s.get(ctx, &row, groupSelect("").From(tableGroups).Where(qb.Eq("id", groupID)), "get group")
	if err != nil || !ok {
		return arisan.Group{}, ok, err
	}
	return groupFromRow(row), true, nil
}

func (s store) ListGroupsByUser(ctx context.Context, userID string) ([]arisan.Group, error) {
	var rows []groupTableModel
	b := groupSelect("g").
		From(tableGroups + " g JOIN " + tableMembers + " m ON m.group_id = g.id").
		Where(qb.Eq("m.user_id", userID)).
		OrderBy("g.created_at DESC", "g.id")
	if err := s.list(ctx, &rows, b, "list groups by user"); err != nil {
		return nil, err
	}

	out := make([]arisan.Group, 0, len(rows))
	for _, row := range rows {
		out = append(out, groupFromRow(row))
	}
	return out, nil
}

func (s store) ListMembers(ctx context.Context, groupID string) ([]arisan.Member, error) {
	var rows []memberTableModel
	b := memberSelect().Where(qb.Eq("group_id", groupID)).OrderBy("joined_at", "user_id")
	if err := s.list(ctx, &rows, b, "list members"); err != nil {
		return nil, err
	}

	out := make([]arisan.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, memberFromRow(row))
	}
	return out, nil
}

func (s store) GetMember(ctx context.Context, groupID, userID string) (arisan.Member, bool, error) {
	var row memberTableModel
	ok, err := s.get(ctx, &row, memberSelect().Where(qb.Eq("group_id", groupID), qb.Eq("user_id", userID)), "get member")
	if err != nil || !ok {
		return arisan.Member{}, ok, err
	}
	return memberFromRow(row), true, nil
}

func (s store) GetActivePeriod(ctx context.Context, groupID string) (arisan.Period, bool, error) {
	var row periodTableModel
	b := periodSelect().Where(qb.Eq("group_id", groupID), qb.EqLiteral("status", string(arisan.PeriodStatusActive)))
	ok, err := s.get(ctx, &row, b, "get active period")
	if err != nil || !ok {
		return arisan.Period{}, ok, err
	}
	return periodFromRow(row), true, nil
}

func (s store) GetPeriod(ctx context.Context, groupID, periodID string) (arisan.Period, bool, error) {
	var row periodTableModel
	ok, err := s.get(ctx, &row, periodSelect().Where(qb.Eq("id", periodID), qb.Eq("group_id", groupID)), "get period")
	if err != nil || !ok {
		return arisan.Period{}, ok, err
	}
	return periodFromRow(row), true, nil
}

func (s store) ListPeriods(ctx context.Context, groupID string) ([]arisan.Period, error) {
	var rows []periodTableModel
	if err := s.list(ctx, &rows, periodSelect().Where(qb.Eq("group_id", groupID)).OrderBy("period_number"), "list periods"); err != nil {
		return nil, err
	}

	out := make([]arisan.Period, 0, len(rows))
	for _, row := range rows {
		out = append(out, periodFromRow(row))
	}
	return out, nil
}

func (s store) MaxPeriodNumber(ctx context.Context, groupID string) (int, error) {
	var maxNumber int
	b := qb.Select("COALESCE(MAX(period_number), 0)").From(tablePeriods).Where(qb.Eq("group_id", groupID))
	if _, err := s.get(ctx, &maxNumber, b, "get max period number"); err != nil {
		return 0, err
	}
	return maxNumber, nil
}

func (s store) GetPayment(ctx context.Context, groupID, paymentID string) (arisan.Payment, bool, error) {
	var row paymentTableModel
	ok, err := s.get(ctx, &row, paymentSelect().Where(qb.Eq("id", paymentID), qb.Eq("group_id", groupID)), "get payment")
	if err != nil || !ok {
		return arisan.Payment{}, ok, err
	}
	return paymentFromRow(row), true, nil
}

func (s store) GetPaymentByMember(ctx context.Context, periodID, userID string) (arisan.Payment, bool, error) {
	var row paymentTableModel
	ok, err := s.get(ctx, &row, paymentSelect().Where(qb.Eq("period_id", periodID), qb.Eq("user_id", userID)), "get member payment")
	if err != nil || !ok {
		return arisan.Payment{}, ok, err
	}
	return paymentFromRow(row), true, nil
}

func (s store) ListPaymentsByPeriod(ctx context.Context, periodID string) ([]arisan.Payment, error) {
	return s.listPayments(ctx, paymentSelect().Where(qb.Eq("period_id", periodID)).OrderBy("paid_at", "id"), "list period payments")
}

func (s store) ListPaymentsByGroup(ctx context.Context, groupID string) ([]arisan.Payment, error) {
	return s.listPayments(ctx, paymentSelect().Where(qb.Eq("group_id", groupID)).OrderBy("paid_at DESC", "id"), "list group payments")
}

func (s store) listPayments(ctx context.Context, b *qb.SelectBuilder, what string) ([]arisan.Payment, error) {
	var rows []paymentTableModel
	if err := s.list(ctx, &rows, b, what); err != nil {
		return nil, err
	}

	out := make([]arisan.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, paymentFromRow(row))
	}
	return out, nil
}

func (s store) ListDrawsByGroup(ctx context.Context, groupID string) ([]arisan.Draw, error) {
	return s.listDraws(ctx, drawSelect().Where(qb.Eq("group_id", groupID)).OrderBy("drawn_at DESC", "id"), "list group draws")
}

func (s store) ListDrawsByCycle(ctx context.Context, groupID string, cycle int) ([]arisan.Draw, error) {
	b := drawSelect().Where(qb.Eq("group_id", groupID), qb.Eq("cycle_number", cycle)).OrderBy("drawn_at", "id")
	return s.listDraws(ctx, b, "list cycle draws")
}

func (s store) listDraws(ctx context.Context, b *qb.SelectBuilder, what string) ([]arisan.Draw, error) {
	var rows []drawTableModel
	if err := s.list(ctx, &rows, b, what); err != nil {
		return nil, err
	}

	out := make([]arisan.Draw, 0, len(rows))
	for _, row := range rows {
		out = append(out, drawFromRow(row))
	}
	return out, nil
}

func (s store) GetDrawByPeriod(ctx context.Context, periodID string) (arisan.Draw, bool, error) {
	var row drawTableModel
	ok, err := s.get(ctx, &row, drawSelect().Where(qb.Eq("period_id", periodID)), "get draw by period")
	if err != nil || !ok {
		return arisan.Draw{}, ok, err
	}
	return drawFromRow(row), true, nil
}

type txStore struct {
	store
}

func (t *txStore) exec(ctx context.Context, query string, args []any, what string) (int64, error) {
	result, err := t.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(fmt.Errorf("%s: %w", what, err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected %s: %w", what, err)
	}
	return affected, nil
}

func (t *txStore) insert(ctx context.Context, table string, model any, what string) error {
	query, args, err := qb.InsertModel(table, model, "")
	if err != nil {
		return fmt.Errorf("build %s query: %w", what, err)
	}
	_, err = t.exec(ctx, query, args, what)
	return err
}

func (t *txStore) LockGroup(ctx context.Context, groupID string) (arisan.Group, bool, error) {
	var row groupTableModel
	b := groupSelect("").From(tableGroups).Where(qb.Eq("id", groupID)).Suffix("FOR UPDATE")
	ok, err := t.get(ctx, &row, b, "lock group")
	if err != nil || !ok {
		return arisan.Group{}, ok, err
	}
	return groupFromRow(row), true, nil
}

func (t *txStore) CreateGroup(ctx context.Context, group arisan.Group) error {
	return t.insert(ctx, tableGroups, groupToRow(group), "create group")
}

func (t *txStore) UpdateGroup(ctx context.Context, group arisan.Group) error {
	query, args, err := qb.Update(tableGroups).
		Set("name", group.Name).
		Set("description", group.Description).
		Set("transfer_account", group.TransferAccount).
		Set("contribution_amount", group.ContributionAmount).
		Set("period_duration_weeks", group.PeriodDurationWeeks).
		Set("updated_at", group.UpdatedAt).
		Where(qb.Eq("id", group.ID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update group query: %w", err)
	}
	affected, err := t.exec(ctx, query, args, "update group")
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("update group: not found")
	}
	return nil
}

func (t *txStore) DeleteGroup(ctx context.Context, groupID string) error {
	// Members, periods, payments and draws go with ON DELETE CASCADE.
	query, args, err := qb.DeleteFrom(tableGroups).Where(qb.Eq("id", groupID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete group query: %w", err)
	}
	_, err = t.exec(ctx, query, args, "delete group")
	return err
}

func (t *txStore) AddMember(ctx context.Context, member arisan.Member) error {
	return t.insert(ctx, tableMembers, memberTableModel{
		GroupID:  member.GroupID,
		UserID:   member.UserID,
		JoinedAt: member.JoinedAt,
	}, "add member")
}

func (t *txStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	query, args, err := qb.DeleteFrom(tableMembers).Where(qb.Eq("group_id", groupID), qb.Eq("user_id", userID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build remove member query: %w", err)
	}
	affected, err := t.exec(ctx, query, args, "remove member")
	if err != nil {
		return err
	}
	if affected == 0 {
		return arisan.ErrNotMember
	}
	return nil
}

func (t *txStore) SetCurrentCycle(ctx context.Context, groupID string, cycle int, at time.Time) error {
	query, args, err := qb.Update(tableGroups).
		Set("current_cycle", cycle).
		Set("updated_at", at).
		Where(qb.Eq("id", groupID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build set cycle query: %w", err)
	}
	affected, err := t.exec(ctx, query, args, "set current cycle")
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("set current cycle: group %s not found", groupID)
	}
	return nil
}

func (t *txStore) CreatePeriod(ctx context.Context, period arisan.Period) error {
	return t.insert(ctx, tablePeriods, periodToRow(period), "create period")
}

func (t *txStore) CompletePeriod(ctx context.Context, periodID string, at time.Time) error {
	query, args, err := qb.Update(tablePeriods).
		Set("status", string(arisan.PeriodStatusCompleted)).
		Set("updated_at", at).
		Where(qb.Eq("id", periodID), qb.EqLiteral("status", string(arisan.PeriodStatusActive))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build complete period query: %w", err)
	}
	affected, err := t.exec(ctx, query, args, "complete period")
	if err != nil {
		return err
	}
	if affected == 0 {
		return arisan.ErrNoActivePeriod
	}
	return nil
}

func (t *txStore) CreatePayment(ctx context.Context, payment arisan.Payment) error {
	return t.insert(ctx, tablePayments, paymentToRow(payment), "create payment")
}

func (t *txStore) DeletePayment(ctx context.Context, paymentID string) error {
	query, args, err := qb.DeleteFrom(tablePayments).Where(qb.Eq("id", paymentID)).ToSQL()
	if err != nil {
		return fmt.Errorf("build delete payment query: %w", err)
	}
	_, err = t.exec(ctx, query, args, "delete payment")
	return err
}

func (t *txStore) UpdatePaymentStatus(ctx context.Context, payment arisan.Payment) error {
	query, args, err := qb.Update(tablePayments).
		Set("status", string(payment.Status)).
		Set("reviewed_at", payment.ReviewedAt).
		Set("updated_at", payment.UpdatedAt).
		Where(qb.Eq("id", payment.ID), qb.EqLiteral("status", string(arisan.PaymentStatusPending))).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update payment status query: %w", err)
	}
	affected, err := t.exec(ctx, query, args, "update payment status")
	if err != nil {
		return err
	}
	if affected == 0 {
		return arisan.ErrInvalidTransition
	}
	return nil
}

func (t *txStore) CreateDraw(ctx context.Context, draw arisan.Draw) error {
	return t.insert(ctx, tableDraws, drawToRow(draw), "create draw")
}
