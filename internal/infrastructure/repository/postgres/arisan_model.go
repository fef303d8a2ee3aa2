package postgres

import (
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	qb "github.com/riskibarqy/arisan/internal/platform/querybuilder"
)

const (
	tableGroups   = "arisan_groups"
	tableMembers  = "arisan_group_members"
	tablePeriods  = "arisan_periods"
	tablePayments = "arisan_payments"
	tableDraws    = "arisan_draws"
)

type groupTableModel struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	Description         string    `db:"description"`
	TransferAccount     string    `db:"transfer_account"`
	CreatorUserID       string    `db:"creator_user_id"`
	ContributionAmount  int64     `db:"contribution_amount"`
	PeriodDurationWeeks int       `db:"period_duration_weeks"`
	CurrentCycle        int       `db:"current_cycle"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

type memberTableModel struct {
	GroupID  string    `db:"group_id"`
	UserID   string    `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

type periodTableModel struct {
	ID        string    `db:"id"`
	GroupID   string    `db:"group_id"`
	Number    int       `db:"period_number"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type paymentTableModel struct {
	ID         string     `db:"id"`
	GroupID    string     `db:"group_id"`
	UserID     string     `db:"user_id"`
	PeriodID   string     `db:"period_id"`
	AmountPaid int64      `db:"amount_paid"`
	PaidAt     time.Time  `db:"paid_at"`
	Status     string     `db:"status"`
	ProofRef   string     `db:"proof_ref"`
	Notes      string     `db:"notes"`
	ReviewedAt *time.Time `db:"reviewed_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

type drawTableModel struct {
	ID             string    `db:"id"`
	GroupID        string    `db:"group_id"`
	PeriodID       string    `db:"period_id"`
	WinnerUserID   string    `db:"winner_user_id"`
	DrawnAt        time.Time `db:"drawn_at"`
	TotalPotAmount int64     `db:"total_pot_amount"`
	CycleNumber    int       `db:"cycle_number"`
}

func groupSelect(alias string) *qb.SelectBuilder {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	return qb.Select(
		prefix+"id",
		prefix+"name",
		prefix+"description",
		prefix+"transfer_account",
		prefix+"creator_user_id",
		prefix+"contribution_amount",
		prefix+"period_duration_weeks",
		prefix+"current_cycle",
		prefix+"created_at",
		prefix+"updated_at",
	)
}

func memberSelect() *qb.SelectBuilder {
	return qb.Select("group_id", "user_id", "joined_at").From(tableMembers)
}

func periodSelect() *qb.SelectBuilder {
	return qb.Select("id", "group_id", "period_number", "start_date", "end_date", "status", "created_at", "updated_at").
		From(tablePeriods)
}

func paymentSelect() *qb.SelectBuilder {
	return qb.Select(
		"id", "group_id", "user_id", "period_id", "amount_paid", "paid_at",
		"status", "proof_ref", "notes", "reviewed_at", "created_at", "updated_at",
	).From(tablePayments)
}

func drawSelect() *qb.SelectBuilder {
	return qb.Select("id", "group_id", "period_id", "winner_user_id", "drawn_at", "total_pot_amount", "cycle_number").
		From(tableDraws)
}

func groupFromRow(row groupTableModel) arisan.Group {
	return arisan.Group{
		ID:                  row.ID,
		Name:                row.Name,
		Description:         row.Description,
		TransferAccount:     row.TransferAccount,
		CreatorUserID:       row.CreatorUserID,
		ContributionAmount:  row.ContributionAmount,
		PeriodDurationWeeks: row.PeriodDurationWeeks,
		CurrentCycle:        row.CurrentCycle,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func groupToRow(g arisan.Group) groupTableModel {
	return groupTableModel{
		ID:                  g.ID,
		Name:                g.Name,
		Description:         g.Description,
		TransferAccount:     g.TransferAccount,
		CreatorUserID:       g.CreatorUserID,
		ContributionAmount:  g.ContributionAmount,
		PeriodDurationWeeks: g.PeriodDurationWeeks,
		CurrentCycle:        g.CurrentCycle,
		CreatedAt:           g.CreatedAt,
		UpdatedAt:           g.UpdatedAt,
	}
}

func memberFromRow(row memberTableModel) arisan.Member {
	return arisan.Member{GroupID: row.GroupID, UserID: row.UserID, JoinedAt: row.JoinedAt}
}

func periodFromRow(row periodTableModel) arisan.Period {
	return arisan.Period{
		ID:        row.ID,
		GroupID:   row.GroupID,
		Number:    row.Number,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		Status:    arisan.PeriodStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func periodToRow(p arisan.Period) periodTableModel {
	return periodTableModel{
		ID:        p.ID,
		GroupID:   p.GroupID,
		Number:    p.Number,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func paymentFromRow(row paymentTableModel) arisan.Payment {
	return arisan.Payment{
		ID:         row.ID,
		GroupID:    row.GroupID,
		UserID:     row.UserID,
		PeriodID:   row.PeriodID,
		AmountPaid: row.AmountPaid,
		PaidAt:     row.PaidAt,
		Status:     arisan.PaymentStatus(row.Status),
		ProofRef:   row.ProofRef,
		Notes:      row.Notes,
		ReviewedAt: row.ReviewedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}

func paymentToRow(p arisan.Payment) paymentTableModel {
	return paymentTableModel{
		ID:         p.ID,
		GroupID:    p.GroupID,
		UserID:     p.UserID,
		PeriodID:   p.PeriodID,
		AmountPaid: p.AmountPaid,
		PaidAt:     p.PaidAt,
		Status:     string(p.Status),
		ProofRef:   p.ProofRef,
		Notes:      p.Notes,
		ReviewedAt: p.ReviewedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func drawFromRow(row drawTableModel) arisan.Draw {
	return arisan.Draw{
		ID:             row.ID,
		GroupID:        row.GroupID,
		PeriodID:       row.PeriodID,
		WinnerUserID:   row.WinnerUserID,
		DrawnAt:        row.DrawnAt,
		TotalPotAmount: row.TotalPotAmount,
		CycleNumber:    row.CycleNumber,
	}
}

func drawToRow(d arisan.Draw) drawTableModel {
	return drawTableModel{
		ID:             d.ID,
		GroupID:        d.GroupID,
		PeriodID:       d.PeriodID,
		WinnerUserID:   d.WinnerUserID,
		DrawnAt:        d.DrawnAt,
		TotalPotAmount: d.TotalPotAmount,
		CycleNumber:    d.CycleNumber,
	}
}
