package httpapi

import (
	"time"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/usecase"
)

type createGroupRequest struct {
	Name                string   `json:"name" validate:"required,max=100"`
	Description         string   `json:"description" validate:"max=1000"`
	TransferAccount     string   `json:"transfer_account" validate:"max=200"`
	ContributionAmount  int64    `json:"contribution_amount" validate:"required,min=1000"`
	PeriodDurationWeeks int      `json:"period_duration_weeks" validate:"required,min=1"`
	MemberUserIDs       []string `json:"member_user_ids" validate:"omitempty,dive,required"`
}

type updateGroupRequest struct {
	Name                *string `json:"name" validate:"omitempty,max=100"`
	Description         *string `json:"description" validate:"omitempty,max=1000"`
	TransferAccount     *string `json:"transfer_account" validate:"omitempty,max=200"`
	ContributionAmount  *int64  `json:"contribution_amount" validate:"omitempty,min=1000"`
	PeriodDurationWeeks *int    `json:"period_duration_weeks" validate:"omitempty,min=1"`
}

type inviteMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type performDrawRequest struct {
	PeriodID string `json:"period_id"`
}

type groupDTO struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	TransferAccount     string `json:"transfer_account,omitempty"`
	CreatorUserID       string `json:"creator_user_id"`
	ContributionAmount  int64  `json:"contribution_amount"`
	PeriodDurationWeeks int    `json:"period_duration_weeks"`
	CurrentCycle        int    `json:"current_cycle"`
	CreatedAtUTC        string `json:"created_at_utc"`
	UpdatedAtUTC        string `json:"updated_at_utc"`
}

type memberDTO struct {
	UserID      string `json:"user_id"`
	JoinedAtUTC string `json:"joined_at_utc"`
}

type periodDTO struct {
	ID           string `json:"id"`
	GroupID      string `json:"group_id"`
	PeriodNumber int    `json:"period_number"`
	StartDateUTC string `json:"start_date_utc"`
	EndDateUTC   string `json:"end_date_utc"`
	Status       string `json:"status"`
}

type paymentDTO struct {
	ID            string `json:"id"`
	GroupID       string `json:"group_id"`
	UserID        string `json:"user_id"`
	PeriodID      string `json:"period_id"`
	AmountPaid    int64  `json:"amount_paid"`
	PaidAtUTC     string `json:"paid_at_utc"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	ReviewedAtUTC string `json:"reviewed_at_utc,omitempty"`
}

type drawDTO struct {
	ID             string `json:"id"`
	GroupID        string `json:"group_id"`
	PeriodID       string `json:"period_id"`
	WinnerUserID   string `json:"winner_user_id"`
	DrawnAtUTC     string `json:"drawn_at_utc"`
	TotalPotAmount int64  `json:"total_pot_amount"`
	CycleNumber    int    `json:"cycle_number"`
}

type drawResultDTO struct {
	Draw          drawDTO   `json:"draw"`
	Period        periodDTO `json:"period"`
	CycleComplete bool      `json:"cycle_complete"`
}

type cycleProgressDTO struct {
	Cycle          int      `json:"cycle"`
	Winners        []string `json:"winners"`
	EligibleCount  int      `json:"eligible_count"`
	TotalMembers   int      `json:"total_members"`
	Complete       bool     `json:"complete"`
	ActivePeriodID string   `json:"active_period_id,omitempty"`
}

type groupDetailDTO struct {
	Group        groupDTO         `json:"group"`
	Members      []memberDTO      `json:"members"`
	Periods      []periodDTO      `json:"periods"`
	Draws        []drawDTO        `json:"draws"`
	ActivePeriod *periodDTO       `json:"active_period,omitempty"`
	Progress     cycleProgressDTO `json:"cycle_progress"`
	IsCreator    bool             `json:"is_creator"`
}

type memberPaymentStatusDTO struct {
	UserID  string      `json:"user_id"`
	Status  string      `json:"status"`
	Payment *paymentDTO `json:"payment,omitempty"`
}

type paymentSummaryDTO struct {
	TotalMembers int   `json:"total_members"`
	PaidCount    int   `json:"paid_count"`
	UnpaidCount  int   `json:"unpaid_count"`
	TotalPot     int64 `json:"total_pot"`
	Collected    int64 `json:"collected"`
}

type periodPaymentStatusDTO struct {
	Period  *periodDTO               `json:"period"`
	Members []memberPaymentStatusDTO `json:"members"`
	Summary paymentSummaryDTO        `json:"summary"`
}

func formatTime(v time.Time) string {
	if v.IsZero() {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}

func formatOptionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return formatTime(*v)
}

func groupToDTO(v arisan.Group) groupDTO {
	return groupDTO{
		ID:                  v.ID,
		Name:                v.Name,
		Description:         v.Description,
		TransferAccount:     v.TransferAccount,
		CreatorUserID:       v.CreatorUserID,
		ContributionAmount:  v.ContributionAmount,
		PeriodDurationWeeks: v.PeriodDurationWeeks,
		CurrentCycle:        v.CurrentCycle,
		CreatedAtUTC:        formatTime(v.CreatedAt),
		UpdatedAtUTC:        formatTime(v.UpdatedAt),
	}
}

func memberToDTO(v arisan.Member) memberDTO {
	return memberDTO{UserID: v.UserID, JoinedAtUTC: formatTime(v.JoinedAt)}
}

func periodToDTO(v arisan.Period) periodDTO {
	return periodDTO{
		ID:           v.ID,
		GroupID:      v.GroupID,
		PeriodNumber: v.Number,
		StartDateUTC: formatTime(v.StartDate),
		EndDateUTC:   formatTime(v.EndDate),
		Status:       string(v.Status),
	}
}

func paymentToDTO(v arisan.Payment) paymentDTO {
	return paymentDTO{
		ID:            v.ID,
		GroupID:       v.GroupID,
		UserID:        v.UserID,
		PeriodID:      v.PeriodID,
		AmountPaid:    v.AmountPaid,
		PaidAtUTC:     formatTime(v.PaidAt),
		Status:        string(v.Status),
		Notes:         v.Notes,
		ReviewedAtUTC: formatOptionalTime(v.ReviewedAt),
	}
}

func drawToDTO(v arisan.Draw) drawDTO {
	return drawDTO{
		ID:             v.ID,
		GroupID:        v.GroupID,
		PeriodID:       v.PeriodID,
		WinnerUserID:   v.WinnerUserID,
		DrawnAtUTC:     formatTime(v.DrawnAt),
		TotalPotAmount: v.TotalPotAmount,
		CycleNumber:    v.CycleNumber,
	}
}

func cycleProgressToDTO(v arisan.CycleProgress) cycleProgressDTO {
	winners := v.Winners
	if winners == nil {
		winners = []string{}
	}
	return cycleProgressDTO{
		Cycle:          v.Cycle,
		Winners:        winners,
		EligibleCount:  v.EligibleCount,
		TotalMembers:   v.TotalMembers,
		Complete:       v.Complete,
		ActivePeriodID: v.ActivePeriodID,
	}
}

func groupDetailToDTO(v usecase.GroupDetail) groupDetailDTO {
	out := groupDetailDTO{
		Group:     groupToDTO(v.Group),
		Members:   mapSlice(v.Members, memberToDTO),
		Periods:   mapSlice(v.Periods, periodToDTO),
		Draws:     mapSlice(v.Draws, drawToDTO),
		Progress:  cycleProgressToDTO(v.Progress),
		IsCreator: v.IsCreator,
	}
	if v.ActivePeriod != nil {
		active := periodToDTO(*v.ActivePeriod)
		out.ActivePeriod = &active
	}
	return out
}

func periodPaymentStatusToDTO(v arisan.PeriodPaymentStatus) periodPaymentStatusDTO {
	out := periodPaymentStatusDTO{
		Members: make([]memberPaymentStatusDTO, 0, len(v.Members)),
		Summary: paymentSummaryDTO{
			TotalMembers: v.Summary.TotalMembers,
			PaidCount:    v.Summary.PaidCount,
			UnpaidCount:  v.Summary.UnpaidCount,
			TotalPot:     v.Summary.TotalPot,
			Collected:    v.Summary.Collected,
		},
	}
	if v.Period != nil {
		period := periodToDTO(*v.Period)
		out.Period = &period
	}
	for _, m := range v.Members {
		item := memberPaymentStatusDTO{UserID: m.UserID, Status: string(m.State)}
		if m.Payment != nil {
			payment := paymentToDTO(*m.Payment)
			item.Payment = &payment
		}
		out.Members = append(out.Members, item)
	}
	return out
}

func mapSlice[T, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
