package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/domain/proof"
	idgen "github.com/riskibarqy/arisan/internal/platform/id"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

const MaxPaymentNotesLength = 500

var allowedProofTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

type SubmitPaymentInput struct {
	UserID      string
	GroupID     string
	ContentType string
	Body        io.Reader
	Size        int64
	Notes       string
}

type ReviewPaymentInput struct {
	UserID    string
	GroupID   string
	PaymentID string
}

type PaymentStatusInput struct {
	UserID  string
	GroupID string
	// PeriodID selects a past period; empty means the active period.
	PeriodID string
}

// PaymentService is the payment ledger: one payment per member and period,
// reviewed once by the group creator.
type PaymentService struct {
	repo   arisan.Repository
	proofs proof.Store
	idGen  idgen.Generator
	logger *logging.Logger
	events EventRecorder
	now    func() time.Time
}

func NewPaymentService(
	repo arisan.Repository,
	proofs proof.Store,
	idGen idgen.Generator,
	logger *logging.Logger,
	events EventRecorder,
) *PaymentService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PaymentService{
		repo:   repo,
		proofs: proofs,
		idGen:  idGen,
		logger: logger,
		events: recorderOrNop(events),
		now:    time.Now,
	}
}

// IsFullyPaid is evaluated against membership at call time.
func (s *PaymentService) IsFullyPaid(ctx context.Context, r arisan.Reader, period arisan.Period) (bool, error) {
	members, payments, err := s.periodState(ctx, r, period)
	if err != nil {
		return false, err
	}
	return arisan.IsFullyPaid(members, payments), nil
}

func (s *PaymentService) UnpaidMembers(ctx context.Context, r arisan.Reader, period arisan.Period) ([]arisan.Member, error) {
	members, payments, err := s.periodState(ctx, r, period)
	if err != nil {
		return nil, err
	}
	return arisan.UnpaidMembers(members, payments), nil
}

// Submit stores the proof and records a pending payment for the active
// period. A previously rejected payment for the same slot is replaced.
func (s *PaymentService) Submit(ctx context.Context, input SubmitPaymentInput) (arisan.Payment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.Submit")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID)
	input.Notes = strings.TrimSpace(input.Notes)
	input.ContentType = strings.ToLower(strings.TrimSpace(input.ContentType))
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.Payment{}, err
	}
	if input.Body == nil || input.Size <= 0 {
		return arisan.Payment{}, fmt.Errorf("%w: payment proof is required", ErrInvalidInput)
	}
	ext, ok := allowedProofTypes[input.ContentType]
	if !ok {
		return arisan.Payment{}, fmt.Errorf("%w: payment proof must be jpeg or png", ErrInvalidInput)
	}
	if utf8.RuneCountInString(input.Notes) > MaxPaymentNotesLength {
		return arisan.Payment{}, fmt.Errorf("%w: notes must be at most %d characters", ErrInvalidInput, MaxPaymentNotesLength)
	}

	// Reject obvious failures before uploading anything.
	group, err := memberGroup(ctx, s.repo, input.GroupID, input.UserID)
	if err != nil {
		return arisan.Payment{}, err
	}
	period, hasActive, err := s.repo.GetActivePeriod(ctx, group.ID)
	if err != nil {
		return arisan.Payment{}, fmt.Errorf("get active period: %w", err)
	}
	if !hasActive {
		return arisan.Payment{}, arisan.ErrNoActivePeriod
	}
	if existing, exists, err := s.repo.GetPaymentByMember(ctx, period.ID, input.UserID); err != nil {
		return arisan.Payment{}, fmt.Errorf("get existing payment: %w", err)
	} else if exists && existing.Status != arisan.PaymentStatusRejected {
		return arisan.Payment{}, arisan.ErrConflict
	}

	paymentID, err := s.idGen.NewID()
	if err != nil {
		return arisan.Payment{}, fmt.Errorf("generate payment id: %w", err)
	}
	objectName := path.Join("payment-proofs", group.ID, period.ID, paymentID+ext)
	ref, err := s.proofs.Put(ctx, objectName, input.ContentType, input.Body, input.Size)
	if err != nil {
		return arisan.Payment{}, fmt.Errorf("%w: store payment proof: %v", ErrDependencyUnavailable, err)
	}

	var (
		payment  arisan.Payment
		replaced bool
	)
	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		group, err := lockMemberGroup(ctx, tx, input.GroupID, input.UserID)
		if err != nil {
			return err
		}
		active, hasActive, err := tx.GetActivePeriod(ctx, group.ID)
		if err != nil {
			return fmt.Errorf("get active period: %w", err)
		}
		if !hasActive {
			return arisan.ErrNoActivePeriod
		}

		existing, exists, err := tx.GetPaymentByMember(ctx, active.ID, input.UserID)
		if err != nil {
			return fmt.Errorf("get existing payment: %w", err)
		}
		if exists {
			if existing.Status != arisan.PaymentStatusRejected {
				return arisan.ErrConflict
			}
			// The rejected proof was released by Reject; only the row goes.
			if err := tx.DeletePayment(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete rejected payment: %w", err)
			}
			replaced = true
		}

		now := s.now().UTC()
		payment = arisan.Payment{
			ID:         paymentID,
			GroupID:    group.ID,
			UserID:     input.UserID,
			PeriodID:   active.ID,
			AmountPaid: group.ContributionAmount,
			PaidAt:     now,
			Status:     arisan.PaymentStatusPending,
			ProofRef:   ref,
			Notes:      input.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		s.releaseProof(ctx, ref, "discard proof after failed submit")
		return arisan.Payment{}, err
	}

	s.events.PaymentSubmitted(payment.GroupID, replaced)
	s.logger.InfoContext(ctx, "payment submitted",
		"group_id", payment.GroupID,
		"period_id", payment.PeriodID,
		"payment_id", payment.ID,
		"user_id", payment.UserID,
	)
	return payment, nil
}

func (s *PaymentService) Approve(ctx context.Context, input ReviewPaymentInput) (arisan.Payment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.Approve")
	defer span.End()

	return s.review(ctx, input, arisan.PaymentStatusApproved)
}

// Reject marks the payment rejected and releases its proof so the member can
// submit again.
func (s *PaymentService) Reject(ctx context.Context, input ReviewPaymentInput) (arisan.Payment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.Reject")
	defer span.End()

	payment, err := s.review(ctx, input, arisan.PaymentStatusRejected)
	if err != nil {
		return arisan.Payment{}, err
	}
	s.releaseProof(ctx, payment.ProofRef, "release rejected proof")
	return payment, nil
}

func (s *PaymentService) review(ctx context.Context, input ReviewPaymentInput, to arisan.PaymentStatus) (arisan.Payment, error) {
	normalizeIDs(&input.UserID, &input.GroupID, &input.PaymentID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.Payment{}, err
	}
	if input.PaymentID == "" {
		return arisan.Payment{}, fmt.Errorf("%w: payment id is required", ErrInvalidInput)
	}

	var reviewed arisan.Payment
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx arisan.Tx) error {
		if _, err := lockCreatorGroup(ctx, tx, input.GroupID, input.UserID); err != nil {
			return err
		}

		payment, exists, err := tx.GetPayment(ctx, input.GroupID, input.PaymentID)
		if err != nil {
			return fmt.Errorf("get payment: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: payment=%s", ErrNotFound, input.PaymentID)
		}

		next, err := arisan.TransitionPayment(payment, to, s.now().UTC())
		if err != nil {
			return err
		}
		if err := tx.UpdatePaymentStatus(ctx, next); err != nil {
			return fmt.Errorf("update payment status: %w", err)
		}
		reviewed = next
		return nil
	})
	if err != nil {
		return arisan.Payment{}, err
	}

	s.events.PaymentReviewed(reviewed.GroupID, reviewed.Status)
	s.logger.InfoContext(ctx, "payment reviewed",
		"group_id", reviewed.GroupID,
		"payment_id", reviewed.ID,
		"user_id", reviewed.UserID,
		"status", string(reviewed.Status),
	)
	return reviewed, nil
}

// StatusForPeriod lists every member's payment state with summary counts.
func (s *PaymentService) StatusForPeriod(ctx context.Context, input PaymentStatusInput) (arisan.PeriodPaymentStatus, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.StatusForPeriod")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID, &input.PeriodID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return arisan.PeriodPaymentStatus{}, err
	}

	group, err := memberGroup(ctx, s.repo, input.GroupID, input.UserID)
	if err != nil {
		return arisan.PeriodPaymentStatus{}, err
	}

	var (
		period arisan.Period
		found  bool
	)
	if input.PeriodID == "" {
		period, found, err = s.repo.GetActivePeriod(ctx, group.ID)
	} else {
		period, found, err = s.repo.GetPeriod(ctx, group.ID, input.PeriodID)
		if err == nil && !found {
			return arisan.PeriodPaymentStatus{}, fmt.Errorf("%w: period=%s", ErrNotFound, input.PeriodID)
		}
	}
	if err != nil {
		return arisan.PeriodPaymentStatus{}, fmt.Errorf("get period: %w", err)
	}

	members, err := s.repo.ListMembers(ctx, group.ID)
	if err != nil {
		return arisan.PeriodPaymentStatus{}, fmt.Errorf("list members: %w", err)
	}
	if !found {
		return arisan.BuildPeriodPaymentStatus(group, nil, members, nil), nil
	}

	payments, err := s.repo.ListPaymentsByPeriod(ctx, period.ID)
	if err != nil {
		return arisan.PeriodPaymentStatus{}, fmt.Errorf("list payments: %w", err)
	}
	return arisan.BuildPeriodPaymentStatus(group, &period, members, payments), nil
}

// History returns every payment of the group, newest first.
func (s *PaymentService) History(ctx context.Context, userID, groupID string) ([]arisan.Payment, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.History")
	defer span.End()

	normalizeIDs(&userID, &groupID)
	if err := requireIDs(userID, groupID); err != nil {
		return nil, err
	}
	if _, err := memberGroup(ctx, s.repo, groupID, userID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListPaymentsByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return items, nil
}

// ProofURL resolves a viewable URL for a payment proof. Rejected payments no
// longer have a proof.
func (s *PaymentService) ProofURL(ctx context.Context, input ReviewPaymentInput) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PaymentService.ProofURL")
	defer span.End()

	normalizeIDs(&input.UserID, &input.GroupID, &input.PaymentID)
	if err := requireIDs(input.UserID, input.GroupID); err != nil {
		return "", err
	}
	if _, err := memberGroup(ctx, s.repo, input.GroupID, input.UserID); err != nil {
		return "", err
	}

	payment, exists, err := s.repo.GetPayment(ctx, input.GroupID, input.PaymentID)
	if err != nil {
		return "", fmt.Errorf("get payment: %w", err)
	}
	if !exists || payment.ProofRef == "" || payment.Status == arisan.PaymentStatusRejected {
		return "", fmt.Errorf("%w: proof for payment=%s", ErrNotFound, input.PaymentID)
	}

	url, err := s.proofs.URL(ctx, payment.ProofRef)
	if err != nil {
		if errors.Is(err, proof.ErrNotFound) {
			return "", fmt.Errorf("%w: proof for payment=%s", ErrNotFound, input.PaymentID)
		}
		return "", fmt.Errorf("%w: resolve proof url: %v", ErrDependencyUnavailable, err)
	}
	return url, nil
}

func (s *PaymentService) releaseProof(ctx context.Context, ref, reason string) {
	if ref == "" {
		return
	}
	if err := s.proofs.Delete(ctx, ref); err != nil && !errors.Is(err, proof.ErrNotFound) {
		s.logger.WarnContext(ctx, reason+" failed", "proof_ref", ref, "error", err)
	}
}

func (s *PaymentService) periodState(ctx context.Context, r arisan.Reader, period arisan.Period) ([]arisan.Member, []arisan.Payment, error) {
	members, err := r.ListMembers(ctx, period.GroupID)
	if err != nil {
		return nil, nil, fmt.Errorf("list members: %w", err)
	}
	payments, err := r.ListPaymentsByPeriod(ctx, period.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list payments: %w", err)
	}
	return members, payments, nil
}
