package httpapi

import (
	"context"
	"net/http"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/usecase"
)

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SubmitPayment")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	upload, err := h.readProofUpload(w, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	defer upload.Release()

	groupID := r.PathValue("groupID")
	payment, err := h.paymentService.Submit(ctx, usecase.SubmitPaymentInput{
		UserID:      principal.UserID,
		GroupID:     groupID,
		ContentType: upload.ContentType,
		Body:        upload.Body,
		Size:        upload.Size,
		Notes:       upload.Notes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "submit payment failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, paymentToDTO(payment))
}

func (h *Handler) ApprovePayment(w http.ResponseWriter, r *http.Request) {
	h.reviewPayment(w, r, "httpapi.Handler.ApprovePayment", h.paymentService.Approve)
}

func (h *Handler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	h.reviewPayment(w, r, "httpapi.Handler.RejectPayment", h.paymentService.Reject)
}

func (h *Handler) reviewPayment(
	w http.ResponseWriter,
	r *http.Request,
	spanName string,
	review func(ctx context.Context, input usecase.ReviewPaymentInput) (arisan.Payment, error),
) {
	ctx, span := startSpan(r.Context(), spanName)
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.ReviewPaymentInput{
		UserID:    principal.UserID,
		GroupID:   r.PathValue("groupID"),
		PaymentID: r.PathValue("paymentID"),
	}
	payment, err := review(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "review payment failed", "user_id", input.UserID, "group_id", input.GroupID, "payment_id", input.PaymentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, paymentToDTO(payment))
}

func (h *Handler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPaymentStatus")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	status, err := h.paymentService.StatusForPeriod(ctx, usecase.PaymentStatusInput{
		UserID:   principal.UserID,
		GroupID:  groupID,
		PeriodID: r.URL.Query().Get("period_id"),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "get payment status failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, periodPaymentStatusToDTO(status))
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPayments")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	payments, err := h.paymentService.History(ctx, principal.UserID, groupID)
	if err != nil {
		h.logger.WarnContext(ctx, "list payments failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, mapSlice(payments, paymentToDTO))
}

func (h *Handler) GetPaymentProof(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPaymentProof")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	input := usecase.ReviewPaymentInput{
		UserID:    principal.UserID,
		GroupID:   r.PathValue("groupID"),
		PaymentID: r.PathValue("paymentID"),
	}
	url, err := h.paymentService.ProofURL(ctx, input)
	if err != nil {
		h.logger.WarnContext(ctx, "get payment proof failed", "user_id", input.UserID, "group_id", input.GroupID, "payment_id", input.PaymentID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"url": url})
}
