package httpapi

import (
	"net/http"

	"github.com/riskibarqy/arisan/internal/usecase"
)

func (h *Handler) StartPeriod(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartPeriod")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	period, err := h.periodService.StartPeriod(ctx, usecase.StartPeriodInput{
		UserID:  principal.UserID,
		GroupID: groupID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "start period failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, periodToDTO(period))
}

func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPeriods")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	periods, err := h.periodService.ListPeriods(ctx, principal.UserID, groupID)
	if err != nil {
		h.logger.WarnContext(ctx, "list periods failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, mapSlice(periods, periodToDTO))
}

func (h *Handler) GetCycleProgress(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetCycleProgress")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	progress, err := h.cycleService.Progress(ctx, principal.UserID, groupID)
	if err != nil {
		h.logger.WarnContext(ctx, "get cycle progress failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, cycleProgressToDTO(progress))
}

func (h *Handler) PerformDraw(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PerformDraw")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	// The body is optional; an empty one draws for the active period.
	var req performDrawRequest
	if err := h.decodeOptionalJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	result, err := h.drawService.PerformDraw(ctx, usecase.PerformDrawInput{
		UserID:   principal.UserID,
		GroupID:  groupID,
		PeriodID: req.PeriodID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "perform draw failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, drawResultDTO{
		Draw:          drawToDTO(result.Draw),
		Period:        periodToDTO(result.Period),
		CycleComplete: result.CycleComplete,
	})
}

func (h *Handler) ListDraws(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListDraws")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	draws, err := h.drawService.History(ctx, principal.UserID, groupID)
	if err != nil {
		h.logger.WarnContext(ctx, "list draws failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, mapSlice(draws, drawToDTO))
}
