package httpapi

import (
	"net/http"

	"github.com/riskibarqy/arisan/internal/usecase"
)

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateGroup")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createGroupRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	group, err := h.groupService.Create(ctx, usecase.CreateGroupInput{
		UserID:              principal.UserID,
		Name:                req.Name,
		Description:         req.Description,
		TransferAccount:     req.TransferAccount,
		ContributionAmount:  req.ContributionAmount,
		PeriodDurationWeeks: req.PeriodDurationWeeks,
		MemberUserIDs:       req.MemberUserIDs,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create group failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, groupToDTO(group))
}

func (h *Handler) ListMyGroups(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyGroups")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groups, err := h.groupService.ListMine(ctx, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "list my groups failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, mapSlice(groups, groupToDTO))
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetGroup")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	detail, err := h.groupService.Get(ctx, principal.UserID, groupID)
	if err != nil {
		h.logger.WarnContext(ctx, "get group failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, groupDetailToDTO(detail))
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateGroup")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req updateGroupRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	group, err := h.groupService.Update(ctx, usecase.UpdateGroupInput{
		UserID:              principal.UserID,
		GroupID:             groupID,
		Name:                req.Name,
		Description:         req.Description,
		TransferAccount:     req.TransferAccount,
		ContributionAmount:  req.ContributionAmount,
		PeriodDurationWeeks: req.PeriodDurationWeeks,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "update group failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, groupToDTO(group))
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteGroup")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	if err := h.groupService.Delete(ctx, principal.UserID, groupID); err != nil {
		h.logger.WarnContext(ctx, "delete group failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"deleted_group_id": groupID})
}

func (h *Handler) InviteMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InviteMember")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req inviteMemberRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	member, err := h.groupService.InviteMember(ctx, usecase.MemberInput{
		UserID:       principal.UserID,
		GroupID:      groupID,
		TargetUserID: req.UserID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "invite member failed", "user_id", principal.UserID, "group_id", groupID, "target_user_id", req.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, memberToDTO(member))
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveMember")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	targetUserID := r.PathValue("userID")
	if err := h.groupService.RemoveMember(ctx, usecase.MemberInput{
		UserID:       principal.UserID,
		GroupID:      groupID,
		TargetUserID: targetUserID,
	}); err != nil {
		h.logger.WarnContext(ctx, "remove member failed", "user_id", principal.UserID, "group_id", groupID, "target_user_id", targetUserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"removed_user_id": targetUserID})
}

func (h *Handler) LeaveGroup(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LeaveGroup")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	groupID := r.PathValue("groupID")
	if err := h.groupService.Leave(ctx, principal.UserID, groupID); err != nil {
		h.logger.WarnContext(ctx, "leave group failed", "user_id", principal.UserID, "group_id", groupID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"left_group_id": groupID})
}
