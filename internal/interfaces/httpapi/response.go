package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "arisan"
)

type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code          int               `json:"code"`
	Message       string            `json:"message"`
	Status        string            `json:"status"`
	Errors        []googleErrorItem `json:"errors,omitempty"`
	UnpaidMembers []string          `json:"unpaid_members,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	ctx, span := startSpan(ctx, "httpapi.writeSuccess")
	defer span.End()

	writeJSON(ctx, w, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Data:       data,
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	ctx, span := startSpan(ctx, "httpapi.writeError")
	defer span.End()

	mapped := mapError(ctx, err)
	message := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		message = "internal server error"
	}

	body := &googleErrorBody{
		Code:    mapped.HTTPStatus,
		Message: message,
		Status:  mapped.Status,
		Errors: []googleErrorItem{
			{
				Domain:  errorDomain,
				Reason:  mapped.Reason,
				Message: message,
			},
		},
	}
	if unpaid, ok := arisan.UnpaidMembersOf(err); ok {
		body.UnpaidMembers = make([]string, 0, len(unpaid))
		for _, m := range unpaid {
			body.UnpaidMembers = append(body.UnpaidMembers, m.UserID)
		}
	}

	writeJSON(ctx, w, mapped.HTTPStatus, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		Error:      body,
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	ctx, span := startSpan(ctx, "httpapi.writeInternalError")
	defer span.End()

	writeError(ctx, w, errors.New("internal server error"))
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "httpapi.mapError")
	defer span.End()

	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"}
	case errors.Is(err, usecase.ErrNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound", Status: "NOT_FOUND"}
	case errors.Is(err, usecase.ErrUnauthorized):
		return mappedError{HTTPStatus: http.StatusUnauthorized, Reason: "unauthorized", Status: "UNAUTHENTICATED"}
	case errors.Is(err, usecase.ErrDependencyUnavailable):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable", Status: "UNAVAILABLE"}
	case errors.Is(err, arisan.ErrNotCreator):
		return mappedError{HTTPStatus: http.StatusForbidden, Reason: "notCreator", Status: "PERMISSION_DENIED"}
	case errors.Is(err, arisan.ErrNotMember):
		return mappedError{HTTPStatus: http.StatusForbidden, Reason: "notMember", Status: "PERMISSION_DENIED"}
	case errors.Is(err, arisan.ErrAlreadyActive):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "periodAlreadyActive", Status: "ALREADY_EXISTS"}
	case errors.Is(err, arisan.ErrAlreadyDrawn):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "alreadyDrawn", Status: "ALREADY_EXISTS"}
	case errors.Is(err, arisan.ErrAlreadyMember):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "alreadyMember", Status: "ALREADY_EXISTS"}
	case errors.Is(err, arisan.ErrConflict):
		return mappedError{HTTPStatus: http.StatusConflict, Reason: "paymentConflict", Status: "ABORTED"}
	case errors.Is(err, arisan.ErrPaymentsIncomplete):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "paymentsIncomplete", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrInsufficientMembers):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "insufficientMembers", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrNoActivePeriod):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "noActivePeriod", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrInvalidTransition):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "invalidTransition", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrCycleAlreadyComplete):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "cycleAlreadyComplete", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrCycleInProgress):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "cycleInProgress", Status: "FAILED_PRECONDITION"}
	case errors.Is(err, arisan.ErrCreatorImmutable):
		return mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "creatorImmutable", Status: "FAILED_PRECONDITION"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}
	}
}
