package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/arisan/internal/domain/arisan"
	"github.com/riskibarqy/arisan/internal/usecase"
)

func TestWriteSuccess_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(context.Background(), rec, http.StatusOK, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	if got, _ := body["apiVersion"].(string); got != "2.0" {
		t.Fatalf("expected apiVersion=2.0, got %v", body["apiVersion"])
	}
	if _, ok := body["data"]; !ok {
		t.Fatalf("expected data key in success response")
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("did not expect error key in success response")
	}
}

func TestWriteError_GoogleEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, fmt.Errorf("%w: bad payload", usecase.ErrInvalidInput))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}

	errorObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object in response")
	}
	if got, _ := errorObj["status"].(string); got != "INVALID_ARGUMENT" {
		t.Fatalf("expected error status INVALID_ARGUMENT, got %v", errorObj["status"])
	}
	if _, ok := errorObj["unpaid_members"]; ok {
		t.Fatalf("did not expect unpaid_members for invalid input")
	}
}

func TestWriteError_HidesInternalMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(context.Background(), rec, errors.New("pq: connection refused on 10.0.0.3"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var body googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Error == nil || body.Error.Message != "internal server error" {
		t.Fatalf("expected generic message, got %+v", body.Error)
	}
}

func TestWriteError_ListsUnpaidMembers(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("perform draw: %w", &arisan.PaymentsIncompleteError{
		Unpaid: []arisan.Member{{UserID: "u2"}, {UserID: "u3"}},
	})
	writeError(context.Background(), rec, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	var body googleResponseEnvelope
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response body: %v", err)
	}
	if body.Error == nil {
		t.Fatalf("expected error body")
	}
	if got := body.Error.UnpaidMembers; len(got) != 2 || got[0] != "u2" || got[1] != "u3" {
		t.Fatalf("unexpected unpaid_members: %v", got)
	}
	if body.Error.Errors[0].Reason != "paymentsIncomplete" {
		t.Fatalf("unexpected reason: %s", body.Error.Errors[0].Reason)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		reason string
	}{
		{err: usecase.ErrInvalidInput, status: http.StatusBadRequest, reason: "invalidInput"},
		{err: usecase.ErrNotFound, status: http.StatusNotFound, reason: "notFound"},
		{err: usecase.ErrUnauthorized, status: http.StatusUnauthorized, reason: "unauthorized"},
		{err: usecase.ErrDependencyUnavailable, status: http.StatusServiceUnavailable, reason: "dependencyUnavailable"},
		{err: arisan.ErrNotCreator, status: http.StatusForbidden, reason: "notCreator"},
		{err: arisan.ErrNotMember, status: http.StatusForbidden, reason: "notMember"},
		{err: arisan.ErrAlreadyActive, status: http.StatusConflict, reason: "periodAlreadyActive"},
		{err: arisan.ErrAlreadyDrawn, status: http.StatusConflict, reason: "alreadyDrawn"},
		{err: arisan.ErrAlreadyMember, status: http.StatusConflict, reason: "alreadyMember"},
		{err: arisan.ErrConflict, status: http.StatusConflict, reason: "paymentConflict"},
		{err: arisan.ErrPaymentsIncomplete, status: http.StatusUnprocessableEntity, reason: "paymentsIncomplete"},
		{err: arisan.ErrInsufficientMembers, status: http.StatusUnprocessableEntity, reason: "insufficientMembers"},
		{err: arisan.ErrNoActivePeriod, status: http.StatusUnprocessableEntity, reason: "noActivePeriod"},
		{err: arisan.ErrInvalidTransition, status: http.StatusUnprocessableEntity, reason: "invalidTransition"},
		{err: arisan.ErrCycleAlreadyComplete, status: http.StatusUnprocessableEntity, reason: "cycleAlreadyComplete"},
		{err: arisan.ErrCycleInProgress, status: http.StatusUnprocessableEntity, reason: "cycleInProgress"},
		{err: arisan.ErrCreatorImmutable, status: http.StatusUnprocessableEntity, reason: "creatorImmutable"},
		{err: errors.New("boom"), status: http.StatusInternalServerError, reason: "internalError"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			got := mapError(context.Background(), fmt.Errorf("wrapped: %w", tt.err))
			if got.HTTPStatus != tt.status || got.Reason != tt.reason {
				t.Fatalf("mapError(%v)=%d/%s want=%d/%s", tt.err, got.HTTPStatus, got.Reason, tt.status, tt.reason)
			}
		})
	}
}
