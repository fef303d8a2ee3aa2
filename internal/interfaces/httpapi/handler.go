package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/arisan/internal/domain/user"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/usecase"
)

const (
	defaultMaxProofBytes int64 = 5 << 20
	maxOptionalJSONBytes       = 64 << 10
)

type Handler struct {
	groupService   *usecase.GroupService
	periodService  *usecase.PeriodService
	paymentService *usecase.PaymentService
	drawService    *usecase.DrawService
	cycleService   *usecase.CycleService
	logger         *logging.Logger
	validator      *validator.Validate
	maxProofBytes  int64
}

func NewHandler(
	groupService *usecase.GroupService,
	periodService *usecase.PeriodService,
	paymentService *usecase.PaymentService,
	drawService *usecase.DrawService,
	cycleService *usecase.CycleService,
	maxProofBytes int64,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxProofBytes <= 0 {
		maxProofBytes = defaultMaxProofBytes
	}

	return &Handler{
		groupService:   groupService,
		periodService:  periodService,
		paymentService: paymentService,
		drawService:    drawService,
		cycleService:   cycleService,
		logger:         logger.Named("httpapi"),
		validator:      validator.New(),
		maxProofBytes:  maxProofBytes,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

// decodeJSON decodes and validates a JSON request body into dst.
func (h *Handler) decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	return h.decodeJSONFrom(ctx, r.Body, dst)
}

// decodeOptionalJSON leaves dst untouched when the body is empty. It reads the
// body instead of trusting ContentLength, which is -1 for chunked requests.
func (h *Handler) decodeOptionalJSON(ctx context.Context, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxOptionalJSONBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(raw) > maxOptionalJSONBytes {
		return fmt.Errorf("%w: request body exceeds %d bytes", usecase.ErrInvalidInput, maxOptionalJSONBytes)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return h.decodeJSONFrom(ctx, bytes.NewReader(raw), dst)
}

func (h *Handler) decodeJSONFrom(ctx context.Context, body io.Reader, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, dst)
}

func requirePrincipal(ctx context.Context) (user.Principal, error) {
	principal, ok := principalFromContext(ctx)
	if !ok {
		return user.Principal{}, fmt.Errorf("%w: principal is missing from request context", usecase.ErrUnauthorized)
	}
	return principal, nil
}
