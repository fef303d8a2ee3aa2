package httpapi

import (
	"net/http"

	"github.com/riskibarqy/arisan/internal/domain/user"
	"github.com/riskibarqy/arisan/internal/platform/logging"
)

// NewRouter wires the API routes. metrics is served on /metrics when non-nil.
func NewRouter(
	handler *Handler,
	verifier user.Verifier,
	logger *logging.Logger,
	corsAllowedOrigins []string,
	swaggerEnabled bool,
	metrics http.Handler,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, swaggerEnabled, metrics)
	registerGroupRoutes(mux, handler, verifier)
	registerPeriodRoutes(mux, handler, verifier)
	registerPaymentRoutes(mux, handler, verifier)
	registerDrawRoutes(mux, handler, verifier)

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
