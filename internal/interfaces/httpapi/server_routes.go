package httpapi

import (
	"net/http"

	"github.com/riskibarqy/arisan/internal/domain/user"
)

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if swaggerEnabled {
		mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
		mux.HandleFunc("GET /docs", handler.SwaggerUI)
	}
}

func registerGroupRoutes(mux *http.ServeMux, handler *Handler, verifier user.Verifier) {
	mux.Handle("GET /v1/groups", RequireAuth(verifier, http.HandlerFunc(handler.ListMyGroups)))
	mux.Handle("POST /v1/groups", RequireAuth(verifier, http.HandlerFunc(handler.CreateGroup)))
	mux.Handle("GET /v1/groups/{groupID}", RequireAuth(verifier, http.HandlerFunc(handler.GetGroup)))
	mux.Handle("PUT /v1/groups/{groupID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateGroup)))
	mux.Handle("DELETE /v1/groups/{groupID}", RequireAuth(verifier, http.HandlerFunc(handler.DeleteGroup)))
	mux.Handle("POST /v1/groups/{groupID}/members", RequireAuth(verifier, http.HandlerFunc(handler.InviteMember)))
	mux.Handle("DELETE /v1/groups/{groupID}/members/{userID}", RequireAuth(verifier, http.HandlerFunc(handler.RemoveMember)))
	mux.Handle("POST /v1/groups/{groupID}/leave", RequireAuth(verifier, http.HandlerFunc(handler.LeaveGroup)))
}

func registerPeriodRoutes(mux *http.ServeMux, handler *Handler, verifier user.Verifier) {
	mux.Handle("GET /v1/groups/{groupID}/periods", RequireAuth(verifier, http.HandlerFunc(handler.ListPeriods)))
	mux.Handle("POST /v1/groups/{groupID}/periods", RequireAuth(verifier, http.HandlerFunc(handler.StartPeriod)))
	mux.Handle("GET /v1/groups/{groupID}/cycle", RequireAuth(verifier, http.HandlerFunc(handler.GetCycleProgress)))
}

func registerPaymentRoutes(mux *http.ServeMux, handler *Handler, verifier user.Verifier) {
	mux.Handle("GET /v1/groups/{groupID}/payments", RequireAuth(verifier, http.HandlerFunc(handler.ListPayments)))
	mux.Handle("POST /v1/groups/{groupID}/payments", RequireAuth(verifier, http.HandlerFunc(handler.SubmitPayment)))
	mux.Handle("GET /v1/groups/{groupID}/payments/status", RequireAuth(verifier, http.HandlerFunc(handler.GetPaymentStatus)))
	mux.Handle("GET /v1/groups/{groupID}/payments/{paymentID}/proof", RequireAuth(verifier, http.HandlerFunc(handler.GetPaymentProof)))
	mux.Handle("POST /v1/groups/{groupID}/payments/{paymentID}/approve", RequireAuth(verifier, http.HandlerFunc(handler.ApprovePayment)))
	mux.Handle("POST /v1/groups/{groupID}/payments/{paymentID}/reject", RequireAuth(verifier, http.HandlerFunc(handler.RejectPayment)))
}

func registerDrawRoutes(mux *http.ServeMux, handler *Handler, verifier user.Verifier) {
	mux.Handle("GET /v1/groups/{groupID}/draws", RequireAuth(verifier, http.HandlerFunc(handler.ListDraws)))
	mux.Handle("POST /v1/groups/{groupID}/draws", RequireAuth(verifier, http.HandlerFunc(handler.PerformDraw)))
}
