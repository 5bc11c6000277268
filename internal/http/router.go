package http

import (
	"net/http"

	"parcel-backend/internal/handlers"
	"parcel-backend/internal/middleware"
	"parcel-backend/internal/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(
	bookingHandler *handlers.BookingHandler,
	loadingHandler *handlers.ManifestHandler,
	unloadingHandler *handlers.ManifestHandler,
	voucherHandler *handlers.VoucherHandler,
	reportHandler *handlers.ReportHandler,
	eventsHandler *handlers.EventsHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogging, middleware.MetricsMiddleware)

	// Health endpoints (no auth)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Protected API routes - Bookings
	bookingAPI := r.PathPrefix("/booking").Subrouter()
	bookingAPI.Use(authMiddleware.Authenticate)
	bookingAPI.HandleFunc("", bookingHandler.Create).Methods("POST")
	bookingAPI.HandleFunc("", bookingHandler.List).Methods("GET")
	bookingAPI.HandleFunc("/grnNoUnique/{grnNoUnique}", bookingHandler.GetByGRN).Methods("GET")
	bookingAPI.HandleFunc("/{id}", bookingHandler.Get).Methods("GET")
	bookingAPI.HandleFunc("/{id}/lr.pdf", bookingHandler.LRPDF).Methods("GET")
	bookingAPI.HandleFunc("/{id}/cancel", bookingHandler.Cancel).Methods("POST")
	bookingAPI.HandleFunc("/{id}/deliver", bookingHandler.Deliver).Methods("POST")
	bookingAPI.Handle("/{id}/missing", adminOnly(http.HandlerFunc(bookingHandler.MarkMissing))).Methods("POST")
	bookingAPI.Handle("/{id}", adminOnly(http.HandlerFunc(bookingHandler.Delete))).Methods("DELETE")

	// Protected API routes - Loading and unloading manifests
	for prefix, h := range map[string]*handlers.ManifestHandler{
		"/parcel-loading":   loadingHandler,
		"/parcel-unloading": unloadingHandler,
	} {
		manifestAPI := r.PathPrefix(prefix).Subrouter()
		manifestAPI.Use(authMiddleware.Authenticate)
		manifestAPI.HandleFunc("", h.Create).Methods("POST")
		manifestAPI.HandleFunc("", h.List).Methods("GET")
		manifestAPI.HandleFunc("/grn/{grnNo}", h.ByGRN).Methods("GET")
		manifestAPI.HandleFunc("/voucher/{voucherNo}", h.Get).Methods("GET")
		manifestAPI.HandleFunc("/voucher/{voucherNo}/pdf", h.PDF).Methods("GET")
		manifestAPI.Handle("/voucher/{voucherNo}", adminOnly(http.HandlerFunc(h.Update))).Methods("PUT")
		manifestAPI.Handle("/voucher/{voucherNo}", adminOnly(http.HandlerFunc(h.Delete))).Methods("DELETE")
	}

	// Protected API routes - Vouchers and reports
	api := r.NewRoute().Subrouter()
	api.Use(authMiddleware.Authenticate)
	api.HandleFunc("/credit-voucher-generate", voucherHandler.GenerateCredit).Methods("POST")
	api.HandleFunc("/credit-vouchers", voucherHandler.CreateCredit).Methods("POST")
	api.HandleFunc("/collection-vouchers", voucherHandler.CreateCollection).Methods("POST")
	api.HandleFunc("/vouchers/{kind}/{voucherNo}", voucherHandler.Get).Methods("GET")
	api.HandleFunc("/status-wise-summary", reportHandler.StatusWise).Methods("GET")
	api.HandleFunc("/reports/booking-summary", reportHandler.BookingSummary).Methods("GET")
	api.HandleFunc("/reports/branch-account", reportHandler.BranchAccount).Methods("GET")
	api.HandleFunc("/reports/loading-summary", reportHandler.LoadingSummary).Methods("GET")
	api.HandleFunc("/ws/transitions", eventsHandler.Transitions).Methods("GET")

	return r
}
