package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"parcel-backend/internal/services"
	"parcel-backend/internal/timeutil"
	"parcel-backend/pkg/utils"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// respond writes data as JSON, or as a workbook when ?format=xlsx.
func respond(w http.ResponseWriter, r *http.Request, name string, data interface{}, table func() services.Table) {
	if r.URL.Query().Get("format") != "xlsx" {
		utils.Success(w, http.StatusOK, "Report generated", data)
		return
	}
	xlsx, err := services.WriteXLSX(table())
	if err != nil {
		utils.Error(w, fmt.Errorf("export %s: %w", name, err))
		return
	}
	filename := fmt.Sprintf("%s_%s.xlsx", name, timeutil.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(xlsx)
}

// StatusWise handles GET /status-wise-summary
func (h *ReportHandler) StatusWise(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	rows, err := h.Service.StatusWiseSummary(ctx, a, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	respond(w, r, "status_wise_summary", rows, func() services.Table { return services.StatusSummaryTable(rows) })
}

// BookingSummary handles GET /reports/booking-summary
// Query params: fromDate, toDate, groupBy=branch|bookingType|status|sender
func (h *ReportHandler) BookingSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	sum, err := h.Service.BookingSummary(ctx, a, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	respond(w, r, "booking_summary", sum, func() services.Table { return services.BookingSummaryTable(sum) })
}

// BranchAccount handles GET /reports/branch-account
func (h *ReportHandler) BranchAccount(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	rows, err := h.Service.BranchAccount(ctx, a, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	respond(w, r, "branch_account", rows, func() services.Table { return services.BranchAccountTable(rows) })
}

// LoadingSummary handles GET /reports/loading-summary
func (h *ReportHandler) LoadingSummary(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	req, err := reportRequest(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	rows, err := h.Service.LoadingSummary(ctx, a, req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	respond(w, r, "loading_summary", rows, func() services.Table { return services.LoadingSummaryTable(rows) })
}
