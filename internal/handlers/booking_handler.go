package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"parcel-backend/internal/models"
	"parcel-backend/internal/services"
	"parcel-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type BookingHandler struct {
	service *services.BookingService
	printer *services.PrintService
}

func NewBookingHandler(service *services.BookingService, printer *services.PrintService) *BookingHandler {
	return &BookingHandler{service: service, printer: printer}
}

// Create handles POST /booking
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.CreateBooking(r.Context(), a, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, "Booking created", b)
}

// List handles GET /booking
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f, err := bookingFilter(r)
	if err != nil {
		utils.Error(w, err)
		return
	}
	bookings, err := h.service.ListBookings(r.Context(), a, f)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	utils.Success(w, http.StatusOK, "Bookings fetched", bookings)
}

// Get handles GET /booking/{id}
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(r.Context(), a, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking fetched", b)
}

// GetByGRN handles GET /booking/grnNoUnique/{grnNoUnique}
func (h *BookingHandler) GetByGRN(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	grn, err := strconv.ParseInt(mux.Vars(r)["grnNoUnique"], 10, 64)
	if err != nil {
		utils.BadRequest(w, "Invalid GRN")
		return
	}
	b, err := h.service.GetByGRN(r.Context(), a, grn)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking fetched", b)
}

// LRPDF handles GET /booking/{id}/lr.pdf
func (h *BookingHandler) LRPDF(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	b, err := h.service.GetBooking(r.Context(), a, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	pdf, err := h.printer.GenerateLRPDF(b)
	if err != nil {
		utils.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=LR_%d.pdf", b.GrnNo))
	w.Write(pdf)
}

// Cancel handles POST /booking/{id}/cancel
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req models.CancelBookingRequest
	if !decode(w, r, &req) {
		return
	}
	b, err := h.service.CancelBooking(r.Context(), a, id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking cancelled", b)
}

// Deliver handles POST /booking/{id}/deliver
func (h *BookingHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	var req models.DeliverBookingRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	b, err := h.service.DeliverBooking(r.Context(), a, id, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking delivered", b)
}

// MarkMissing handles POST /booking/{id}/missing
func (h *BookingHandler) MarkMissing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	b, err := h.service.MarkMissing(r.Context(), a, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking marked missing", b)
}

// Delete handles DELETE /booking/{id}
func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBooking(r.Context(), a, id); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Booking deleted", nil)
}
