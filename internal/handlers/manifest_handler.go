package handlers

import (
	"fmt"
	"net/http"

	"parcel-backend/internal/models"
	"parcel-backend/internal/services"
	"parcel-backend/pkg/utils"
)

// ManifestHandler serves one direction. Loading and unloading get their
// own instance mounted under /parcel-loading and /parcel-unloading.
type ManifestHandler struct {
	service   *services.ManifestService
	direction models.Direction
}

func NewManifestHandler(service *services.ManifestService, direction models.Direction) *ManifestHandler {
	return &ManifestHandler{service: service, direction: direction}
}

// Create handles POST /parcel-{direction}
func (h *ManifestHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req models.CreateManifestRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.service.CreateManifest(r.Context(), a, h.direction, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, fmt.Sprintf("Parcel %s created", h.direction), m)
}

// List handles GET /parcel-{direction}
func (h *ManifestHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	f, err := manifestFilter(r, h.direction)
	if err != nil {
		utils.Error(w, err)
		return
	}
	h.list(w, r, a, f)
}

// ByGRN handles GET /parcel-{direction}/grn/{grnNo}
func (h *ManifestHandler) ByGRN(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	grn, ok := pathInt(w, r, "grnNo")
	if !ok {
		return
	}
	h.list(w, r, a, models.ManifestFilter{Direction: h.direction, GrnNo: grn})
}

func (h *ManifestHandler) list(w http.ResponseWriter, r *http.Request, a models.Actor, f models.ManifestFilter) {
	manifests, err := h.service.ListManifests(r.Context(), a, f)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if manifests == nil {
		manifests = []*models.ManifestWithBookings{}
	}
	utils.Success(w, http.StatusOK, "Manifests fetched", manifests)
}

// Get handles GET /parcel-{direction}/voucher/{voucherNo}
func (h *ManifestHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	voucherNo, ok := pathInt(w, r, "voucherNo")
	if !ok {
		return
	}
	m, err := h.service.GetByVoucher(r.Context(), a, h.direction, voucherNo)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Manifest fetched", m)
}

// PDF handles GET /parcel-{direction}/voucher/{voucherNo}/pdf
func (h *ManifestHandler) PDF(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	voucherNo, ok := pathInt(w, r, "voucherNo")
	if !ok {
		return
	}
	pdf, err := h.service.SheetPDF(r.Context(), a, h.direction, voucherNo)
	if err != nil {
		utils.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%s_%d.pdf", h.direction, voucherNo))
	w.Write(pdf)
}

// Update handles PUT /parcel-{direction}/voucher/{voucherNo}
func (h *ManifestHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	voucherNo, ok := pathInt(w, r, "voucherNo")
	if !ok {
		return
	}
	var req models.UpdateManifestRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.service.UpdateManifest(r.Context(), a, h.direction, voucherNo, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Manifest updated", m)
}

// Delete handles DELETE /parcel-{direction}/voucher/{voucherNo}
func (h *ManifestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	voucherNo, ok := pathInt(w, r, "voucherNo")
	if !ok {
		return
	}
	if err := h.service.DeleteManifest(r.Context(), a, h.direction, voucherNo); err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Manifest deleted", nil)
}
