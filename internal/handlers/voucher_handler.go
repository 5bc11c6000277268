package handlers

import (
	"net/http"

	"parcel-backend/internal/apperr"
	"parcel-backend/internal/models"
	"parcel-backend/internal/services"
	"parcel-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type VoucherHandler struct {
	service *services.VoucherService
}

func NewVoucherHandler(service *services.VoucherService) *VoucherHandler {
	return &VoucherHandler{service: service}
}

// GenerateCredit handles POST /credit-voucher-generate
func (h *VoucherHandler) GenerateCredit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req models.CreditVoucherGenerateRequest
	if !decode(w, r, &req) {
		return
	}
	out, err := h.service.GenerateCreditCandidates(r.Context(), a, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Credit bookings fetched", out)
}

// CreateCredit handles POST /credit-vouchers
func (h *VoucherHandler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, models.VoucherCredit)
}

// CreateCollection handles POST /collection-vouchers
func (h *VoucherHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, models.VoucherCollection)
}

func (h *VoucherHandler) create(w http.ResponseWriter, r *http.Request, kind models.VoucherKind) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req models.CreateVoucherRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.service.CreateVoucher(r.Context(), a, kind, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusCreated, "Voucher created", v)
}

// Get handles GET /vouchers/{kind}/{voucherNo}
func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	kind := models.VoucherKind(mux.Vars(r)["kind"])
	if !kind.Valid() {
		utils.Error(w, apperr.Validation("unknown voucher kind %q", kind))
		return
	}
	voucherNo, ok := pathInt(w, r, "voucherNo")
	if !ok {
		return
	}
	v, err := h.service.GetVoucher(r.Context(), a, kind, voucherNo)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Voucher fetched", v)
}
