package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"daan-backend/internal/cache"
	"daan-backend/internal/middleware"
	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

// RecordPayment appends a payment to an entry. A 409 response means the
// entry changed mid-flight and the client should re-read and retry.
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	entryID, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req models.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, payment, err := h.Payments.RecordPayment(r.Context(), entryID, &req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusCreated, map[string]interface{}{
		"entry":   entry,
		"payment": payment,
	})
}

func (h *PaymentHandler) EditPayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entryID, _ := strconv.Atoi(vars["id"])
	receiptNo := vars["receipt_no"]

	var req models.EditPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Payments.EditPayment(r.Context(), entryID, receiptNo, &req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, entry)
}

func (h *PaymentHandler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	entryID, _ := strconv.Atoi(vars["id"])
	receiptNo := vars["receipt_no"]

	entry, err := h.Payments.DeletePayment(r.Context(), entryID, receiptNo, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, entry)
}
