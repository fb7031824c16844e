package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"daan-backend/internal/middleware"
	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type AdvanceHandler struct {
	Advances *services.AdvanceService
}

func NewAdvanceHandler(advances *services.AdvanceService) *AdvanceHandler {
	return &AdvanceHandler{Advances: advances}
}

func (h *AdvanceHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	deposit, err := h.Advances.CreateDeposit(r.Context(), &req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, deposit)
}

func (h *AdvanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(mux.Vars(r)["user_id"])

	balance, err := h.Advances.Balance(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, balance)
}

func (h *AdvanceHandler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))

	deposits, err := h.Advances.ListDeposits(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if deposits == nil {
		deposits = []*models.AdvancePayment{}
	}

	utils.JSON(w, http.StatusOK, deposits)
}

func (h *AdvanceHandler) ListUsages(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))

	usages, err := h.Advances.ListUsages(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if usages == nil {
		usages = []*models.AdvanceUsage{}
	}

	utils.JSON(w, http.StatusOK, usages)
}
