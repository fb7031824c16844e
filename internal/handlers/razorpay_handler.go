package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"daan-backend/internal/cache"
	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"
)

type RazorpayHandler struct {
	Razorpay *services.RazorpayService
}

func NewRazorpayHandler(razorpay *services.RazorpayService) *RazorpayHandler {
	return &RazorpayHandler{Razorpay: razorpay}
}

// GetStatus tells the frontend whether online payments are available.
func (h *RazorpayHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, map[string]bool{"enabled": h.Razorpay.Enabled()})
}

func (h *RazorpayHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Razorpay.CreateOrder(r.Context(), &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, resp)
}

func (h *RazorpayHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.Razorpay.VerifyPayment(r.Context(), &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, order)
}

// Webhook handles Razorpay server-to-server notifications. Always
// answers 200 on processed events so Razorpay stops retrying.
func (h *RazorpayHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.Razorpay.VerifyWebhookSignature(body, r.Header.Get("X-Razorpay-Signature")) {
		utils.Error(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	var payload struct {
		Event   string                 `json:"event"`
		Payload map[string]interface{} `json:"payload"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := h.Razorpay.ProcessWebhook(r.Context(), payload.Event, payload.Payload); err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *RazorpayHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(r.URL.Query().Get("user_id"))

	orders, err := h.Razorpay.ListOrders(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []*models.OnlineOrder{}
	}

	utils.JSON(w, http.StatusOK, orders)
}
