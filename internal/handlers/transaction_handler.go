package handlers

import (
	"net/http"
	"strconv"

	"daan-backend/internal/models"
	"daan-backend/internal/repositories"
	"daan-backend/pkg/utils"
)

type TransactionHandler struct {
	Txns *repositories.TransactionRepository
}

func NewTransactionHandler(txns *repositories.TransactionRepository) *TransactionHandler {
	return &TransactionHandler{Txns: txns}
}

// ListTransactions serves the audit log, newest first. Filterable by
// entry, user and type for reconciliation views.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter models.TransactionFilter

	if v := q.Get("entry_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.EntryID = &id
		}
	}
	if v := q.Get("user_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			filter.UserID = &id
		}
	}
	filter.Type = q.Get("type")
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	txns, err := h.Txns.List(r.Context(), filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}

	utils.JSON(w, http.StatusOK, txns)
}
