package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"daan-backend/internal/cache"
	"daan-backend/internal/middleware"
	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type EntryHandler struct {
	Entries  *services.EntryService
	Payments *services.PaymentService
}

func NewEntryHandler(entries *services.EntryService, payments *services.PaymentService) *EntryHandler {
	return &EntryHandler{Entries: entries, Payments: payments}
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Entries.Create(r.Context(), &req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	entry, err := h.Entries.Get(r.Context(), id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")

	entries, err := h.Entries.List(r.Context(), kind)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}

	utils.JSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) ListEntriesByUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.Atoi(mux.Vars(r)["user_id"])

	entries, err := h.Entries.ListByUser(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}

	utils.JSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) ListDeletedEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Entries.ListDeleted(r.Context())
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*models.Entry{}
	}

	utils.JSON(w, http.StatusOK, entries)
}

// GetSummary serves the dashboard aggregate, cached for five minutes
// and invalidated on every mutation.
func (h *EntryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")

	cacheKey := cache.SummaryBoliKey
	if kind == models.KindOutstanding {
		cacheKey = cache.SummaryOutstandingKey
	}
	if data, ok := cache.GetCached(r.Context(), cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
		return
	}

	summary, err := h.Entries.Summary(r.Context(), kind)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	if data, err := json.Marshal(summary); err == nil {
		cache.SetCached(r.Context(), cacheKey, data, 5*time.Minute)
	}
	utils.JSON(w, http.StatusOK, summary)
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var req struct {
		Item string `json:"item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := h.Entries.UpdateItem(r.Context(), id, req.Item, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	entry, err := h.Payments.SoftDeleteEntry(r.Context(), id, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) RestoreEntry(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	entry, err := h.Payments.RestoreEntry(r.Context(), id, middleware.ActorFromContext(r.Context()))
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	cache.InvalidateSummaries(r.Context())

	utils.JSON(w, http.StatusOK, entry)
}
