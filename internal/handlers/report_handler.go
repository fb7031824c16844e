package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type ReportHandler struct {
	Reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{Reports: reports}
}

// DonorStatementPDF serves one donor's statement as a PDF download.
func (h *ReportHandler) DonorStatementPDF(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(mux.Vars(r)["user_id"])
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	data, err := h.Reports.GetDonorReportData(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	pdf, err := h.Reports.GenerateDonorPDF(data)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="donor_%d.pdf"`, userID))
	w.Write(pdf)
}

// BulkDonorZIP serves statements for all donors as one ZIP. filter may
// be "outstanding" or "paid".
func (h *ReportHandler) BulkDonorZIP(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")

	pdfs, err := h.Reports.GenerateBulkDonorPDFs(r.Context(), filter)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	zipData, err := h.Reports.CreateBulkPDFZip(pdfs)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="donor_statements.zip"`)
	w.Write(zipData)
}

// EntriesCSV exports active entries of one kind.
func (h *ReportHandler) EntriesCSV(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != models.KindBoli && kind != models.KindOutstanding {
		utils.Error(w, http.StatusBadRequest, "kind must be boli or outstanding")
		return
	}

	data, err := h.Reports.GenerateEntriesCSV(r.Context(), kind)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="entries_%s.csv"`, kind))
	w.Write(data)
}
