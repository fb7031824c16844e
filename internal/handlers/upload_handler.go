package handlers

import (
	"net/http"

	"daan-backend/internal/storage"
	"daan-backend/pkg/utils"
)

// 10 MB cap per proof file.
const maxProofSize = 10 << 20

type UploadHandler struct {
	Proofs *storage.ProofStore
}

func NewUploadHandler(proofs *storage.ProofStore) *UploadHandler {
	return &UploadHandler{Proofs: proofs}
}

// UploadProof accepts a multipart payment proof (screenshot, cheque
// scan) and returns the reference to store on the payment record.
func (h *UploadHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	if h.Proofs == nil {
		utils.Error(w, http.StatusServiceUnavailable, "proof storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxProofSize)
	if err := r.ParseMultipartForm(maxProofSize); err != nil {
		utils.Error(w, http.StatusBadRequest, "file too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref, err := h.Proofs.UploadProof(r.Context(), header.Filename, contentType, file)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, map[string]string{"proof_url": ref})
}
