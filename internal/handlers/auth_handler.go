package handlers

import (
	"encoding/json"
	"net/http"

	"daan-backend/internal/middleware"
	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"
)

type AuthHandler struct {
	Users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{Users: users}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Users.Login(r.Context(), &req)
	if err != nil {
		// Bad credentials always read as 401 regardless of category.
		utils.Error(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	user, err := h.Users.GetUser(r.Context(), userID)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	user.PasswordHash = ""

	utils.JSON(w, http.StatusOK, user)
}
