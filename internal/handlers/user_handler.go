package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"daan-backend/internal/models"
	"daan-backend/internal/services"
	"daan-backend/pkg/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	Users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.Users.CreateUser(r.Context(), &req)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	user.PasswordHash = ""

	utils.JSON(w, http.StatusCreated, user)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	user, err := h.Users.GetUser(r.Context(), id)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	user.PasswordHash = ""

	utils.JSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	users, err := h.Users.ListUsers(r.Context(), role)
	if err != nil {
		utils.ServiceError(w, err)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	utils.JSON(w, http.StatusOK, users)
}
