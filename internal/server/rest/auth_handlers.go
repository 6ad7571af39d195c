package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
)

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	FullName string `json:"full_name"`
}

func (s *RESTServer) handleRegister(w http.ResponseWriter, r *http.Request) {

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Все поля обязательны")
		return
	}

	_, err := s.accounts.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrValidation):
			errorJSON(w, http.StatusBadRequest, "Все поля обязательны")
		case errors.Is(err, common.ErrEmailTaken):
			errorJSON(w, http.StatusBadRequest, "Email уже используется")
		default:
			s.logger.Error(r.Context(), err.Error())
			errorJSON(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	s.logger.Info(r.Context(), "Registered", "email", req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Регистрация успешна"})
}

func (s *RESTServer) handleLogin(w http.ResponseWriter, r *http.Request) {

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "Пользователь не найден")
		return
	}

	result, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrUserNotFound):
			errorJSON(w, http.StatusBadRequest, "Пользователь не найден")
		case errors.Is(err, common.ErrInvalidCredentials):
			errorJSON(w, http.StatusBadRequest, "Неверный пароль")
		default:
			s.logger.Error(r.Context(), err.Error())
			errorJSON(w, http.StatusInternalServerError, "Server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: result.Token, FullName: result.FullName})
}
