package api

import (
	"encoding/json"
	"net/http"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/auth"
)

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	Name  string `json:"nome"`
}

// Login autentica o terapeuta com a password configurada e devolve o JWT
// que a aplicação desktop usa no resto da sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password obrigatória")
		return
	}
	if h.Cfg.PractitionerPasswordHash == "" {
		h.Log.Warn("login recusado: BIODESK_PRACTITIONER_PASSWORD_HASH não configurado")
		writeError(w, http.StatusServiceUnavailable, "autenticação não configurada")
		return
	}
	if !auth.CheckPassword(h.Cfg.PractitionerPasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "credenciais inválidas")
		return
	}
	token, err := auth.BuildJWT(h.Cfg.JWTSecret, h.Cfg.PractitionerName, auth.DefaultTokenTTL)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Name: h.Cfg.PractitionerName})
}
