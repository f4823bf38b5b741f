package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

type CreateDeclarationRequest struct {
	PatientName string  `json:"nome_paciente"`
	ContentHTML string  `json:"conteudo_html"`
	ContentText string  `json:"conteudo_texto"`
	FormData    *string `json:"dados_formulario"`
}

// PostDeclaration cria uma declaração de saúde pendente de assinatura.
func (h *Handler) PostDeclaration(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	var req CreateDeclarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo inválido")
		return
	}
	id, err := h.Consent.CreateDeclaration(r.Context(), patientID, req.PatientName,
		req.ContentHTML, req.ContentText, req.FormData)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

type DeclarationSignatureRequest struct {
	DocumentType string         `json:"tipo_documento"`
	Role         string         `json:"papel"`
	SignerName   string         `json:"nome"`
	Signature    SignatureInput `json:"assinatura"`
}

// PostDeclarationSignature é o fluxo criar-ou-atualizar: a assinatura entra
// na declaração mais recente ou, sem nenhuma, nasce um registo novo só com
// ela.
func (h *Handler) PostDeclarationSignature(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	var req DeclarationSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Signature.Empty() {
		writeError(w, http.StatusBadRequest, "assinatura obrigatória")
		return
	}
	role := model.SignerRole(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "papel de assinante desconhecido")
		return
	}
	png, err := req.Signature.PNG()
	if err != nil || len(png) == 0 {
		writeError(w, http.StatusBadRequest, "assinatura inválida")
		return
	}
	id, err := h.Consent.SaveDeclarationSignature(r.Context(), patientID,
		req.DocumentType, role, png, req.SignerName)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

// GetPreviousDeclaration devolve a declaração mais recente do paciente, com
// as respostas do formulário para pré-preencher a próxima.
func (h *Handler) GetPreviousDeclaration(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	docType := r.URL.Query().Get("tipo_documento")
	prev, err := h.Consent.PreviousDeclaration(r.Context(), patientID, docType)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prev)
}

// PostMarkSuperseded marca a declaração como substituída.
func (h *Handler) PostMarkSuperseded(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if err := h.Consent.MarkDeclarationSuperseded(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetStoredSignature devolve a assinatura mais recente do paciente para o
// tipo de documento e papel, em base64.
func (h *Handler) GetStoredSignature(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	docType := muxVar(r, "tipo")
	role := model.SignerRole(muxVar(r, "papel"))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "papel de assinante desconhecido")
		return
	}
	blob, err := h.Consent.Signature(r.Context(), patientID, docType, role)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"png_base64": base64.StdEncoding.EncodeToString(blob),
	})
}
