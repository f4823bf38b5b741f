package api

import (
	"encoding/json"
	"net/http"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/auth"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/consent"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

// GetStatusSummary devolve o estado de cada tipo de consentimento da ficha.
func (h *Handler) GetStatusSummary(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	summary, err := h.Consent.StatusSummary(r.Context(), patientID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type SaveConsentRequest struct {
	Type                  string         `json:"tipo"`
	ContentHTML           string         `json:"conteudo_html"`
	ContentText           string         `json:"conteudo_texto"`
	PatientName           string         `json:"nome_paciente"`
	PractitionerName      string         `json:"nome_terapeuta"`
	PatientSignature      SignatureInput `json:"assinatura_paciente"`
	PractitionerSignature SignatureInput `json:"assinatura_terapeuta"`
	FormData              *string        `json:"dados_formulario"`
}

// PostConsent grava um consentimento assinado novo.
func (h *Handler) PostConsent(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	var req SaveConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo inválido")
		return
	}
	if !model.KnownDocumentType(req.Type) {
		writeError(w, http.StatusBadRequest, "tipo de consentimento desconhecido")
		return
	}
	patientPNG, err := req.PatientSignature.PNG()
	if err != nil {
		writeError(w, http.StatusBadRequest, "assinatura do paciente inválida")
		return
	}
	practitionerPNG, err := req.PractitionerSignature.PNG()
	if err != nil {
		writeError(w, http.StatusBadRequest, "assinatura do terapeuta inválida")
		return
	}
	practitionerName := req.PractitionerName
	if practitionerName == "" {
		practitionerName = auth.NameFrom(r.Context())
	}
	id, err := h.Consent.SaveConsent(r.Context(), consent.SaveConsentInput{
		PatientID:             patientID,
		Type:                  req.Type,
		ContentHTML:           req.ContentHTML,
		ContentText:           req.ContentText,
		PatientSignature:      patientPNG,
		PractitionerSignature: practitionerPNG,
		PatientName:           req.PatientName,
		PractitionerName:      practitionerName,
		FormData:              req.FormData,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// GetHistory devolve o histórico completo do paciente, mais recente
// primeiro.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	entries, err := h.Consent.History(r.Context(), patientID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRecord devolve o registo completo, assinaturas incluídas.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return
	}
	rec, err := h.Consent.Record(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetSignaturesComplete indica que campos de assinatura estão preenchidos.
func (h *Handler) GetSignaturesComplete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return
	}
	done, err := h.Consent.SignaturesComplete(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, done)
}

type UpdateSignatureRequest struct {
	Signature  SignatureInput `json:"assinatura"`
	SignerName string         `json:"nome"`
}

// PutSignatureSlot grava um dos campos de assinatura de um registo
// existente; o papel vem na rota.
func (h *Handler) PutSignatureSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido")
		return
	}
	role := model.SignerRole(muxVar(r, "papel"))
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "papel de assinante desconhecido")
		return
	}
	var req UpdateSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Signature.Empty() {
		writeError(w, http.StatusBadRequest, "assinatura obrigatória")
		return
	}
	png, err := req.Signature.PNG()
	if err != nil || len(png) == 0 {
		writeError(w, http.StatusBadRequest, "assinatura inválida")
		return
	}
	signerName := req.SignerName
	if signerName == "" && role == model.RolePractitioner {
		signerName = auth.NameFrom(r.Context())
	}
	switch role {
	case model.RolePatient:
		err = h.Consent.UpdatePatientSignature(r.Context(), id, png, signerName)
	case model.RolePractitioner:
		err = h.Consent.UpdatePractitionerSignature(r.Context(), id, png, signerName)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetVoidPreview devolve a fotografia do registo que seria anulado.
func (h *Handler) GetVoidPreview(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	tipo := muxVar(r, "tipo")
	preview, err := h.Consent.RecordForVoidPreview(r.Context(), patientID, tipo)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

type VoidRequest struct {
	Reason string `json:"motivo"`
}

// PostVoid anula o consentimento ativo mais recente do tipo.
func (h *Handler) PostVoid(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	tipo := muxVar(r, "tipo")
	var req VoidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reason == "" {
		writeError(w, http.StatusBadRequest, "motivo obrigatório")
		return
	}
	if err := h.Consent.Void(r.Context(), patientID, tipo, req.Reason); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// GetAuditEvents lista a trilha de auditoria do paciente.
func (h *Handler) GetAuditEvents(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	events, err := h.Consent.AuditEvents(r.Context(), patientID, 100)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
