package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/crypto"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/documents"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/pdf"
)

// GetDocuments lista os PDFs arquivados do paciente.
func (h *Handler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	name := r.URL.Query().Get("nome_paciente")
	if name == "" {
		writeError(w, http.StatusBadRequest, "nome_paciente obrigatório")
		return
	}
	entries, err := h.Docs.List(patientID, name)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type RenderDocumentRequest struct {
	RecordID int64 `json:"id"`
	// PatientName define a pasta do paciente quando o registo não tem nome.
	PatientName string `json:"nome_paciente"`
}

func (h *Handler) verificationURL(patientID int64, filename string) string {
	return fmt.Sprintf("%s/api/public/declaracoes/estado?paciente_id=%d&arquivo=%s",
		h.Cfg.PublicURL, patientID, url.QueryEscape(filename))
}

// renderAndArchive constrói o PDF do registo e grava-o na pasta do
// paciente; o nome do ficheiro embebe o data_assinatura do registo, que é o
// que liga o PDF de volta à base de dados.
func (h *Handler) renderAndArchive(w http.ResponseWriter, r *http.Request, declaration bool) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	var req RenderDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID <= 0 {
		writeError(w, http.StatusBadRequest, "id do registo obrigatório")
		return
	}
	rec, err := h.Consent.Record(r.Context(), req.RecordID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if rec.PatientID != patientID {
		writeError(w, http.StatusNotFound, "registo não pertence ao paciente")
		return
	}
	signedAt, ok := model.ParseTime(rec.SignedAt)
	if !ok {
		signedAt = time.Now()
	}

	patientName := rec.PatientName
	if patientName == "" {
		patientName = req.PatientName
	}
	body := rec.ContentText
	if body == "" && rec.ContentHTML != "" {
		body = pdf.BodyFromHTML(rec.ContentHTML)
	}

	var filename, subdir string
	if declaration {
		filename = documents.DeclarationFilename(signedAt)
		subdir = documents.DeclarationsSubdir
	} else {
		filename = documents.ConsentFilename(rec.Type, signedAt)
		subdir = documents.ConsentsSubdir
	}

	doc := pdf.Document{
		TypeLabel:                model.LabelFor(rec.Type),
		PatientName:              patientName,
		PractitionerName:         rec.PractitionerName,
		SignedAt:                 model.FormatDateTime(rec.SignedAt),
		BodyText:                 body,
		PatientSignaturePNG:      rec.PatientSignature,
		PractitionerSignaturePNG: rec.PractitionerSignature,
		// Impressão do hash do conteúdo consentido, para conferir o papel
		// contra o registo.
		SHA256:          crypto.SHA256Hex([]byte(body)),
		VerificationURL: h.verificationURL(patientID, filename),
	}
	var data []byte
	if declaration {
		data, err = pdf.BuildDeclarationPDF(doc)
	} else {
		data, err = pdf.BuildConsentPDF(doc)
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	saved, err := h.Docs.Save(patientID, patientName, subdir, filename, data)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.Consent.NoteDocumentSaved(r.Context(), rec.ID, patientID, saved.Name, saved.SHA256)
	writeJSON(w, http.StatusCreated, saved)
}

// PostVoidCertificate gera e arquiva o comprovativo de anulação de um
// consentimento já anulado. O registo original não é tocado.
func (h *Handler) PostVoidCertificate(w http.ResponseWriter, r *http.Request) {
	patientID, err := pathInt64(r, "pacienteID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "paciente inválido")
		return
	}
	var req RenderDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID <= 0 {
		writeError(w, http.StatusBadRequest, "id do registo obrigatório")
		return
	}
	rec, err := h.Consent.Record(r.Context(), req.RecordID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if rec.PatientID != patientID {
		writeError(w, http.StatusNotFound, "registo não pertence ao paciente")
		return
	}
	if rec.Status != model.StatusVoided || rec.VoidedAt == nil {
		writeError(w, http.StatusConflict, "o registo não está anulado")
		return
	}
	voidedAt, ok := model.ParseTime(*rec.VoidedAt)
	if !ok {
		voidedAt = time.Now()
	}
	reason := ""
	if rec.VoidReason != nil {
		reason = *rec.VoidReason
	}
	patientName := rec.PatientName
	if patientName == "" {
		patientName = req.PatientName
	}
	data, err := pdf.BuildVoidCertificatePDF(pdf.VoidCertificate{
		TypeLabel:        model.LabelFor(rec.Type),
		PatientName:      patientName,
		PractitionerName: rec.PractitionerName,
		SignedAt:         model.FormatDateTime(rec.SignedAt),
		VoidedAt:         model.FormatDateTime(*rec.VoidedAt),
		Reason:           reason,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	filename := documents.VoidCertificateFilename(rec.Type, voidedAt)
	saved, err := h.Docs.Save(patientID, patientName, documents.ConsentsSubdir, filename, data)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.Consent.NoteDocumentSaved(r.Context(), rec.ID, patientID, saved.Name, saved.SHA256)
	writeJSON(w, http.StatusCreated, saved)
}

// PostConsentDocument gera e arquiva o PDF de um consentimento.
func (h *Handler) PostConsentDocument(w http.ResponseWriter, r *http.Request) {
	h.renderAndArchive(w, r, false)
}

// PostDeclarationDocument gera e arquiva o PDF de uma declaração de saúde.
func (h *Handler) PostDeclarationDocument(w http.ResponseWriter, r *http.Request) {
	h.renderAndArchive(w, r, true)
}
