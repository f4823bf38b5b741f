package api

import (
	"net/http"
	"strconv"
)

// GetDeclarationFileStatus é o alvo do QR impresso nos PDFs: dado o nome do
// ficheiro arquivado, responde se essa declaração ainda está em vigor.
// Rota pública, sem sessão: quem tem o papel na mão pode verificar.
func (h *Handler) GetDeclarationFileStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patientID, err := strconv.ParseInt(q.Get("paciente_id"), 10, 64)
	if err != nil || patientID <= 0 {
		writeError(w, http.StatusBadRequest, "paciente_id inválido")
		return
	}
	filename := q.Get("arquivo")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "arquivo obrigatório")
		return
	}
	state, err := h.Consent.DeclarationFileStatus(r.Context(), patientID, filename)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
