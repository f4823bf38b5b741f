// Package api expõe o ciclo de vida de consentimentos por HTTP para a
// aplicação desktop. Os handlers delegam toda a semântica ao manager; aqui
// fica só a tradução pedido/resposta e o mapeamento de erros para status.
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/config"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/consent"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/documents"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/signature"
)

// Handler agrega as dependências dos endpoints. Construído uma vez no
// main e partilhado por todas as rotas.
type Handler struct {
	Cfg     *config.Config
	Consent *consent.Manager
	Docs    *documents.Store
	Log     *logrus.Entry
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError traduz os erros sentinela do manager para status HTTP;
// tudo o resto é um 500 genérico com o detalhe no log, não na resposta.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, consent.ErrNotFound):
		writeError(w, http.StatusNotFound, "registo não encontrado")
	case errors.Is(err, consent.ErrNoActiveConsent):
		writeError(w, http.StatusConflict, "não há consentimento ativo para anular")
	case errors.Is(err, consent.ErrNoFileTimestamp):
		writeError(w, http.StatusUnprocessableEntity, "nome de ficheiro sem timestamp")
	case errors.Is(err, consent.ErrNoMatchingRecord):
		writeError(w, http.StatusNotFound, "nenhum registo corresponde ao ficheiro")
	default:
		h.Log.WithError(err).WithField("path", r.URL.Path).Error("erro interno")
		writeError(w, http.StatusInternalServerError, "erro interno")
	}
}

func muxVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("parâmetro %s inválido: %q", name, raw)
	}
	return v, nil
}

// SignatureInput é o corpo aceite onde entra uma assinatura: ou os traços
// crus do canvas (rasterizados aqui) ou um PNG já pronto em base64.
type SignatureInput struct {
	Strokes   []signature.Stroke `json:"strokes,omitempty"`
	PNGBase64 string             `json:"png_base64,omitempty"`
}

// Empty indica que não veio assinatura nenhuma.
func (s SignatureInput) Empty() bool {
	return len(s.Strokes) == 0 && s.PNGBase64 == ""
}

// PNG devolve os bytes da assinatura. Traços são reproduzidos num canvas
// novo por pedido; nada é partilhado entre pedidos.
func (s SignatureInput) PNG() ([]byte, error) {
	if s.PNGBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(s.PNGBase64)
		if err != nil {
			return nil, fmt.Errorf("png_base64 inválido: %w", err)
		}
		if len(data) == 0 {
			return nil, nil
		}
		return data, nil
	}
	if len(s.Strokes) == 0 {
		return nil, nil
	}
	canvas := signature.NewCanvas()
	canvas.Replay(s.Strokes)
	return canvas.Rasterize()
}
