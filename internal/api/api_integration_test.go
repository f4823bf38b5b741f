package api_test

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/api"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/auth"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/cache"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/config"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/consent"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/documents"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/middleware"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/signature"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/testutil"
)

const testPassword = "consultorio-2025"

// newTestServer monta o router completo, com autenticação real, sobre uma
// base SQLite temporária.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := testutil.OpenDB(t)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logrus.NewEntry(logger)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	cfg := &config.Config{
		PublicURL:                "http://biodesk.local",
		JWTSecret:                []byte("segredo-de-teste-com-32-caracteres!"),
		PractitionerName:         "Nuno Correia",
		PractitionerPasswordHash: hash,
	}

	c := cache.New(cache.Options{DefaultTTL: time.Minute})
	t.Cleanup(c.Close)
	h := &api.Handler{
		Cfg:     cfg,
		Consent: consent.New(db, c, entry),
		Docs:    documents.NewStore(t.TempDir()),
		Log:     entry,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/public/declaracoes/estado", h.GetDeclarationFileStatus).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.RequireAuthMiddleware(cfg.JWTSecret))
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos", h.GetStatusSummary).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos", h.PostConsent).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos/historico", h.GetHistory).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/consentimentos/{tipo}/anular", h.PostVoid).Methods(http.MethodPost)
	protected.HandleFunc("/consentimentos/{id}", h.GetRecord).Methods(http.MethodGet)
	protected.HandleFunc("/consentimentos/{id}/assinaturas", h.GetSignaturesComplete).Methods(http.MethodGet)
	protected.HandleFunc("/pacientes/{pacienteID}/declaracoes/assinaturas", h.PostDeclarationSignature).Methods(http.MethodPost)
	protected.HandleFunc("/pacientes/{pacienteID}/auditoria", h.GetAuditEvents).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func loginToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"password": testPassword})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"token"`
		Name  string `json:"nome"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	require.Equal(t, "Nuno Correia", body.Name)
	return body.Token
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// signaturePNGBase64 rasteriza uma assinatura simples para usar nos pedidos.
func signaturePNGBase64(t *testing.T) string {
	t.Helper()
	canvas := signature.NewCanvas()
	canvas.Begin(signature.Point{X: 60, Y: 110})
	canvas.Extend(signature.Point{X: 180, Y: 90})
	canvas.Extend(signature.Point{X: 320, Y: 120})
	canvas.End()
	png, err := canvas.Rasterize()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(png)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/auth/login", "",
		map[string]string{"password": "errada"})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	loginToken(t, srv)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, srv, http.MethodGet, "/api/pacientes/1/consentimentos", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/pacientes/1/consentimentos", "token-forjado", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConsentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := loginToken(t, srv)
	png := signaturePNGBase64(t)

	// Maria Silva assina naturopatia.
	resp := doJSON(t, srv, http.MethodPost, "/api/pacientes/42/consentimentos", token,
		map[string]any{
			"tipo":                 model.TypeNaturopatia,
			"conteudo_texto":       "Consinto o tratamento de naturopatia.",
			"nome_paciente":        "Maria Silva",
			"assinatura_paciente":  map[string]string{"png_base64": png},
			"assinatura_terapeuta": map[string]string{"png_base64": png},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)

	resp = doJSON(t, srv, http.MethodGet, "/api/pacientes/42/consentimentos", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary model.StatusSummary
	decodeBody(t, resp, &summary)
	assert.Equal(t, model.SummarySigned, summary[model.TypeNaturopatia].Status)
	assert.Equal(t, model.SummaryNotSigned, summary[model.TypeRGPD].Status)

	resp = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/consentimentos/%d/assinaturas", created.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var done model.SignatureCompletion
	decodeBody(t, resp, &done)
	assert.True(t, done.Complete)

	resp = doJSON(t, srv, http.MethodGet, "/api/pacientes/42/consentimentos/historico", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []model.HistoryEntry
	decodeBody(t, resp, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "Naturopatia", history[0].TypeLabel)
	assert.Equal(t, "Paciente • Terapeuta", history[0].Signatures)

	// Anulação: a primeira passa, a segunda já não encontra consentimento
	// ativo.
	resp = doJSON(t, srv, http.MethodPost,
		"/api/pacientes/42/consentimentos/naturopatia/anular", token,
		map[string]string{"motivo": "Paciente mudou de ideias"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost,
		"/api/pacientes/42/consentimentos/naturopatia/anular", token,
		map[string]string{"motivo": "outra vez"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/pacientes/42/consentimentos", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &summary)
	assert.Equal(t, model.SummaryVoided, summary[model.TypeNaturopatia].Status)

	// A trilha de auditoria acompanhou o ciclo.
	resp = doJSON(t, srv, http.MethodGet, "/api/pacientes/42/auditoria", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []map[string]any
	decodeBody(t, resp, &events)
	assert.GreaterOrEqual(t, len(events), 2)
}

func TestPublicDeclarationVerification(t *testing.T) {
	srv := newTestServer(t)
	token := loginToken(t, srv)
	png := signaturePNGBase64(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/pacientes/7/declaracoes/assinaturas", token,
		map[string]any{
			"tipo_documento": model.DocDeclaracaoSaude,
			"papel":          "paciente",
			"nome":           "João Santos",
			"assinatura":     map[string]string{"png_base64": png},
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &created)

	resp = doJSON(t, srv, http.MethodGet,
		fmt.Sprintf("/api/consentimentos/%d", created.ID), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec model.ConsentRecord
	decodeBody(t, resp, &rec)
	signedAt, ok := model.ParseTime(rec.SignedAt)
	require.True(t, ok)

	// O nome do PDF arquivado embebe o data_assinatura; a rota pública
	// resolve-o de volta ao registo.
	filename := documents.DeclarationFilename(signedAt)
	resp = doJSON(t, srv, http.MethodGet,
		"/api/public/declaracoes/estado?paciente_id=7&arquivo="+url.QueryEscape(filename), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state model.DeclarationFileState
	decodeBody(t, resp, &state)
	assert.Equal(t, model.FileStatusActive, state.Status)

	// Nome sem timestamp não é verificável.
	resp = doJSON(t, srv, http.MethodGet,
		"/api/public/declaracoes/estado?paciente_id=7&arquivo=declaracao.pdf", "", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
