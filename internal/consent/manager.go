// Package consent é o ponto único de leitura e mutação dos registos de
// consentimento. O modelo é append-only: registos nunca são apagados, só
// anulados ou substituídos por um mais recente.
package consent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/cache"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/repo"
)

// Manager expõe as operações do ciclo de vida. Todas recebem context e
// devolvem erro; ausência é ErrNotFound, nunca um boolean.
type Manager struct {
	db    *gorm.DB
	cache *cache.TTL
	log   *logrus.Entry
	now   func() time.Time
}

// New cria o manager. cache pode ser nil (os resumos deixam de ser
// cacheados, o resto não muda).
func New(db *gorm.DB, c *cache.TTL, log *logrus.Entry) *Manager {
	return &Manager{db: db, cache: c, log: log, now: time.Now}
}

func statusCacheKey(patientID int64) string {
	return fmt.Sprintf("consent_status:%d", patientID)
}

func historyCacheKey(patientID int64) string {
	return fmt.Sprintf("consent_history:%d", patientID)
}

// invalidate limpa as entradas do paciente depois de qualquer mutação.
func (m *Manager) invalidate(patientID int64) {
	if m.cache == nil {
		return
	}
	m.cache.Delete(statusCacheKey(patientID))
	m.cache.Delete(historyCacheKey(patientID))
}

// audit regista o evento na trilha de auditoria. Falhas ficam no log e não
// travam a mutação que as originou.
func (m *Manager) audit(ctx context.Context, action string, consentID, patientID *int64, actor string, meta map[string]any) {
	occurredAt := m.now().Format(model.TimeLayout)
	if _, err := repo.CreateAuditEvent(ctx, m.db, occurredAt, action, consentID, patientID, actor, meta); err != nil {
		m.log.WithError(err).WithField("acao", action).Warn("falha ao gravar evento de auditoria")
	}
}

// StatusSummary devolve, para cada tipo de consentimento da ficha, o estado
// do registo mais recente: signed, voided ou not_signed. Pacientes sem
// registos obtêm not_signed em todos os tipos.
func (m *Manager) StatusSummary(ctx context.Context, patientID int64) (model.StatusSummary, error) {
	if m.cache != nil {
		if raw := m.cache.Get(statusCacheKey(patientID)); raw != nil {
			var cached model.StatusSummary
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	summary := make(model.StatusSummary, len(model.ConsentTypes()))
	for _, tipo := range model.ConsentTypes() {
		row, err := repo.LatestStatusForType(ctx, m.db, patientID, tipo)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			summary[tipo] = model.TypeStatus{Status: model.SummaryNotSigned}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("estado de %s: %w", tipo, err)
		}
		summary[tipo] = summarize(row)
	}

	if m.cache != nil {
		if raw, err := json.Marshal(summary); err == nil {
			m.cache.Set(statusCacheKey(patientID), raw)
		}
	}
	return summary, nil
}

func summarize(row *repo.StatusRow) model.TypeStatus {
	date := model.FormatDate(row.SignedAt)
	switch row.Status {
	case model.StatusSigned:
		return model.TypeStatus{Status: model.SummarySigned, Date: &date}
	case model.StatusVoided:
		ts := model.TypeStatus{Status: model.SummaryVoided, Date: &date}
		if row.VoidedAt != nil {
			v := model.FormatDate(*row.VoidedAt)
			ts.VoidedDate = &v
		}
		return ts
	default:
		// pending_signature e superseded não contam como assinados.
		return model.TypeStatus{Status: model.SummaryNotSigned}
	}
}

// SaveConsentInput reúne os campos de um novo consentimento assinado.
type SaveConsentInput struct {
	PatientID             int64
	Type                  string
	ContentHTML           string
	ContentText           string
	PatientSignature      []byte
	PractitionerSignature []byte
	PatientName           string
	PractitionerName      string
	FormData              *string
}

// SaveConsent insere um registo novo com status signed. Registos anteriores
// do mesmo tipo não são tocados; a supersessão é resolvida na leitura.
func (m *Manager) SaveConsent(ctx context.Context, in SaveConsentInput) (int64, error) {
	if !model.KnownDocumentType(in.Type) {
		return 0, fmt.Errorf("tipo de consentimento desconhecido: %q", in.Type)
	}
	now := m.now().Format(model.TimeLayout)
	rec := &model.ConsentRecord{
		PatientID:             in.PatientID,
		Type:                  in.Type,
		SignedAt:              now,
		CreatedAt:             now,
		ContentHTML:           in.ContentHTML,
		ContentText:           in.ContentText,
		PatientSignature:      in.PatientSignature,
		PractitionerSignature: in.PractitionerSignature,
		PatientName:           in.PatientName,
		PractitionerName:      in.PractitionerName,
		Status:                model.StatusSigned,
		FormData:              in.FormData,
	}
	id, err := repo.InsertConsent(ctx, m.db, rec)
	if err != nil {
		return 0, fmt.Errorf("guardar consentimento: %w", err)
	}
	m.invalidate(in.PatientID)
	m.audit(ctx, repo.AuditConsentSigned, &id, &in.PatientID, in.PractitionerName,
		map[string]any{"tipo": in.Type})
	m.log.WithFields(logrus.Fields{"paciente": in.PatientID, "tipo": in.Type, "id": id}).
		Info("consentimento guardado")
	return id, nil
}

// History devolve todos os registos do paciente, mais recentes primeiro,
// formatados para exibição.
func (m *Manager) History(ctx context.Context, patientID int64) ([]model.HistoryEntry, error) {
	if m.cache != nil {
		if raw := m.cache.Get(historyCacheKey(patientID)); raw != nil {
			var cached []model.HistoryEntry
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}
	rows, err := repo.ConsentHistory(ctx, m.db, patientID)
	if err != nil {
		return nil, fmt.Errorf("histórico do paciente %d: %w", patientID, err)
	}
	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, model.HistoryEntry{
			ID:               r.ID,
			Type:             r.Type,
			TypeLabel:        model.LabelFor(r.Type),
			Date:             model.FormatDateTime(r.SignedAt),
			Status:           r.Status,
			PatientName:      r.PatientName,
			PractitionerName: r.PractitionerName,
			Signatures:       signatureSummary(r.HasPatientSig, r.HasPractitionerSig),
		})
	}
	if m.cache != nil {
		if raw, err := json.Marshal(entries); err == nil {
			m.cache.Set(historyCacheKey(patientID), raw)
		}
	}
	return entries, nil
}

func signatureSummary(patient, practitioner bool) string {
	var parts []string
	if patient {
		parts = append(parts, "Paciente")
	}
	if practitioner {
		parts = append(parts, "Terapeuta")
	}
	if len(parts) == 0 {
		return "Sem assinaturas"
	}
	return strings.Join(parts, " • ")
}

// Record devolve o registo completo, assinaturas incluídas.
func (m *Manager) Record(ctx context.Context, recordID int64) (*model.ConsentRecord, error) {
	rec, err := repo.ConsentByID(ctx, m.db, recordID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registo %d: %w", recordID, err)
	}
	return rec, nil
}

// UpdatePatientSignature grava a assinatura do paciente num registo
// existente, junto com o nome de quem assinou.
func (m *Manager) UpdatePatientSignature(ctx context.Context, recordID int64, png []byte, patientName string) error {
	return m.updateSignature(ctx, recordID, model.RolePatient, png, patientName)
}

// UpdatePractitionerSignature grava a assinatura do terapeuta num registo
// existente.
func (m *Manager) UpdatePractitionerSignature(ctx context.Context, recordID int64, png []byte, practitionerName string) error {
	return m.updateSignature(ctx, recordID, model.RolePractitioner, png, practitionerName)
}

func (m *Manager) updateSignature(ctx context.Context, recordID int64, role model.SignerRole, png []byte, signerName string) error {
	patientID, err := repo.ConsentPatientID(ctx, m.db, recordID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("registo %d: %w", recordID, err)
	}
	// Sem nome só muda o campo da assinatura; o nome já gravado fica.
	if signerName == "" {
		err = repo.UpdateSignatureSlot(ctx, m.db, recordID, role, png)
	} else {
		err = repo.UpdateDeclarationSlot(ctx, m.db, recordID, role, png, signerName)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("atualizar assinatura do registo %d: %w", recordID, err)
	}
	m.invalidate(patientID)
	m.audit(ctx, repo.AuditConsentSigned, &recordID, &patientID, signerName,
		map[string]any{"papel": string(role)})
	return nil
}

// SignaturesComplete indica que campos de assinatura do registo estão
// preenchidos. Usado para decidir se o PDF pode ser finalizado.
func (m *Manager) SignaturesComplete(ctx context.Context, recordID int64) (*model.SignatureCompletion, error) {
	row, err := repo.ConsentSignatureFlags(ctx, m.db, recordID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assinaturas do registo %d: %w", recordID, err)
	}
	return &model.SignatureCompletion{
		Patient:      row.Patient,
		Practitioner: row.Practitioner,
		Complete:     row.Patient && row.Practitioner,
	}, nil
}

// SaveDeclarationSignature é o fluxo criar-ou-atualizar das declarações:
// se já existe uma declaração (a mais recente por data_criacao, qualquer
// status), a assinatura entra nesse registo; senão nasce um registo novo só
// com essa assinatura, para o outro assinante preencher mais tarde.
func (m *Manager) SaveDeclarationSignature(ctx context.Context, patientID int64, docType string, role model.SignerRole, png []byte, signerName string) (int64, error) {
	if !role.Valid() {
		return 0, fmt.Errorf("papel de assinante desconhecido: %q", role)
	}
	if docType == "" {
		docType = model.DocDeclaracaoSaude
	}

	id, err := repo.LatestDeclarationID(ctx, m.db, patientID, docType)
	switch {
	case err == nil:
		if err := repo.UpdateDeclarationSlot(ctx, m.db, id, role, png, signerName); err != nil {
			return 0, fmt.Errorf("assinar declaração %d: %w", id, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := m.now().Format(model.TimeLayout)
		rec := &model.ConsentRecord{
			PatientID: patientID,
			Type:      docType,
			SignedAt:  now,
			CreatedAt: now,
			Status:    model.StatusSigned,
		}
		switch role {
		case model.RolePatient:
			rec.PatientSignature = png
			rec.PatientName = signerName
		case model.RolePractitioner:
			rec.PractitionerSignature = png
			rec.PractitionerName = signerName
		}
		id, err = repo.InsertConsent(ctx, m.db, rec)
		if err != nil {
			return 0, fmt.Errorf("criar declaração com assinatura: %w", err)
		}
	default:
		return 0, fmt.Errorf("declaração mais recente do paciente %d: %w", patientID, err)
	}

	m.invalidate(patientID)
	m.audit(ctx, repo.AuditDeclarationSigned, &id, &patientID, signerName,
		map[string]any{"tipo": docType, "papel": string(role)})
	return id, nil
}

// Void anula o consentimento ativo mais recente do tipo. Sem registo ativo
// devolve ErrNoActiveConsent e não muda nada; anular duas vezes falha de
// propósito.
func (m *Manager) Void(ctx context.Context, patientID int64, tipo, reason string) error {
	id, err := repo.LatestVoidableConsent(ctx, m.db, patientID, tipo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoActiveConsent
	}
	if err != nil {
		return fmt.Errorf("consentimento ativo de %s: %w", tipo, err)
	}
	voidedAt := m.now().Format(model.TimeLayout)
	if err := repo.VoidConsent(ctx, m.db, id, voidedAt, reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoActiveConsent
		}
		return fmt.Errorf("anular registo %d: %w", id, err)
	}
	m.invalidate(patientID)
	m.audit(ctx, repo.AuditConsentVoided, &id, &patientID, "",
		map[string]any{"tipo": tipo, "motivo": reason})
	m.log.WithFields(logrus.Fields{"paciente": patientID, "tipo": tipo, "id": id}).
		Info("consentimento anulado")
	return nil
}

// RecordForVoidPreview devolve a fotografia do registo não anulado mais
// recente do tipo, para gerar o comprovativo de anulação. ErrNotFound quando
// não há nada para anular.
func (m *Manager) RecordForVoidPreview(ctx context.Context, patientID int64, tipo string) (*model.VoidPreview, error) {
	rec, err := repo.LatestNonVoided(ctx, m.db, patientID, tipo)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pré-visualização de anulação de %s: %w", tipo, err)
	}
	return &model.VoidPreview{
		ID:               rec.ID,
		Type:             rec.Type,
		TypeLabel:        model.LabelFor(rec.Type),
		ContentHTML:      rec.ContentHTML,
		ContentText:      rec.ContentText,
		SignedAt:         rec.SignedAt,
		PatientName:      rec.PatientName,
		PractitionerName: rec.PractitionerName,
	}, nil
}

// PreviousDeclaration devolve a declaração mais recente do paciente por
// data_criacao, qualquer que seja o status, com as respostas do formulário.
func (m *Manager) PreviousDeclaration(ctx context.Context, patientID int64, docType string) (*model.PreviousDeclaration, error) {
	if docType == "" {
		docType = model.DocDeclaracaoSaude
	}
	row, err := repo.LatestDeclaration(ctx, m.db, patientID, docType)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("declaração anterior do paciente %d: %w", patientID, err)
	}
	return &model.PreviousDeclaration{
		ID:        row.ID,
		Status:    row.Status,
		SignedAt:  row.SignedAt,
		CreatedAt: row.CreatedAt,
		FormData:  row.FormData,
	}, nil
}

// MarkDeclarationSuperseded marca a declaração como substituída agora.
// data_assinatura fica intacta: é a chave de versão que liga o registo ao
// PDF arquivado.
func (m *Manager) MarkDeclarationSuperseded(ctx context.Context, recordID int64) error {
	patientID, err := repo.ConsentPatientID(ctx, m.db, recordID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("registo %d: %w", recordID, err)
	}
	supersededAt := m.now().Format(model.TimeLayout)
	if err := repo.MarkDeclarationSuperseded(ctx, m.db, recordID, supersededAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("marcar declaração %d como substituída: %w", recordID, err)
	}
	m.invalidate(patientID)
	m.audit(ctx, repo.AuditDeclarationSuperseded, &recordID, &patientID, "",
		map[string]any{"data_substituicao": supersededAt})
	return nil
}

// CreateDeclaration insere uma declaração nova com status pending_signature
// e sem assinaturas; devolve o id para as chamadas de assinatura seguintes.
// As declarações anteriores não são tocadas aqui.
func (m *Manager) CreateDeclaration(ctx context.Context, patientID int64, patientName, contentHTML, contentText string, formData *string) (int64, error) {
	now := m.now().Format(model.TimeLayout)
	rec := &model.ConsentRecord{
		PatientID:   patientID,
		Type:        model.DocDeclaracaoSaude,
		SignedAt:    now,
		CreatedAt:   now,
		ContentHTML: contentHTML,
		ContentText: contentText,
		PatientName: patientName,
		Status:      model.StatusPendingSignature,
		FormData:    formData,
	}
	id, err := repo.InsertConsent(ctx, m.db, rec)
	if err != nil {
		return 0, fmt.Errorf("criar declaração: %w", err)
	}
	m.invalidate(patientID)
	m.audit(ctx, repo.AuditDeclarationCreated, &id, &patientID, patientName, nil)
	return id, nil
}

// Signature devolve a assinatura não vazia mais recente do paciente para o
// tipo de documento e papel dados.
func (m *Manager) Signature(ctx context.Context, patientID int64, docType string, role model.SignerRole) ([]byte, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("papel de assinante desconhecido: %q", role)
	}
	blob, err := repo.LatestSignatureBlob(ctx, m.db, patientID, docType, role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("assinatura %s de %s: %w", role, docType, err)
	}
	return blob, nil
}

// NoteDocumentSaved regista na trilha de auditoria que um PDF do registo
// foi arquivado em disco.
func (m *Manager) NoteDocumentSaved(ctx context.Context, recordID, patientID int64, filename, sha256 string) {
	m.audit(ctx, repo.AuditDocumentSaved, &recordID, &patientID, "",
		map[string]any{"arquivo": filename, "sha256": sha256})
}

// AuditEvents lista a trilha de auditoria do paciente.
func (m *Manager) AuditEvents(ctx context.Context, patientID int64, limit int) ([]repo.AuditEvent, error) {
	events, err := repo.AuditEventsByPatient(ctx, m.db, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("auditoria do paciente %d: %w", patientID, err)
	}
	return events, nil
}
