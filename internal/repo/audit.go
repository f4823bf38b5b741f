package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditEvent é um registo imutável na trilha de auditoria. detalhes guarda
// o contexto do evento como JSON livre.
type AuditEvent struct {
	ID         string  `gorm:"column:id" json:"id"`
	OccurredAt string  `gorm:"column:ocorrido_em" json:"ocorrido_em"`
	Action     string  `gorm:"column:acao" json:"acao"`
	ConsentID  *int64  `gorm:"column:consentimento_id" json:"consentimento_id,omitempty"`
	PatientID  *int64  `gorm:"column:paciente_id" json:"paciente_id,omitempty"`
	Actor      string  `gorm:"column:ator" json:"ator"`
	Details    *string `gorm:"column:detalhes" json:"detalhes,omitempty"`
}

// Ações registadas na trilha de auditoria.
const (
	AuditConsentCreated        = "consentimento_criado"
	AuditConsentSigned         = "consentimento_assinado"
	AuditConsentVoided         = "consentimento_anulado"
	AuditDeclarationCreated    = "declaracao_criada"
	AuditDeclarationSigned     = "declaracao_assinada"
	AuditDeclarationSuperseded = "declaracao_substituida"
	AuditDocumentSaved         = "documento_gravado"
)

// CreateAuditEvent grava um evento. metadata, quando presente, é
// serializado para a coluna detalhes.
func CreateAuditEvent(ctx context.Context, db *gorm.DB, occurredAt, action string, consentID, patientID *int64, actor string, metadata map[string]any) (string, error) {
	id := uuid.NewString()
	var details *string
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return "", err
		}
		s := string(raw)
		details = &s
	}
	err := db.WithContext(ctx).Exec(`
		INSERT INTO eventos_auditoria (id, ocorrido_em, acao, consentimento_id, paciente_id, ator, detalhes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, occurredAt, action, consentID, patientID, actor, details).Error
	if err != nil {
		return "", err
	}
	return id, nil
}

// AuditEventsByPatient devolve os eventos do paciente, mais recentes
// primeiro, até ao limite dado.
func AuditEventsByPatient(ctx context.Context, db *gorm.DB, patientID int64, limit int) ([]AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var events []AuditEvent
	err := db.WithContext(ctx).Raw(`
		SELECT id, ocorrido_em, acao, consentimento_id, paciente_id, ator, detalhes
		FROM eventos_auditoria
		WHERE paciente_id = ?
		ORDER BY ocorrido_em DESC, id DESC
		LIMIT ?
	`, patientID, limit).Scan(&events).Error
	return events, err
}
