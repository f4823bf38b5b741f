package repo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

const consentColumns = `id, paciente_id, tipo_consentimento, data_assinatura, data_criacao,
	conteudo_html, conteudo_texto, assinatura_paciente, assinatura_terapeuta,
	nome_paciente, nome_terapeuta, status, data_anulacao, motivo_anulacao,
	data_substituicao, dados_formulario`

// InsertConsent insere um registo completo e devolve o id gerado.
func InsertConsent(ctx context.Context, db *gorm.DB, r *model.ConsentRecord) (int64, error) {
	var res struct{ ID int64 }
	err := db.WithContext(ctx).Raw(`
		INSERT INTO consentimentos (
			paciente_id, tipo_consentimento, data_assinatura, data_criacao,
			conteudo_html, conteudo_texto, assinatura_paciente, assinatura_terapeuta,
			nome_paciente, nome_terapeuta, status, dados_formulario
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`, r.PatientID, r.Type, r.SignedAt, r.CreatedAt,
		r.ContentHTML, r.ContentText, r.PatientSignature, r.PractitionerSignature,
		r.PatientName, r.PractitionerName, r.Status, r.FormData).Scan(&res).Error
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

// ConsentByID devolve o registo completo, incluindo as assinaturas.
func ConsentByID(ctx context.Context, db *gorm.DB, id int64) (*model.ConsentRecord, error) {
	var c model.ConsentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT `+consentColumns+` FROM consentimentos WHERE id = ?`, id).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

// ConsentPatientID devolve o paciente dono do registo.
func ConsentPatientID(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var row struct {
		ID        int64
		PatientID int64 `gorm:"column:paciente_id"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, paciente_id FROM consentimentos WHERE id = ?`, id).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return row.PatientID, nil
}

// StatusRow é a projeção mínima para o resumo de estado por tipo.
type StatusRow struct {
	ID       int64
	Status   string
	SignedAt string  `gorm:"column:data_assinatura"`
	VoidedAt *string `gorm:"column:data_anulacao"`
}

// LatestStatusForType devolve o registo mais recente do tipo, por
// data_assinatura, seja qual for o status.
func LatestStatusForType(ctx context.Context, db *gorm.DB, patientID int64, tipo string) (*StatusRow, error) {
	var row StatusRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, status, data_assinatura, data_anulacao
		FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ?
		ORDER BY data_assinatura DESC, id DESC LIMIT 1
	`, patientID, tipo).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// HistoryRow é uma linha do histórico; as assinaturas vêm como flags para
// não arrastar os blobs.
type HistoryRow struct {
	ID                 int64
	Type               string `gorm:"column:tipo_consentimento"`
	SignedAt           string `gorm:"column:data_assinatura"`
	Status             string
	PatientName        string `gorm:"column:nome_paciente"`
	PractitionerName   string `gorm:"column:nome_terapeuta"`
	HasPatientSig      bool   `gorm:"column:tem_assinatura_paciente"`
	HasPractitionerSig bool   `gorm:"column:tem_assinatura_terapeuta"`
}

// ConsentHistory devolve todos os registos do paciente, mais recentes
// primeiro.
func ConsentHistory(ctx context.Context, db *gorm.DB, patientID int64) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, tipo_consentimento, data_assinatura, status, nome_paciente, nome_terapeuta,
		       CASE WHEN assinatura_paciente IS NOT NULL AND length(assinatura_paciente) > 0 THEN 1 ELSE 0 END AS tem_assinatura_paciente,
		       CASE WHEN assinatura_terapeuta IS NOT NULL AND length(assinatura_terapeuta) > 0 THEN 1 ELSE 0 END AS tem_assinatura_terapeuta
		FROM consentimentos
		WHERE paciente_id = ?
		ORDER BY data_assinatura DESC, id DESC
	`, patientID).Scan(&rows).Error
	return rows, err
}

func signatureColumn(role model.SignerRole) (string, string, error) {
	switch role {
	case model.RolePatient:
		return "assinatura_paciente", "nome_paciente", nil
	case model.RolePractitioner:
		return "assinatura_terapeuta", "nome_terapeuta", nil
	}
	return "", "", fmt.Errorf("papel de assinante desconhecido: %q", role)
}

// UpdateSignatureSlot grava um dos campos de assinatura de um registo
// existente. Devolve gorm.ErrRecordNotFound quando o id não existe.
func UpdateSignatureSlot(ctx context.Context, db *gorm.DB, id int64, role model.SignerRole, png []byte) error {
	col, _, err := signatureColumn(role)
	if err != nil {
		return err
	}
	result := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE consentimentos SET %s = ? WHERE id = ?`, col), png, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateDeclarationSlot grava a assinatura e o nome do assinante na
// declaração indicada.
func UpdateDeclarationSlot(ctx context.Context, db *gorm.DB, id int64, role model.SignerRole, png []byte, signerName string) error {
	col, nameCol, err := signatureColumn(role)
	if err != nil {
		return err
	}
	result := db.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE consentimentos SET %s = ?, %s = ? WHERE id = ?`, col, nameCol),
		png, signerName, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SignatureFlagsRow indica que campos de assinatura estão preenchidos.
type SignatureFlagsRow struct {
	ID           int64
	Patient      bool `gorm:"column:tem_paciente"`
	Practitioner bool `gorm:"column:tem_terapeuta"`
}

func ConsentSignatureFlags(ctx context.Context, db *gorm.DB, id int64) (*SignatureFlagsRow, error) {
	var row SignatureFlagsRow
	err := db.WithContext(ctx).Raw(`
		SELECT id,
		       CASE WHEN assinatura_paciente IS NOT NULL AND length(assinatura_paciente) > 0 THEN 1 ELSE 0 END AS tem_paciente,
		       CASE WHEN assinatura_terapeuta IS NOT NULL AND length(assinatura_terapeuta) > 0 THEN 1 ELSE 0 END AS tem_terapeuta
		FROM consentimentos WHERE id = ?
	`, id).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// LatestDeclarationID devolve o id da declaração mais recente do paciente
// por data_criacao, seja qual for o status. É o alvo do fluxo
// criar-ou-atualizar de assinatura de declarações.
func LatestDeclarationID(ctx context.Context, db *gorm.DB, patientID int64, docType string) (int64, error) {
	var row struct{ ID int64 }
	err := db.WithContext(ctx).Raw(`
		SELECT id FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ?
		ORDER BY data_criacao DESC, id DESC LIMIT 1
	`, patientID, docType).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return row.ID, nil
}

// DeclarationRow é a projeção sem blobs usada para declarações.
type DeclarationRow struct {
	ID           int64
	Status       string
	SignedAt     string  `gorm:"column:data_assinatura"`
	CreatedAt    string  `gorm:"column:data_criacao"`
	SupersededAt *string `gorm:"column:data_substituicao"`
	FormData     *string `gorm:"column:dados_formulario"`
}

// LatestDeclaration devolve a declaração mais recente por data_criacao,
// seja qual for o status.
func LatestDeclaration(ctx context.Context, db *gorm.DB, patientID int64, docType string) (*DeclarationRow, error) {
	var row DeclarationRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, status, data_assinatura, data_criacao, data_substituicao, dados_formulario
		FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ?
		ORDER BY data_criacao DESC, id DESC LIMIT 1
	`, patientID, docType).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// LatestActiveDeclaration devolve a declaração ativa mais recente por
// data_assinatura. Ativa = assinada ou pendente; anuladas e substituídas
// ficam de fora.
func LatestActiveDeclaration(ctx context.Context, db *gorm.DB, patientID int64) (*DeclarationRow, error) {
	var row DeclarationRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, status, data_assinatura, data_criacao, data_substituicao, dados_formulario
		FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ?
		  AND status IN (?, ?)
		ORDER BY data_assinatura DESC, id DESC LIMIT 1
	`, patientID, model.DocDeclaracaoSaude, model.StatusSigned, model.StatusPendingSignature).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// DeclarationNearest encontra a declaração cuja data_assinatura está a
// menos de tolSeconds do timestamp dado, escolhendo a mais próxima.
func DeclarationNearest(ctx context.Context, db *gorm.DB, patientID int64, ts string, tolSeconds int) (*DeclarationRow, error) {
	var row DeclarationRow
	err := db.WithContext(ctx).Raw(`
		SELECT id, status, data_assinatura, data_criacao, data_substituicao, dados_formulario
		FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ?
		  AND data_assinatura IS NOT NULL
		  AND ABS(strftime('%s', data_assinatura) - strftime('%s', ?)) <= ?
		ORDER BY ABS(strftime('%s', data_assinatura) - strftime('%s', ?)) ASC, id DESC
		LIMIT 1
	`, patientID, model.DocDeclaracaoSaude, ts, tolSeconds, ts).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

// MarkDeclarationSuperseded marca a declaração como substituída no instante
// dado. data_assinatura não é tocada: é a chave de versão do registo.
func MarkDeclarationSuperseded(ctx context.Context, db *gorm.DB, id int64, supersededAt string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE consentimentos SET status = ?, data_substituicao = ? WHERE id = ?
	`, model.StatusSuperseded, supersededAt, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LatestVoidableConsent devolve o id do registo mais recente do tipo que
// ainda não foi anulado.
func LatestVoidableConsent(ctx context.Context, db *gorm.DB, patientID int64, tipo string) (int64, error) {
	var row struct{ ID int64 }
	err := db.WithContext(ctx).Raw(`
		SELECT id FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ? AND status != ?
		ORDER BY data_assinatura DESC, id DESC LIMIT 1
	`, patientID, tipo, model.StatusVoided).Scan(&row).Error
	if err != nil {
		return 0, err
	}
	if row.ID == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return row.ID, nil
}

// VoidConsent anula o registo indicado. A guarda no status evita anular o
// mesmo registo duas vezes em corrida.
func VoidConsent(ctx context.Context, db *gorm.DB, id int64, voidedAt, reason string) error {
	result := db.WithContext(ctx).Exec(`
		UPDATE consentimentos SET status = ?, data_anulacao = ?, motivo_anulacao = ?
		WHERE id = ? AND status != ?
	`, model.StatusVoided, voidedAt, reason, id, model.StatusVoided)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LatestNonVoided devolve o registo não anulado mais recente do tipo, por
// data_criacao, sem os blobs (pré-visualização da anulação).
func LatestNonVoided(ctx context.Context, db *gorm.DB, patientID int64, tipo string) (*model.ConsentRecord, error) {
	var c model.ConsentRecord
	err := db.WithContext(ctx).Raw(`
		SELECT id, paciente_id, tipo_consentimento, data_assinatura, data_criacao,
		       conteudo_html, conteudo_texto, nome_paciente, nome_terapeuta, status
		FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ? AND status != ?
		ORDER BY data_criacao DESC, id DESC LIMIT 1
	`, patientID, tipo, model.StatusVoided).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

// LatestSignatureBlob devolve a assinatura não vazia mais recente do
// paciente para o tipo de documento e papel dados.
func LatestSignatureBlob(ctx context.Context, db *gorm.DB, patientID int64, docType string, role model.SignerRole) ([]byte, error) {
	col, _, err := signatureColumn(role)
	if err != nil {
		return nil, err
	}
	var row struct {
		ID   int64
		Blob []byte `gorm:"column:assinatura"`
	}
	err = db.WithContext(ctx).Raw(fmt.Sprintf(`
		SELECT id, %s AS assinatura FROM consentimentos
		WHERE paciente_id = ? AND tipo_consentimento = ? AND %s IS NOT NULL AND length(%s) > 0
		ORDER BY data_assinatura DESC, id DESC LIMIT 1
	`, col, col, col), patientID, docType).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return row.Blob, nil
}
