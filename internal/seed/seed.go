package seed

import (
	"context"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

// Run insere dados de demonstração no pacientes.db. Idempotente: se já
// existirem consentimentos não faz nada, para poder correr em cada arranque.
func Run(ctx context.Context, db *gorm.DB, log *logrus.Entry) error {
	var n int
	if err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM consentimentos").Scan(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		log.WithField("registos", n).Debug("consentimentos existentes, seed ignorado")
		return nil
	}

	// Paciente 1: Maria Silva, com consentimentos assinados, um anulado e
	// uma declaração de saúde em vigor.
	rows := []struct {
		patientID int64
		tipo      string
		status    string
		assinado  string
		criado    string
		anulado   string
		motivo    string
		nome      string
	}{
		{1, model.TypeNaturopatia, model.StatusSigned,
			"2025-06-10 10:15:00", "2025-06-10 10:15:00", "", "", "Maria Silva"},
		{1, model.TypeRGPD, model.StatusSigned,
			"2025-06-10 10:20:00", "2025-06-10 10:20:00", "", "", "Maria Silva"},
		{1, model.TypeMesoterapia, model.StatusVoided,
			"2025-04-02 09:00:00", "2025-04-02 09:00:00",
			"2025-07-01 16:30:00", "Tratamento descontinuado", "Maria Silva"},
		{1, model.DocDeclaracaoSaude, model.StatusSigned,
			"2025-08-18 22:26:29", "2025-08-18 22:26:29", "", "", "Maria Silva"},
		// Paciente 2: João Santos, só osteopatia.
		{2, model.TypeOsteopatia, model.StatusSigned,
			"2025-07-15 11:45:00", "2025-07-15 11:45:00", "", "", "João Santos"},
	}
	for _, row := range rows {
		err := db.WithContext(ctx).Exec(`
			INSERT INTO consentimentos
				(paciente_id, tipo_consentimento, data_assinatura, conteudo_texto,
				 nome_paciente, nome_terapeuta, status, data_criacao,
				 data_anulacao, motivo_anulacao)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))
		`, row.patientID, row.tipo, row.assinado,
			"Consentimento informado de "+model.LabelFor(row.tipo)+" (demonstração).",
			row.nome, "Nuno Correia", row.status, row.criado,
			row.anulado, row.motivo).Error
		if err != nil {
			return err
		}
	}
	log.WithField("registos", len(rows)).Info("dados de demonstração inseridos")
	return nil
}
