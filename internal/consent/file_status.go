package consent

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/documents"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/repo"
)

// FileMatchToleranceSeconds é a margem entre o timestamp do nome do PDF e o
// data_assinatura do registo. Compensa a deriva entre a hora de escrita do
// ficheiro e a do insert na base de dados.
const FileMatchToleranceSeconds = 5

// DeclarationFileStatus responde "a declaração por trás deste PDF ainda é a
// que está em vigor?". Apenas a declaração mais recente conta; as antigas
// aparecem como alteradas, com a data em que deixaram de valer. A
// verificação nunca escreve.
func (m *Manager) DeclarationFileStatus(ctx context.Context, patientID int64, filename string) (*model.DeclarationFileState, error) {
	fileTS, ok := documents.ExtractTimestamp(filename)
	if !ok {
		return nil, ErrNoFileTimestamp
	}

	latest, err := repo.LatestActiveDeclaration(ctx, m.db, patientID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Sem declarações ativas registadas, o ficheiro é anterior ao
		// rastreio: conta como ativo.
		return &model.DeclarationFileState{Status: model.FileStatusActive}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("declaração ativa do paciente %d: %w", patientID, err)
	}

	matched, err := repo.DeclarationNearest(ctx, m.db, patientID, fileTS, FileMatchToleranceSeconds)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoMatchingRecord
	}
	if err != nil {
		return nil, fmt.Errorf("registo do ficheiro %q: %w", filename, err)
	}

	if matched.ID == latest.ID {
		return &model.DeclarationFileState{Status: model.FileStatusActive}, nil
	}

	// O marcador explícito é a fonte de verdade; na sua ausência, a data da
	// declaração mais recente diz quando esta deixou de valer.
	changedAt := latest.SignedAt
	if matched.SupersededAt != nil && *matched.SupersededAt != "" {
		changedAt = *matched.SupersededAt
	}
	return &model.DeclarationFileState{
		Status:    model.FileStatusSuperseded,
		ChangedAt: &changedAt,
	}, nil
}
