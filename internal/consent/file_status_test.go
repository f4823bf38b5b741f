package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

// declarationAt insere uma declaração assinada com data_assinatura no
// instante dado.
func declarationAt(t *testing.T, m *Manager, clock *fakeClock, patientID int64, at time.Time) int64 {
	t.Helper()
	clock.t = at
	id, err := m.SaveConsent(context.Background(), SaveConsentInput{
		PatientID: patientID,
		Type:      model.DocDeclaracaoSaude,
	})
	require.NoError(t, err)
	return id
}

func TestFileStatusNoTimestampInFilename(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.DeclarationFileStatus(context.Background(), 1, "declaracao_saude.pdf")
	assert.ErrorIs(t, err, ErrNoFileTimestamp)
}

func TestFileStatusWithoutAnyDeclaration(t *testing.T) {
	m, _ := newTestManager(t)
	// Ficheiro anterior ao rastreio: conta como ativo.
	state, err := m.DeclarationFileStatus(context.Background(), 1, "declaracao_saude_20250818_222629.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusActive, state.Status)
	assert.Nil(t, state.ChangedAt)
}

func TestFileStatusActiveVersusSuperseded(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	t1 := time.Date(2025, 8, 10, 10, 0, 0, 0, time.Local)
	t2 := time.Date(2025, 8, 18, 22, 26, 29, 0, time.Local)
	declarationAt(t, m, clock, 42, t1)
	declarationAt(t, m, clock, 42, t2)

	// PDF da declaração antiga: alterada, substituída pela mais recente.
	state, err := m.DeclarationFileStatus(ctx, 42, "declaracao_saude_20250810_100000.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusSuperseded, state.Status)
	require.NotNil(t, state.ChangedAt)
	assert.Equal(t, "2025-08-18 22:26:29", *state.ChangedAt)

	// PDF da mais recente: ativa, sem data de alteração.
	state, err = m.DeclarationFileStatus(ctx, 42, "declaracao_saude_20250818_222629.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusActive, state.Status)
	assert.Nil(t, state.ChangedAt)
}

func TestFileStatusToleranceWindow(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	t1 := time.Date(2025, 8, 10, 10, 0, 0, 0, time.Local)
	t2 := time.Date(2025, 8, 18, 22, 26, 29, 0, time.Local)
	declarationAt(t, m, clock, 7, t1)
	declarationAt(t, m, clock, 7, t2)

	// 4 segundos de deriva entre ficheiro e registo: dentro da margem.
	state, err := m.DeclarationFileStatus(ctx, 7, "declaracao_saude_20250810_100004.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusSuperseded, state.Status)

	// A mesma deriva sobre a mais recente resolve para ativa.
	state, err = m.DeclarationFileStatus(ctx, 7, "declaracao_saude_20250818_222625.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusActive, state.Status)

	// Fora da margem de 5 segundos: o ficheiro não resolve.
	_, err = m.DeclarationFileStatus(ctx, 7, "declaracao_saude_20250810_100006.pdf")
	assert.ErrorIs(t, err, ErrNoMatchingRecord)
}

func TestFileStatusPrefersExplicitMarker(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	t1 := time.Date(2025, 8, 10, 10, 0, 0, 0, time.Local)
	t2 := time.Date(2025, 8, 18, 22, 26, 29, 0, time.Local)
	old := declarationAt(t, m, clock, 9, t1)
	declarationAt(t, m, clock, 9, t2)

	// Marcação explícita num instante próprio: é essa a data reportada, não
	// a data_assinatura da mais recente.
	clock.t = time.Date(2025, 8, 12, 9, 30, 0, 0, time.Local)
	require.NoError(t, m.MarkDeclarationSuperseded(ctx, old))

	state, err := m.DeclarationFileStatus(ctx, 9, "declaracao_saude_20250810_100000.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusSuperseded, state.Status)
	require.NotNil(t, state.ChangedAt)
	assert.Equal(t, "2025-08-12 09:30:00", *state.ChangedAt)
}

func TestFileStatusIgnoresVoidedWhenPickingLatest(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	t1 := time.Date(2025, 8, 10, 10, 0, 0, 0, time.Local)
	t2 := time.Date(2025, 8, 18, 22, 26, 29, 0, time.Local)
	declarationAt(t, m, clock, 13, t1)
	declarationAt(t, m, clock, 13, t2)

	// Anular a mais recente devolve a antiga ao estado ativo.
	clock.advance(time.Hour)
	require.NoError(t, m.Void(ctx, 13, model.DocDeclaracaoSaude, "dados errados"))

	state, err := m.DeclarationFileStatus(ctx, 13, "declaracao_saude_20250810_100000.pdf")
	require.NoError(t, err)
	assert.Equal(t, model.FileStatusActive, state.Status)
}
