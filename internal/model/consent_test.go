package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "18/08/2025", FormatDate("2025-08-18 22:26:29"))
	assert.Equal(t, "", FormatDate(""))
	assert.Equal(t, "não é data", FormatDate("não é data"))
}

func TestFormatDateTime(t *testing.T) {
	assert.Equal(t, "18/08/2025 às 22:26", FormatDateTime("2025-08-18 22:26:29"))
	assert.Equal(t, "lixo", FormatDateTime("lixo"))
}

func TestParseTimeRoundTrip(t *testing.T) {
	ts, ok := ParseTime("2025-08-18 22:26:29")
	require.True(t, ok)
	assert.Equal(t, "2025-08-18 22:26:29", ts.Format(TimeLayout))
	assert.Equal(t, "20250818_222629", ts.Format(FileTimestampLayout))

	_, ok = ParseTime("18/08/2025")
	assert.False(t, ok)
}

func TestConsentTypeVocabulary(t *testing.T) {
	types := ConsentTypes()
	require.Len(t, types, 6)
	assert.Equal(t, TypeNaturopatia, types[0])
	assert.Equal(t, TypeRGPD, types[5])

	for _, tipo := range types {
		assert.True(t, KnownConsentType(tipo), tipo)
		assert.True(t, KnownDocumentType(tipo), tipo)
	}
	assert.False(t, KnownConsentType(DocDeclaracaoSaude))
	assert.True(t, KnownDocumentType(DocDeclaracaoSaude))
	assert.True(t, KnownDocumentType(DocTermoMedicamentos))
	assert.False(t, KnownDocumentType("reiki"))
}

func TestLabelFor(t *testing.T) {
	assert.Equal(t, "Medicina Quântica", LabelFor(TypeQuantica))
	assert.Equal(t, "Declaração de Saúde", LabelFor(DocDeclaracaoSaude))
	assert.Equal(t, "outro_tipo", LabelFor("outro_tipo"))
}

func TestSignerRoleValid(t *testing.T) {
	assert.True(t, RolePatient.Valid())
	assert.True(t, RolePractitioner.Valid())
	assert.False(t, SignerRole("gerente").Valid())
	assert.False(t, SignerRole("").Valid())
}
