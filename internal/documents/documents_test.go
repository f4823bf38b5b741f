package documents

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTimestamp(t *testing.T) {
	ts, ok := ExtractTimestamp("declaracao_saude_20250818_222629.pdf")
	require.True(t, ok)
	assert.Equal(t, "2025-08-18 22:26:29", ts)

	// O timestamp é encontrado em qualquer posição do nome.
	ts, ok = ExtractTimestamp("/tmp/qualquer/Declaracao_Saude_20240101_000000.pdf")
	require.True(t, ok)
	assert.Equal(t, "2024-01-01 00:00:00", ts)

	_, ok = ExtractTimestamp("declaracao_saude.pdf")
	assert.False(t, ok)

	// Dígitos com a forma certa mas que não são uma data não resolvem.
	_, ok = ExtractTimestamp("doc_99999999_999999.pdf")
	assert.False(t, ok)
}

func TestFilenameRoundTrip(t *testing.T) {
	when := time.Date(2025, 8, 18, 22, 26, 29, 0, time.Local)

	name := DeclarationFilename(when)
	assert.Equal(t, "declaracao_saude_20250818_222629.pdf", name)
	ts, ok := ExtractTimestamp(name)
	require.True(t, ok)
	assert.Equal(t, "2025-08-18 22:26:29", ts)

	name = ConsentFilename("rgpd", when)
	assert.Equal(t, "consentimento_rgpd_20250818_222629.pdf", name)
	_, ok = ExtractTimestamp(name)
	assert.True(t, ok)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Maria_Silva", SanitizeName("Maria Silva"))
	assert.Equal(t, "Maria_Silva", SanitizeName("  Maria Silva  "))
	assert.Equal(t, "etcpasswd", SanitizeName("../etc/passwd"))
}

func TestSaveAndList(t *testing.T) {
	s := NewStore(t.TempDir())

	saved, err := s.Save(42, "Maria Silva", DeclarationsSubdir, "declaracao_saude_20250818_222629.pdf", []byte("%PDF-1.4 conteudo"))
	require.NoError(t, err)
	assert.FileExists(t, saved.Path)
	assert.Len(t, saved.SHA256, 64)
	assert.Contains(t, saved.Path, filepath.Join("42_Maria_Silva", DeclarationsSubdir))

	data, err := os.ReadFile(saved.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 conteudo"), data)

	_, err = s.Save(42, "Maria Silva", ConsentsSubdir, "consentimento_rgpd_20250818_222629.pdf", []byte("%PDF-1.4 x"))
	require.NoError(t, err)

	entries, err := s.List(42, "Maria Silva")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ConsentsSubdir, entries[0].Subdir)
	assert.Equal(t, DeclarationsSubdir, entries[1].Subdir)

	// Paciente sem pasta: lista vazia, sem erro.
	entries, err = s.List(99, "Sem Arquivo")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveRejectsPathTraversal(t *testing.T) {
	s := NewStore(t.TempDir())
	_, err := s.Save(42, "Maria Silva", ConsentsSubdir, "../fora.pdf", []byte("x"))
	assert.Error(t, err)
}
