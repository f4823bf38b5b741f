// Package documents implementa o contrato de ficheiros partilhado com a
// aplicação desktop: a árvore Documentos_Pacientes/<id>_<nome>/ e os nomes
// de ficheiro com timestamp embebido (YYYYMMDD_HHMMSS), que é a chave usada
// para reencontrar o registo de origem na base de dados.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/crypto"
	"github.com/NunoCorreia78/Biodesk-sub000/internal/model"
)

const (
	ConsentsSubdir     = "Consentimentos"
	DeclarationsSubdir = "declaracoes_saude"
)

var fileTimestampRe = regexp.MustCompile(`(\d{8}_\d{6})`)

// ExtractTimestamp procura o timestamp embebido no nome do ficheiro e
// devolve-o já no formato de armazenamento ("2006-01-02 15:04:05").
// ok é false quando o nome não tem timestamp ou o timestamp não é uma data.
func ExtractTimestamp(filename string) (string, bool) {
	m := fileTimestampRe.FindString(filepath.Base(filename))
	if m == "" {
		return "", false
	}
	t, err := time.ParseInLocation(model.FileTimestampLayout, m, time.Local)
	if err != nil {
		return "", false
	}
	return t.Format(model.TimeLayout), true
}

// SanitizeName prepara o nome do paciente para uso em caminhos: espaços
// passam a underscores e separadores de caminho são removidos.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	for _, bad := range []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"} {
		name = strings.ReplaceAll(name, bad, "")
	}
	return name
}

// ConsentFilename devolve consentimento_<tipo>_<YYYYMMDD_HHMMSS>.pdf.
func ConsentFilename(tipo string, t time.Time) string {
	return fmt.Sprintf("consentimento_%s_%s.pdf", tipo, t.Format(model.FileTimestampLayout))
}

// DeclarationFilename devolve declaracao_saude_<YYYYMMDD_HHMMSS>.pdf.
func DeclarationFilename(t time.Time) string {
	return fmt.Sprintf("declaracao_saude_%s.pdf", t.Format(model.FileTimestampLayout))
}

// VoidCertificateFilename devolve anulacao_<tipo>_<YYYYMMDD_HHMMSS>.pdf,
// com o timestamp da anulação.
func VoidCertificateFilename(tipo string, t time.Time) string {
	return fmt.Sprintf("anulacao_%s_%s.pdf", tipo, t.Format(model.FileTimestampLayout))
}

// Store é o arquivo de documentos em disco, enraizado na pasta partilhada
// com o desktop.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// PatientDir devolve a pasta do paciente: <root>/<id>_<nome_sanitizado>.
func (s *Store) PatientDir(patientID int64, patientName string) string {
	return filepath.Join(s.root, fmt.Sprintf("%d_%s", patientID, SanitizeName(patientName)))
}

// Saved descreve um documento acabado de arquivar.
type Saved struct {
	Path   string `json:"caminho"`
	Name   string `json:"arquivo"`
	SHA256 string `json:"sha256"`
}

// Save grava data em <pasta do paciente>/<subdir>/<filename>, criando as
// pastas que faltarem, e devolve o caminho e o SHA-256 do conteúdo.
func (s *Store) Save(patientID int64, patientName, subdir, filename string, data []byte) (*Saved, error) {
	if filepath.Base(filename) != filename || filename == "" || filename == "." {
		return nil, fmt.Errorf("nome de ficheiro inválido: %q", filename)
	}
	dir := filepath.Join(s.PatientDir(patientID, patientName), subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("criar pasta %s: %w", dir, err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("gravar %s: %w", path, err)
	}
	return &Saved{Path: path, Name: filename, SHA256: crypto.SHA256Hex(data)}, nil
}

// Entry é um documento arquivado, como aparece na listagem.
type Entry struct {
	Name       string `json:"arquivo"`
	Subdir     string `json:"pasta"`
	Size       int64  `json:"tamanho"`
	ModifiedAt string `json:"modificado_em"`
}

// List enumera os documentos arquivados do paciente, por subpasta. Uma
// pasta inexistente devolve lista vazia: o paciente ainda não tem arquivo.
func (s *Store) List(patientID int64, patientName string) ([]Entry, error) {
	base := s.PatientDir(patientID, patientName)
	var out []Entry
	for _, subdir := range []string{ConsentsSubdir, DeclarationsSubdir} {
		dir := filepath.Join(base, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("listar %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Entry{
				Name:       e.Name(),
				Subdir:     subdir,
				Size:       info.Size(),
				ModifiedAt: info.ModTime().Format(model.TimeLayout),
			})
		}
	}
	return out, nil
}
