package model

import "time"

// Layouts de data usados em todo o serviço. O armazenamento segue o formato
// herdado do Biodesk desktop: texto "YYYY-MM-DD HH:MM:SS" no SQLite.
const (
	TimeLayout          = "2006-01-02 15:04:05"
	DateDisplayLayout   = "02/01/2006"
	DateTimeDisplay     = "02/01/2006 às 15:04"
	FileTimestampLayout = "20060102_150405"
)

// Estados de um registo de consentimento. O instante de substituição vive em
// data_substituicao; o status nunca carrega timestamps embutidos.
const (
	StatusSigned           = "signed"
	StatusVoided           = "voided"
	StatusPendingSignature = "pending_signature"
	StatusSuperseded       = "superseded"
)

// Estado agregado por tipo, como aparece na ficha do paciente.
const (
	SummarySigned    = "signed"
	SummaryVoided    = "voided"
	SummaryNotSigned = "not_signed"
)

// Estado de uma declaração verificada a partir do nome do ficheiro PDF
// arquivado. "desconhecido" é usado na resposta pública quando o nome não
// resolve para nenhum registo.
const (
	FileStatusActive     = "ativa"
	FileStatusSuperseded = "alterada"
	FileStatusUnknown    = "desconhecido"
)

// Tipos de consentimento e de documento reconhecidos.
const (
	TypeNaturopatia = "naturopatia"
	TypeOsteopatia  = "osteopatia"
	TypeIridologia  = "iridologia"
	TypeQuantica    = "quantica"
	TypeMesoterapia = "mesoterapia"
	TypeRGPD        = "rgpd"

	DocDeclaracaoSaude   = "declaracao_saude"
	DocTermoMedicamentos = "termo_medicamentos"
)

var consentTypes = []string{
	TypeNaturopatia,
	TypeOsteopatia,
	TypeIridologia,
	TypeQuantica,
	TypeMesoterapia,
	TypeRGPD,
}

var typeLabels = map[string]string{
	TypeNaturopatia:      "Naturopatia",
	TypeOsteopatia:       "Osteopatia",
	TypeIridologia:       "Iridologia",
	TypeQuantica:         "Medicina Quântica",
	TypeMesoterapia:      "Mesoterapia",
	TypeRGPD:             "RGPD",
	DocDeclaracaoSaude:   "Declaração de Saúde",
	DocTermoMedicamentos: "Termo de Medicamentos",
}

// ConsentTypes devolve os tipos de consentimento na ordem em que aparecem na
// ficha do paciente.
func ConsentTypes() []string {
	out := make([]string, len(consentTypes))
	copy(out, consentTypes)
	return out
}

// LabelFor devolve o nome de exibição do tipo; tipos desconhecidos passam
// sem tradução.
func LabelFor(tipo string) string {
	if l, ok := typeLabels[tipo]; ok {
		return l
	}
	return tipo
}

// KnownConsentType indica se tipo é um dos seis consentimentos da ficha.
func KnownConsentType(tipo string) bool {
	for _, t := range consentTypes {
		if t == tipo {
			return true
		}
	}
	return false
}

// KnownDocumentType aceita consentimentos e também os tipos de documento
// (declaração de saúde, termo de medicamentos).
func KnownDocumentType(tipo string) bool {
	if KnownConsentType(tipo) {
		return true
	}
	return tipo == DocDeclaracaoSaude || tipo == DocTermoMedicamentos
}

// SignerRole identifica o dono de um campo de assinatura.
type SignerRole string

const (
	RolePatient      SignerRole = "paciente"
	RolePractitioner SignerRole = "terapeuta"
)

func (r SignerRole) Valid() bool {
	return r == RolePatient || r == RolePractitioner
}

// ConsentRecord é uma linha da tabela consentimentos. Os nomes de coluna são
// os do esquema legado partilhado com a aplicação desktop; apenas status,
// assinaturas, nomes e os campos de anulação/substituição mudam depois do
// insert, o resto é fotografia imutável.
type ConsentRecord struct {
	ID                    int64   `gorm:"column:id;primaryKey" json:"id"`
	PatientID             int64   `gorm:"column:paciente_id" json:"paciente_id"`
	Type                  string  `gorm:"column:tipo_consentimento" json:"tipo"`
	SignedAt              string  `gorm:"column:data_assinatura" json:"data_assinatura"`
	CreatedAt             string  `gorm:"column:data_criacao" json:"data_criacao"`
	ContentHTML           string  `gorm:"column:conteudo_html" json:"conteudo_html"`
	ContentText           string  `gorm:"column:conteudo_texto" json:"conteudo_texto"`
	PatientSignature      []byte  `gorm:"column:assinatura_paciente" json:"assinatura_paciente,omitempty"`
	PractitionerSignature []byte  `gorm:"column:assinatura_terapeuta" json:"assinatura_terapeuta,omitempty"`
	PatientName           string  `gorm:"column:nome_paciente" json:"nome_paciente"`
	PractitionerName      string  `gorm:"column:nome_terapeuta" json:"nome_terapeuta"`
	Status                string  `gorm:"column:status" json:"status"`
	VoidedAt              *string `gorm:"column:data_anulacao" json:"data_anulacao,omitempty"`
	VoidReason            *string `gorm:"column:motivo_anulacao" json:"motivo_anulacao,omitempty"`
	SupersededAt          *string `gorm:"column:data_substituicao" json:"data_substituicao,omitempty"`
	FormData              *string `gorm:"column:dados_formulario" json:"dados_formulario,omitempty"`
}

func (ConsentRecord) TableName() string { return "consentimentos" }

// TypeStatus é o estado de um tipo de consentimento no resumo da ficha.
type TypeStatus struct {
	Status     string  `json:"status"`
	Date       *string `json:"data"`
	VoidedDate *string `json:"data_anulacao,omitempty"`
}

// StatusSummary mapeia tipo de consentimento -> estado.
type StatusSummary map[string]TypeStatus

// HistoryEntry é uma linha do histórico, já formatada para exibição.
type HistoryEntry struct {
	ID               int64  `json:"id"`
	Type             string `json:"tipo"`
	TypeLabel        string `json:"nome_tipo"`
	Date             string `json:"data"`
	Status           string `json:"status"`
	PatientName      string `json:"nome_paciente"`
	PractitionerName string `json:"nome_terapeuta"`
	Signatures       string `json:"assinaturas"`
}

// SignatureCompletion indica que campos de assinatura estão preenchidos.
type SignatureCompletion struct {
	Patient      bool `json:"paciente"`
	Practitioner bool `json:"terapeuta"`
	Complete     bool `json:"completo"`
}

// DeclarationFileState é o resultado da verificação de um PDF arquivado
// contra a declaração de saúde mais recente.
type DeclarationFileState struct {
	Status    string  `json:"status"`
	ChangedAt *string `json:"data_alteracao"`
}

// VoidPreview é a fotografia de um consentimento a anular, usada para gerar
// o comprovativo de anulação.
type VoidPreview struct {
	ID               int64  `json:"id"`
	Type             string `json:"tipo"`
	TypeLabel        string `json:"nome_tipo"`
	ContentHTML      string `json:"conteudo_html"`
	ContentText      string `json:"conteudo_texto"`
	SignedAt         string `json:"data_assinatura"`
	PatientName      string `json:"nome_paciente"`
	PractitionerName string `json:"nome_terapeuta"`
}

// PreviousDeclaration é a declaração de saúde mais recente do paciente, com
// as respostas do formulário para pré-preencher uma nova.
type PreviousDeclaration struct {
	ID        int64   `json:"id"`
	Status    string  `json:"status"`
	SignedAt  string  `json:"data_assinatura"`
	CreatedAt string  `json:"data_criacao"`
	FormData  *string `json:"dados_formulario"`
}

// ParseTime lê um timestamp no formato de armazenamento.
func ParseTime(ts string) (time.Time, bool) {
	t, err := time.ParseInLocation(TimeLayout, ts, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate converte um timestamp de armazenamento para dd/mm/aaaa.
// Valores fora do formato passam inalterados.
func FormatDate(ts string) string {
	t, ok := ParseTime(ts)
	if !ok {
		return ts
	}
	return t.Format(DateDisplayLayout)
}

// FormatDateTime converte um timestamp de armazenamento para exibição com
// hora ("02/01/2006 às 15:04").
func FormatDateTime(ts string) string {
	t, ok := ParseTime(ts)
	if !ok {
		return ts
	}
	return t.Format(DateTimeDisplay)
}
