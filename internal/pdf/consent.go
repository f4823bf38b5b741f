// Package pdf gera os documentos arquivados no dossier do paciente:
// consentimentos assinados, declarações de saúde e comprovativos de
// anulação. Layout simples em A4; o conteúdo rico fica no desktop.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// Document reúne tudo o que entra num PDF de consentimento ou declaração.
type Document struct {
	Title            string
	TypeLabel        string
	PatientName      string
	PractitionerName string
	SignedAt         string // já formatado para exibição
	BodyText         string
	// Assinaturas em PNG, como saem do canvas; qualquer uma pode faltar.
	PatientSignaturePNG      []byte
	PractitionerSignaturePNG []byte
	SHA256          string
	VerificationURL string
}

// VoidCertificate é o comprovativo de anulação de um consentimento.
type VoidCertificate struct {
	TypeLabel        string
	PatientName      string
	PractitionerName string
	SignedAt         string
	VoidedAt         string
	Reason           string
}

func newPage() *fpdf.Fpdf {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.SetAutoPageBreak(true, 15)
	doc.AddPage()
	return doc
}

// embedPNG regista a imagem a partir dos bytes e desenha-a na posição
// atual. Imagens vazias são ignoradas.
func embedPNG(doc *fpdf.Fpdf, alias string, png []byte, w, h float64) {
	if len(png) == 0 {
		return
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader(alias, opts, bytes.NewReader(png))
	doc.ImageOptions(alias, 15, doc.GetY(), w, h, false, opts, 0, "")
	doc.SetY(doc.GetY() + h + 2)
}

func signatureSection(doc *fpdf.Fpdf, label string, png []byte, name, alias string) {
	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(0, 6, label, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if len(png) > 0 {
		embedPNG(doc, alias, png, 50, 20)
	} else {
		doc.CellFormat(0, 6, "(sem assinatura)", "", 1, "L", false, 0, "")
	}
	if name != "" {
		doc.CellFormat(0, 6, name, "", 1, "L", false, 0, "")
	}
}

// verificationBlock escreve o hash do documento e o QR que aponta para a
// verificação pública do estado da declaração.
func verificationBlock(doc *fpdf.Fpdf, sha256, url string) {
	doc.Ln(6)
	if sha256 != "" {
		doc.SetFont("Helvetica", "", 8)
		doc.CellFormat(0, 5, "SHA-256: "+sha256, "", 1, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 10)
	}
	if url == "" {
		return
	}
	qrPNG, err := qrcode.Encode(url, qrcode.Medium, 128)
	if err == nil {
		embedPNG(doc, "qr", qrPNG, 30, 30)
	}
	doc.SetFont("Helvetica", "", 8)
	doc.CellFormat(0, 5, "Verificar estado: "+url, "", 1, "L", false, 0, "")
}

func buildDocument(d Document) ([]byte, error) {
	doc := newPage()
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, d.Title, "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	if d.TypeLabel != "" {
		doc.CellFormat(0, 6, "Tipo: "+d.TypeLabel, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 6, "Paciente: "+d.PatientName, "", 1, "L", false, 0, "")
	if d.PractitionerName != "" {
		doc.CellFormat(0, 6, "Terapeuta: "+d.PractitionerName, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 6, "Data: "+d.SignedAt, "", 1, "L", false, 0, "")
	doc.Ln(4)
	doc.MultiCell(0, 6, d.BodyText, "", "", false)

	signatureSection(doc, "Assinatura do paciente:", d.PatientSignaturePNG, d.PatientName, "sig_paciente")
	signatureSection(doc, "Assinatura do terapeuta:", d.PractitionerSignaturePNG, d.PractitionerName, "sig_terapeuta")
	verificationBlock(doc, d.SHA256, d.VerificationURL)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("gerar PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildConsentPDF gera o PDF de um consentimento assinado.
func BuildConsentPDF(d Document) ([]byte, error) {
	if d.Title == "" {
		d.Title = "Consentimento Informado"
	}
	return buildDocument(d)
}

// BuildDeclarationPDF gera o PDF de uma declaração de saúde.
func BuildDeclarationPDF(d Document) ([]byte, error) {
	if d.Title == "" {
		d.Title = "Declaração de Saúde"
	}
	return buildDocument(d)
}

// BuildVoidCertificatePDF gera o comprovativo de anulação. O registo
// anulado continua na base de dados; este documento é o rasto em papel.
func BuildVoidCertificatePDF(v VoidCertificate) ([]byte, error) {
	doc := newPage()
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 10, "Anulação de Consentimento", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	doc.Ln(2)
	doc.CellFormat(0, 6, "Tipo: "+v.TypeLabel, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Paciente: "+v.PatientName, "", 1, "L", false, 0, "")
	if v.PractitionerName != "" {
		doc.CellFormat(0, 6, "Terapeuta: "+v.PractitionerName, "", 1, "L", false, 0, "")
	}
	doc.CellFormat(0, 6, "Assinado em: "+v.SignedAt, "", 1, "L", false, 0, "")
	doc.CellFormat(0, 6, "Anulado em: "+v.VoidedAt, "", 1, "L", false, 0, "")
	doc.Ln(4)
	doc.MultiCell(0, 6, "Motivo da anulação: "+v.Reason, "", "", false)
	doc.Ln(6)
	doc.SetFont("Helvetica", "", 8)
	doc.MultiCell(0, 5, "Este comprovativo documenta a anulação do consentimento acima. O registo original permanece arquivado para efeitos de auditoria.", "", "", false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("gerar PDF de anulação: %w", err)
	}
	return buf.Bytes(), nil
}

// BodyFromHTML reduz HTML a texto plano para o corpo do PDF: tags viram
// espaços e as entidades básicas são repostas.
func BodyFromHTML(html string) string {
	var out []byte
	inTag := false
	for i := 0; i < len(html); i++ {
		c := html[i]
		if c == '<' {
			inTag = true
			continue
		}
		if inTag {
			if c == '>' {
				inTag = false
				out = append(out, ' ')
			}
			continue
		}
		if c == '&' {
			if i+4 <= len(html) && html[i:i+4] == "&lt;" {
				out = append(out, '<')
				i += 3
				continue
			}
			if i+4 <= len(html) && html[i:i+4] == "&gt;" {
				out = append(out, '>')
				i += 3
				continue
			}
			if i+5 <= len(html) && html[i:i+5] == "&amp;" {
				out = append(out, '&')
				i += 4
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}
