// Package crypto reúne utilitários de hash usados para identificar
// documentos arquivados.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex devolve o SHA-256 de data em hexadecimal minúsculo. É o
// identificador impresso nos PDFs e devolvido ao arquivar documentos.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
