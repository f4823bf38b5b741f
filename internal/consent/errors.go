package consent

import "errors"

// Erros sentinela do ciclo de vida. Os handlers distinguem ausência de
// registo, ausência de consentimento ativo e nomes de ficheiro que não
// resolvem; falhas de armazenamento chegam embrulhadas com %w.
var (
	ErrNotFound        = errors.New("registo de consentimento não encontrado")
	ErrNoActiveConsent = errors.New("não há consentimento ativo para anular")
	// ErrNoFileTimestamp: o nome do PDF não tem timestamp embebido, a
	// verificação não consegue resolver.
	ErrNoFileTimestamp = errors.New("nome de ficheiro sem timestamp")
	// ErrNoMatchingRecord: nenhum registo com data_assinatura a menos de
	// 5 segundos do timestamp do ficheiro.
	ErrNoMatchingRecord = errors.New("nenhum registo corresponde ao ficheiro")
)
