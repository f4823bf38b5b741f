package signature

// Pair compõe os dois canvases do diálogo de assinatura: paciente e
// terapeuta. A regra de confirmação é a do diálogo original: basta um dos
// dois ter assinado; os dois assinantes podem agir em momentos diferentes.
type Pair struct {
	Patient      *Canvas
	Practitioner *Canvas
}

// NewPair cria os dois canvases com as dimensões por omissão.
func NewPair() *Pair {
	return &Pair{Patient: NewCanvas(), Practitioner: NewCanvas()}
}

// CanConfirm indica se o diálogo pode ser confirmado: pelo menos uma das
// assinaturas presente. Não exige as duas; a completude das duas é regra do
// registo (SignaturesComplete), não do diálogo.
func (p *Pair) CanConfirm() bool {
	return p.Patient.Signed() || p.Practitioner.Signed()
}

// Clear limpa os dois canvases.
func (p *Pair) Clear() {
	p.Patient.Clear()
	p.Practitioner.Clear()
}
