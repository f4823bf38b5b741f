// Package signature é a versão sem interface gráfica do canvas de
// assinatura do Biodesk desktop: o mesmo estado de traços e a mesma
// rasterização (fundo branco, traço preto de 2px com pontas redondas), mas
// alimentado por coordenadas em vez de eventos de rato.
package signature

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/fogleman/gg"
)

// Dimensões herdadas do widget original.
const (
	DefaultWidth  = 500
	DefaultHeight = 200

	penWidth = 2
)

// Point é uma coordenada no canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke é um traço contínuo: o ponto inicial e os segmentos até levantar a
// caneta.
type Stroke []Point

// Canvas acumula traços e rasteriza a pedido. Pertence a um único dono de
// cada vez; não há locking interno.
type Canvas struct {
	width   int
	height  int
	strokes []Stroke
	current Stroke
	drawing bool
	signed  bool
	// onChange é notificado quando o estado "tem assinatura" muda de
	// significado: em cada traço confirmado e no Clear.
	onChange func(signed bool)
}

// NewCanvas cria um canvas com as dimensões por omissão do widget original.
func NewCanvas() *Canvas {
	return NewCanvasSize(DefaultWidth, DefaultHeight)
}

// NewCanvasSize cria um canvas com dimensões próprias.
func NewCanvasSize(width, height int) *Canvas {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return &Canvas{width: width, height: height}
}

// OnChange regista o callback de mudança de estado.
func (c *Canvas) OnChange(fn func(signed bool)) {
	c.onChange = fn
}

func (c *Canvas) notify() {
	if c.onChange != nil {
		c.onChange(c.signed)
	}
}

// Begin inicia um traço novo em p. Um traço já aberto é descartado.
func (c *Canvas) Begin(p Point) {
	c.drawing = true
	c.current = Stroke{p}
}

// Extend acrescenta um segmento até p. Sem traço aberto é um no-op.
func (c *Canvas) Extend(p Point) {
	if !c.drawing {
		return
	}
	c.current = append(c.current, p)
}

// End fecha o traço aberto. Só traços com pelo menos um segmento são
// confirmados; um clique sem arrasto não conta como assinatura.
func (c *Canvas) End() {
	if !c.drawing {
		return
	}
	c.drawing = false
	if len(c.current) < 2 {
		c.current = nil
		return
	}
	c.strokes = append(c.strokes, c.current)
	c.current = nil
	c.signed = true
	c.notify()
}

// Clear apaga todos os traços e volta ao estado sem assinatura.
func (c *Canvas) Clear() {
	c.strokes = nil
	c.current = nil
	c.drawing = false
	c.signed = false
	c.notify()
}

// Signed indica se há pelo menos um traço confirmado.
func (c *Canvas) Signed() bool { return c.signed }

// StrokeCount devolve o número de traços confirmados.
func (c *Canvas) StrokeCount() int { return len(c.strokes) }

// Replay reproduz traços decodificados da camada HTTP como se tivessem sido
// desenhados: Begin no primeiro ponto, Extend nos restantes, End.
func (c *Canvas) Replay(strokes []Stroke) {
	for _, s := range strokes {
		if len(s) == 0 {
			continue
		}
		c.Begin(s[0])
		for _, p := range s[1:] {
			c.Extend(p)
		}
		c.End()
	}
}

// Rasterize desenha os traços confirmados sobre fundo branco e devolve os
// bytes PNG, ou nil sem assinatura. É determinística: os mesmos traços
// produzem os mesmos bytes.
func (c *Canvas) Rasterize() ([]byte, error) {
	if !c.signed {
		return nil, nil
	}
	dc := gg.NewContext(c.width, c.height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(penWidth)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for _, stroke := range c.strokes {
		dc.MoveTo(stroke[0].X, stroke[0].Y)
		for _, p := range stroke[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
	}
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("codificar assinatura em PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// RasterizeBase64 devolve o PNG em base64 para embeber em HTML, ou string
// vazia sem assinatura.
func (c *Canvas) RasterizeBase64() (string, error) {
	png, err := c.Rasterize()
	if err != nil || png == nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
